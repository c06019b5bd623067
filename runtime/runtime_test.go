package runtime

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
	"github.com/luca-patrignani/onchain-holdem/hand"
	"github.com/luca-patrignani/onchain-holdem/ledger"
	"github.com/luca-patrignani/onchain-holdem/roster"
	"github.com/luca-patrignani/onchain-holdem/table"
)

func newSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	copy(seed, priv.Seed())
	return seed
}

func TestIdentity_DerivedScalarMatchesPublicKey(t *testing.T) {
	ops := curve.New()
	seed := newSeed(t)

	id, err := NewIdentity(ops, seed)
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	if !ops.EqualPoints(ops.ScalarBaseMul(id.Sk), id.Key) {
		t.Fatal("derived scalar does not reconstruct the identity's public point")
	}
}

// TestTwoShufflersRunShuffleLoop drives both shufflers' runtime Run loops
// against a shared table and checks the hand reaches Dealing with both
// shuffle steps recorded, purely from their own reactive submission
// logic (no direct calls to hand.Process from the test).
func TestTwoShufflersRunShuffleLoop(t *testing.T) {
	ops := curve.New()

	seedA := newSeed(t)
	seedB := newSeed(t)
	idA, err := NewIdentity(ops, seedA)
	if err != nil {
		t.Fatalf("identity a: %v", err)
	}
	idB, err := NewIdentity(ops, seedB)
	if err != nil {
		t.Fatalf("identity b: %v", err)
	}

	shuffRost, err := roster.BuildShufflerRoster(ops, []roster.Shuffler{
		{ShufflerID: "s0", PKj: idA.Key},
		{ShufflerID: "s1", PKj: idB.Key},
	})
	if err != nil {
		t.Fatalf("build shuffler roster: %v", err)
	}

	playerPub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate player key: %v", err)
	}
	playerKey, err := ops.DecodePoint(playerPub)
	if err != nil {
		t.Fatalf("decode player point: %v", err)
	}
	playRost, err := roster.BuildPlayerRoster(ops, 2, []roster.PlayerEntry{
		{PlayerID: "p0", PKu: playerKey, Seat: 0},
	})
	if err != nil {
		t.Fatalf("build player roster: %v", err)
	}

	plan, err := roster.BuildCardPlan(52, playRost.ActiveSeats(), 0)
	if err != nil {
		t.Fatalf("build card plan: %v", err)
	}

	initialDeck := make([]elgamal.Ciphertext, 52)
	for i := range initialDeck {
		r := ops.RandomScalar()
		initialDeck[i] = elgamal.EncryptScalar(ops, int64(i), r, shuffRost.AggregatedPK)
	}

	state := hand.NewInitialState(1, 1, shuffRost, playRost, plan, initialDeck, map[int]uint64{0: 1000})
	store := ledger.NewStore()
	verifier := ledger.NewVerifier(ops)
	tbl := table.New(ops, store, verifier, hand.Engines{}, state)

	shufflerA := NewShuffler(ops, idA, 0, 1, 1)
	shufflerB := NewShuffler(ops, idB, 1, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 2)
	go func() { done <- shufflerA.Run(ctx, tbl) }()
	go func() { done <- shufflerB.Run(ctx, tbl) }()

	deadline := time.After(3 * time.Second)
	for {
		if tbl.State().Phase == hand.PhaseDealing {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for Dealing phase, still at %s", tbl.State().Phase)
		case <-time.After(10 * time.Millisecond):
		}
	}

	final := tbl.State()
	if len(final.Shuffling.Steps) != 2 {
		t.Fatalf("expected 2 shuffle steps, got %d", len(final.Shuffling.Steps))
	}
	if len(final.Dealing.Assignments) != 52 {
		t.Fatalf("expected 52 materialized deck positions, got %d", len(final.Dealing.Assignments))
	}
}

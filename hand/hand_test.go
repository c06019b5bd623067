package hand

import (
	"crypto/ed25519"
	"testing"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/decryption"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
	"github.com/luca-patrignani/onchain-holdem/ledger"
	"github.com/luca-patrignani/onchain-holdem/roster"
	"github.com/luca-patrignani/onchain-holdem/shuffle"
)

type actorIdentity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	key  curve.Point
}

func newActorIdentity(t *testing.T, ops *curve.Ops) actorIdentity {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key, err := ops.DecodePoint(pub)
	if err != nil {
		t.Fatalf("decode point: %v", err)
	}
	return actorIdentity{priv: priv, pub: pub, key: key}
}

func buildEnvelope(handID, gameID uint64, actor ledger.Actor, nonce uint64, id actorIdentity, kind ledger.MessageKind, payload []byte) *ledger.Envelope {
	env := &ledger.Envelope{
		HandID:    handID,
		GameID:    gameID,
		Actor:     actor,
		Nonce:     nonce,
		PublicKey: id.pub,
		Kind:      kind,
		Payload:   payload,
	}
	ledger.Sign(env, id.priv)
	return env
}

type testRig struct {
	ops       *curve.Ops
	shufflers []actorIdentity
	players   []actorIdentity
	shuffRost *roster.ShufflerRoster
	playRost  *roster.PlayerRoster
	plan      *roster.CardPlan
	state     *State
	verifier  *ledger.Verifier
	engines   Engines
	nonces    []uint64 // per shuffler index
}

func setupRig(t *testing.T) *testRig {
	t.Helper()
	ops := curve.New()

	shufflers := []actorIdentity{newActorIdentity(t, ops), newActorIdentity(t, ops)}
	players := []actorIdentity{newActorIdentity(t, ops), newActorIdentity(t, ops)}

	shuffRost, err := roster.BuildShufflerRoster(ops, []roster.Shuffler{
		{ShufflerID: "s0", PKj: shufflers[0].key},
		{ShufflerID: "s1", PKj: shufflers[1].key},
	})
	if err != nil {
		t.Fatalf("build shuffler roster: %v", err)
	}

	playRost, err := roster.BuildPlayerRoster(ops, 2, []roster.PlayerEntry{
		{PlayerID: "p0", PKu: players[0].key, Seat: 0},
		{PlayerID: "p1", PKu: players[1].key, Seat: 1},
	})
	if err != nil {
		t.Fatalf("build player roster: %v", err)
	}

	plan, err := roster.BuildCardPlan(52, playRost.ActiveSeats(), 1)
	if err != nil {
		t.Fatalf("build card plan: %v", err)
	}

	initialDeck := make([]elgamal.Ciphertext, 52)
	for i := range initialDeck {
		r := ops.RandomScalar()
		initialDeck[i] = elgamal.EncryptScalar(ops, int64(i), r, shuffRost.AggregatedPK)
	}

	state := NewInitialState(1, 1, shuffRost, playRost, plan, initialDeck, map[int]uint64{0: 1000, 1: 1000})

	return &testRig{
		ops:       ops,
		shufflers: shufflers,
		players:   players,
		shuffRost: shuffRost,
		playRost:  playRost,
		plan:      plan,
		state:     state,
		verifier:  ledger.NewVerifier(ops),
		engines:   Engines{},
		nonces:    []uint64{0, 0},
	}
}

func freshRandomness(ops *curve.Ops, n int) []curve.Scalar {
	out := make([]curve.Scalar, n)
	for i := range out {
		out[i] = ops.RandomScalar()
	}
	return out
}

// submitShuffle builds and processes shufflerIdx's shuffle step, failing
// the test unless it is accepted.
func (r *testRig) submitShuffle(t *testing.T, shufflerIdx int) {
	t.Helper()
	id := r.shufflers[shufflerIdx]
	turnIdx := len(r.state.Shuffling.Steps)
	var deckIn []elgamal.Ciphertext
	if turnIdx == 0 {
		deckIn = r.state.Shuffling.InitialDeck
	} else {
		deckIn = r.state.Shuffling.FinalDeck
	}
	seed := r.ops.RandomScalar()
	rs := freshRandomness(r.ops, len(deckIn))
	msg, _, err := shuffle.Build(r.ops, deckIn, r.shuffRost.AggregatedPK, ShuffleLevels, seed, rs, turnIdx)
	if err != nil {
		t.Fatalf("build shuffle message: %v", err)
	}
	payload := EncodeShuffleMessage(r.ops, msg)
	actor := ledger.Actor{Kind: ledger.ActorShuffler, ShufflerID: int64(shufflerIdx), Key: id.key}
	env := buildEnvelope(1, 1, actor, r.nonces[shufflerIdx], id, ledger.MsgShuffle, payload)
	r.nonces[shufflerIdx]++

	outcome, err := Process(r.ops, r.verifier, r.engines, r.state, env, msg)
	if err != nil {
		t.Fatalf("process shuffle: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected shuffle from shuffler %d to be accepted, got reason %q", shufflerIdx, outcome.Record.Reason)
	}
	r.state = outcome.Next
}

func (r *testRig) playerKey(seat int) curve.Point {
	return r.players[seat].key
}

func (r *testRig) submitBlindingContribution(t *testing.T, shufflerIdx int, hole HoleKey) {
	t.Helper()
	id := r.shufflers[shufflerIdx]
	delta := r.ops.RandomScalar()
	contribution := decryption.MakeBlindingContribution(r.ops, r.shuffRost.AggregatedPK, r.playerKey(hole.Seat), delta)
	m := BlindingContributionMsg{Hole: hole, Contribution: contribution}
	payload := EncodeBlindingContribution(r.ops, m)
	actor := ledger.Actor{Kind: ledger.ActorShuffler, ShufflerID: int64(shufflerIdx), Key: id.key}
	env := buildEnvelope(1, 1, actor, r.nonces[shufflerIdx], id, ledger.MsgBlindingContribution, payload)
	r.nonces[shufflerIdx]++

	outcome, err := Process(r.ops, r.verifier, r.engines, r.state, env, m)
	if err != nil {
		t.Fatalf("process blinding contribution: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected blinding contribution to be accepted, got reason %q", outcome.Record.Reason)
	}
	r.state = outcome.Next
}

func (r *testRig) submitUnblindingShare(t *testing.T, shufflerIdx int, hole HoleKey) {
	t.Helper()
	id := r.shufflers[shufflerIdx]
	combined, ok := r.state.Dealing.PlayerCiphertexts[hole]
	if !ok {
		t.Fatalf("blinding contributions for hole %+v not yet combined", hole)
	}
	shareSecret := r.ops.RandomScalar()
	share := decryption.MakeUnblindingShare(r.ops, combined.BlindedBase, shareSecret, shufflerIdx)
	m := UnblindingShareMsg{Hole: hole, Share: share}
	payload := EncodeUnblindingShare(r.ops, m)
	actor := ledger.Actor{Kind: ledger.ActorShuffler, ShufflerID: int64(shufflerIdx), Key: id.key}
	env := buildEnvelope(1, 1, actor, r.nonces[shufflerIdx], id, ledger.MsgPartialUnblinding, payload)
	r.nonces[shufflerIdx]++

	outcome, err := Process(r.ops, r.verifier, r.engines, r.state, env, m)
	if err != nil {
		t.Fatalf("process unblinding share: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected unblinding share to be accepted, got reason %q", outcome.Record.Reason)
	}
	r.state = outcome.Next
}

// TestOutOfTurnShuffleRejected is spec.md §8 scenario S5: a shuffler
// submitting before its turn is rejected with a phase-mismatch reason,
// and the deck/step state is left completely untouched.
func TestOutOfTurnShuffleRejected(t *testing.T) {
	r := setupRig(t)

	id := r.shufflers[1] // shuffler 1 goes second; ExpectedOrder[0] is shuffler 0
	seed := r.ops.RandomScalar()
	rs := freshRandomness(r.ops, len(r.state.Shuffling.InitialDeck))
	msg, _, err := shuffle.Build(r.ops, r.state.Shuffling.InitialDeck, r.shuffRost.AggregatedPK, ShuffleLevels, seed, rs, 0)
	if err != nil {
		t.Fatalf("build shuffle message: %v", err)
	}
	payload := EncodeShuffleMessage(r.ops, msg)
	actor := ledger.Actor{Kind: ledger.ActorShuffler, ShufflerID: 1, Key: id.key}
	env := buildEnvelope(1, 1, actor, 0, id, ledger.MsgShuffle, payload)

	outcome, err := Process(r.ops, r.verifier, r.engines, r.state, env, msg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !outcome.Rejected {
		t.Fatal("expected out-of-turn shuffle to be rejected")
	}
	if outcome.Record.Reason != ledger.ReasonPhaseMismatch {
		t.Fatalf("expected ReasonPhaseMismatch, got %q", outcome.Record.Reason)
	}
	if outcome.Next.Phase != PhaseShuffling {
		t.Fatalf("expected phase to remain Shuffling, got %s", outcome.Next.Phase)
	}
	if len(outcome.Next.Shuffling.Steps) != 0 {
		t.Fatalf("expected no shuffle steps to be recorded, got %d", len(outcome.Next.Shuffling.Steps))
	}
	if outcome.Next.Shuffling.FinalDeck != nil {
		t.Fatal("expected deck state to be untouched")
	}
}

// TestDealingToPreflopGateRequiresAllHoles is spec.md §8 scenario S6: the
// Dealing → Preflop transition only fires once every active seat's both
// hole cards have a combined player ciphertext AND a combined
// unblinding — not before.
func TestDealingToPreflopGateRequiresAllHoles(t *testing.T) {
	r := setupRig(t)

	r.submitShuffle(t, 0)
	r.submitShuffle(t, 1)
	if r.state.Phase != PhaseDealing {
		t.Fatalf("expected Dealing phase after both shuffles, got %s", r.state.Phase)
	}
	if len(r.state.Dealing.Assignments) != 52 {
		t.Fatalf("expected 52 materialized deck positions, got %d", len(r.state.Dealing.Assignments))
	}

	holes := []HoleKey{{Seat: 0, HoleIndex: 0}, {Seat: 0, HoleIndex: 1}, {Seat: 1, HoleIndex: 0}, {Seat: 1, HoleIndex: 1}}

	for i, hole := range holes {
		r.submitBlindingContribution(t, 0, hole)
		r.submitBlindingContribution(t, 1, hole)
		if _, ok := r.state.Dealing.PlayerCiphertexts[hole]; !ok {
			t.Fatalf("expected hole %+v to have a combined player ciphertext", hole)
		}

		r.submitUnblindingShare(t, 0, hole)
		r.submitUnblindingShare(t, 1, hole)
		if _, ok := r.state.Dealing.CombinedUnblindings[hole]; !ok {
			t.Fatalf("expected hole %+v to have a combined unblinding", hole)
		}

		if i < len(holes)-1 {
			if r.state.Phase != PhaseDealing {
				t.Fatalf("expected phase to remain Dealing after %d of %d holes complete, got %s", i+1, len(holes), r.state.Phase)
			}
		}
	}

	if r.state.Phase != PhasePreflop {
		t.Fatalf("expected phase to advance to Preflop once every hole is complete, got %s", r.state.Phase)
	}
	if r.state.Betting == nil {
		t.Fatal("expected betting state to be initialized on entering Preflop")
	}
	if r.state.Betting.Stacks[0] != 1000 || r.state.Betting.Stacks[1] != 1000 {
		t.Fatalf("expected starting stacks to carry over, got %+v", r.state.Betting.Stacks)
	}
}

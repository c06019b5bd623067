package ledger

import (
	"crypto/ed25519"
	"testing"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

func newSignedEnvelope(t *testing.T, ops *curve.Ops, nonce uint64) (*Envelope, ed25519.PrivateKey, curve.Point) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key, err := ops.DecodePoint(pub)
	if err != nil {
		t.Fatalf("decode ed25519 public key as curve point: %v", err)
	}
	env := &Envelope{
		HandID:    1,
		GameID:    2,
		Actor:     Actor{Kind: ActorShuffler, ShufflerID: 7, Key: key},
		Nonce:     nonce,
		PublicKey: pub,
		Kind:      MsgShuffle,
		Payload:   []byte("payload"),
	}
	Sign(env, priv)
	return env, priv, key
}

func TestSignVerifyRoundTrip(t *testing.T) {
	ops := curve.New()
	env, _, _ := newSignedEnvelope(t, ops, 0)
	if err := VerifySignature(env); err != nil {
		t.Fatalf("expected honest envelope to verify: %v", err)
	}
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	ops := curve.New()
	env, _, _ := newSignedEnvelope(t, ops, 0)
	env.Payload = []byte("tampered")
	if err := VerifySignature(env); err == nil {
		t.Fatal("expected tampered payload to fail transcript recomputation")
	}
}

func TestCheckEnvelopeReservesNonce(t *testing.T) {
	ops := curve.New()
	v := NewVerifier(ops)
	env, priv, key := newSignedEnvelope(t, ops, 0)

	known := KnownActor{Found: true, Key: key}
	if _, err := v.CheckEnvelope(env, 1, 2, known); err != nil {
		t.Fatalf("expected first envelope (nonce 0) to pass: %v", err)
	}
	v.Nonces().Commit(env.Actor.CanonicalKey(ops), env.Nonce)

	// replay of nonce 0 (same actor and key, same nonce) must be rejected
	// as a nonce conflict, not a recorded failure reason.
	replay := &Envelope{
		HandID: env.HandID, GameID: env.GameID, Actor: env.Actor,
		Nonce: 0, PublicKey: env.PublicKey, Kind: env.Kind, Payload: env.Payload,
	}
	Sign(replay, priv)
	if reason, err := v.CheckEnvelope(replay, 1, 2, known); err == nil {
		t.Fatal("expected replayed nonce to be rejected")
	} else if reason != "" {
		t.Fatalf("expected nonce conflict to carry no Reason, got %q", reason)
	}
}

func TestCheckEnvelopeRejectsUnknownActor(t *testing.T) {
	ops := curve.New()
	v := NewVerifier(ops)
	env, _, _ := newSignedEnvelope(t, ops, 0)

	reason, err := v.CheckEnvelope(env, 1, 2, KnownActor{Found: false})
	if err == nil {
		t.Fatal("expected unknown actor to be rejected")
	}
	if reason != ReasonUnauthorized {
		t.Fatalf("expected ReasonUnauthorized, got %q", reason)
	}
}

func TestNonceStateReleaseAllowsRetry(t *testing.T) {
	n := NewNonceState()
	if err := n.Reserve("a", 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	n.Release("a")
	if err := n.Reserve("a", 0); err != nil {
		t.Fatalf("expected re-reservation after release to succeed: %v", err)
	}
}

func TestChainHashDeterministic(t *testing.T) {
	var prev, msg [32]byte
	prev[0] = 1
	msg[0] = 2
	h1 := ChainHash(prev, msg)
	h2 := ChainHash(prev, msg)
	if h1 != h2 {
		t.Fatal("expected ChainHash to be deterministic")
	}

	var msg2 [32]byte
	msg2[0] = 3
	h3 := ChainHash(prev, msg2)
	if h1 == h3 {
		t.Fatal("expected different message hashes to chain to different state hashes")
	}
}

func TestStoreAppendValidatesSequenceAndPrevHash(t *testing.T) {
	store := NewStore()
	key := HandKey{GameID: 1, HandID: 1}

	rec0 := Record{Sequence: 0, StateHash: [32]byte{1}}
	if err := store.Append(key, rec0); err != nil {
		t.Fatalf("append genesis: %v", err)
	}

	rec1 := Record{Sequence: 1, PrevHash: [32]byte{1}, StateHash: [32]byte{2}}
	if err := store.Append(key, rec1); err != nil {
		t.Fatalf("append second record: %v", err)
	}

	badRec := Record{Sequence: 1, PrevHash: [32]byte{2}, StateHash: [32]byte{3}}
	if err := store.Append(key, badRec); err == nil {
		t.Fatal("expected out-of-sequence append to be rejected")
	}

	if err := store.Verify(key); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestStoreSubscribeReceivesAppends(t *testing.T) {
	store := NewStore()
	key := HandKey{GameID: 9, HandID: 9}
	sub := store.Subscribe(key, 4)

	if err := store.Append(key, Record{Sequence: 0, StateHash: [32]byte{7}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case rec := <-sub.C():
		if rec.StateHash != ([32]byte{7}) {
			t.Fatalf("unexpected record: %+v", rec)
		}
	default:
		t.Fatal("expected subscriber to receive the appended record")
	}
}

package shuffle

import (
	"testing"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
)

func freshDeck(ops *curve.Ops, n int, pk curve.Point) []elgamal.Ciphertext {
	deck := make([]elgamal.Ciphertext, n)
	for i := 0; i < n; i++ {
		deck[i] = elgamal.EncryptScalar(ops, int64(i), ops.ScalarFromInt64(int64(1000+i)), pk)
	}
	return deck
}

func randomness(ops *curve.Ops, n int) []curve.Scalar {
	rs := make([]curve.Scalar, n)
	for i := range rs {
		rs[i] = ops.RandomScalar()
	}
	return rs
}

func TestBuildAndVerifyShuffleMessage(t *testing.T) {
	ops := curve.New()
	sk := ops.RandomScalar()
	pk := ops.ScalarBaseMul(sk)

	const n = 8
	const levels = 3
	deckIn := freshDeck(ops, n, pk)
	rs := randomness(ops, n)
	seed := ops.ScalarFromInt64(1234)

	msg, w, err := Build(ops, deckIn, pk, levels, seed, rs, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := Verify(ops, msg, pk, levels); err != nil {
		t.Fatalf("expected honest shuffle message to verify: %v", err)
	}

	// sanity: decrypting deck_out at position i recovers plaintext
	// w.Permutation[i], confirming Build actually permuted the deck.
	for i := 0; i < n; i++ {
		c := msg.DeckOut[i]
		shared := ops.ScalarMul(sk, c.C1)
		mg := ops.SubPoints(c.C2, shared)
		expected := ops.ScalarBaseMul(ops.ScalarFromInt64(int64(w.Permutation[i])))
		if !ops.EqualPoints(mg, expected) {
			t.Fatalf("deck_out[%d] does not decrypt to permuted plaintext %d", i, w.Permutation[i])
		}
	}
}

func TestVerifyRejectsTamperedDeckOut(t *testing.T) {
	ops := curve.New()
	sk := ops.RandomScalar()
	pk := ops.ScalarBaseMul(sk)

	const n = 8
	const levels = 3
	deckIn := freshDeck(ops, n, pk)
	rs := randomness(ops, n)
	seed := ops.ScalarFromInt64(777)

	msg, _, err := Build(ops, deckIn, pk, levels, seed, rs, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// alpha/beta were derived over the honest deck_out; swapping two
	// entries changes the transcript and must be caught.
	msg.DeckOut[0], msg.DeckOut[1] = msg.DeckOut[1], msg.DeckOut[0]

	if err := Verify(ops, msg, pk, levels); err == nil {
		t.Fatal("expected verification to reject a tampered deck_out")
	}
}

func TestVerifyRejectsWrongNumSamples(t *testing.T) {
	ops := curve.New()
	sk := ops.RandomScalar()
	pk := ops.ScalarBaseMul(sk)

	const n = 8
	const levels = 3
	deckIn := freshDeck(ops, n, pk)
	rs := randomness(ops, n)
	seed := ops.ScalarFromInt64(42)

	msg, _, err := Build(ops, deckIn, pk, levels, seed, rs, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	msg.Proof.NumSamples++
	if err := Verify(ops, msg, pk, levels); err == nil {
		t.Fatal("expected verification to reject a tampered num_samples claim")
	}
}

// TestVerifyRejectsForgedDeckOut replaces deck_out with a completely
// fabricated deck (still a valid encryption under pk, still permuted, so
// it fools the permutation/power Pedersen openings) and recomputes the
// alpha/beta transcript challenges honestly over it, leaving the
// per-position re-encryption proofs (and the power challenge x, also
// derived over deck_out) stale. Verify must still reject it:
// those proofs are the only artifact binding deck_out to deck_in under
// the same per-position randomness, so a forged deck with a
// self-consistent transcript is not enough.
func TestVerifyRejectsForgedDeckOut(t *testing.T) {
	ops := curve.New()
	sk := ops.RandomScalar()
	pk := ops.ScalarBaseMul(sk)

	const n = 8
	const levels = 3
	deckIn := freshDeck(ops, n, pk)
	rs := randomness(ops, n)
	seed := ops.ScalarFromInt64(99)

	msg, w, err := Build(ops, deckIn, pk, levels, seed, rs, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	forgedRs := randomness(ops, n)
	forgedDeckOut := make([]elgamal.Ciphertext, n)
	for i := 0; i < n; i++ {
		forgedDeckOut[i] = elgamal.AddEncryptionLayer(ops, deckIn[w.Permutation[i]], forgedRs[i], pk)
	}
	msg.DeckOut = forgedDeckOut
	msg.Proof.Alpha = deriveChallengeScalar(ops, "RS-alpha-v1", msg.DeckIn, msg.DeckOut, msg.Proof.Seed, msg.Proof.CPerm, msg.Proof.CPower)
	msg.Proof.Beta = deriveChallengeScalar(ops, "RS-beta-v1", msg.DeckIn, msg.DeckOut, msg.Proof.Seed, msg.Proof.CPerm, msg.Proof.CPower)

	if err := Verify(ops, msg, pk, levels); err == nil {
		t.Fatal("expected verification to reject a forged deck_out with stale re-encryption proofs")
	}
}

// Package shuffle bundles the RS-shuffle witness of the rsshuffle
// package with a re-encrypted deck and its Pedersen proof artifacts into
// the single "shuffle + re-encrypt" message of spec.md §4.4, and verifies
// it. Grounded on domain/deck/shuffle.go's Shuffle step, which is where
// the teacher bundles a permutation with re-encryption randomness before
// broadcasting it to the rest of the table.
package shuffle

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/chaumpedersen"
	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
	"github.com/luca-patrignani/onchain-holdem/pedersen"
	"github.com/luca-patrignani/onchain-holdem/rsshuffle"
	"github.com/luca-patrignani/onchain-holdem/transcript"
)

// Proof carries the artifacts spec.md §4.4 requires in a shuffle message:
// a Pedersen opening for the committed permutation vector, a
// power-challenge commitment tying that permutation to a verifier-chosen
// power vector, and the Fiat-Shamir challenges binding everything to the
// deck contents.
type Proof struct {
	Seed       curve.Scalar
	NumSamples int

	CPerm      curve.Point
	PermProof  *pedersen.Proof
	CPower     curve.Point
	PowerProof *pedersen.Proof
	PowerX     curve.Scalar

	Alpha curve.Scalar
	Beta  curve.Scalar

	// Reencryption holds one Chaum-Pedersen DLEQ proof per deck position,
	// each proving deck_out[i]-deck_in[π(i)] == r_i·(G,pk) for the same
	// r_i the shuffler used to re-encrypt that position, without
	// revealing r_i. This is spec.md §4.4 condition (d)'s "standard
	// multi-scalar argument", grounded on the chaumpedersen package.
	Reencryption []chaumpedersen.Proof
}

// Message is the full shuffle + re-encrypt bundle of spec.md §4.4.
type Message struct {
	DeckIn   []elgamal.Ciphertext
	DeckOut  []elgamal.Ciphertext
	TurnIdx  int
	Proof    Proof
}

// bases builds a deterministic set of distinct group elements used as the
// Pedersen vector bases, one per deck position, so the commitment binds
// to position as well as value.
func bases(ops *curve.Ops, n int, tag string) []curve.Point {
	out := make([]curve.Point, n)
	for i := 0; i < n; i++ {
		tb := transcript.New(tag)
		tb.AppendU32(uint32(i))
		digest := tb.Hash()
		out[i] = ops.ScalarMul(ops.ScalarFromBytes(digest[:]), ops.Generator())
	}
	return out
}

func permutationVector(ops *curve.Ops, perm []int) []curve.Scalar {
	out := make([]curve.Scalar, len(perm))
	for i, p := range perm {
		out[i] = ops.ScalarFromInt64(int64(p))
	}
	return out
}

func powerVector(ops *curve.Ops, perm []int, x curve.Scalar) []curve.Scalar {
	out := make([]curve.Scalar, len(perm))
	for i, p := range perm {
		out[i] = scalarPow(ops, x, p)
	}
	return out
}

func scalarPow(ops *curve.Ops, x curve.Scalar, e int) curve.Scalar {
	acc := ops.ScalarOne()
	for i := 0; i < e; i++ {
		acc = ops.MulScalar(acc, x)
	}
	return acc
}

func deriveChallengeScalar(ops *curve.Ops, tag string, deckIn, deckOut []elgamal.Ciphertext, seed curve.Scalar, cPerm, cPower curve.Point) curve.Scalar {
	tb := transcript.New(tag)
	for _, c := range deckIn {
		tb.AppendPoint(c.C1)
		tb.AppendPoint(c.C2)
	}
	for _, c := range deckOut {
		tb.AppendPoint(c.C1)
		tb.AppendPoint(c.C2)
	}
	tb.AppendBytes(ops.EncodeScalar(seed))
	tb.AppendPoint(cPerm)
	tb.AppendPoint(cPower)
	digest := tb.Hash()
	return ops.ScalarFromBytes(digest[:])
}

// Build generates a shuffle + re-encrypt message: it runs the RS-shuffle
// witness for seed, re-encrypts deckIn under pk using freshly drawn
// randomness rs (one scalar per deck position), and produces the Pedersen
// proof artifacts binding the committed permutation to the re-encrypted
// deck.
func Build(ops *curve.Ops, deckIn []elgamal.Ciphertext, pk curve.Point, levels int, seed curve.Scalar, rs []curve.Scalar, turnIdx int) (*Message, *rsshuffle.Witness, error) {
	n := len(deckIn)
	if len(rs) != n {
		return nil, nil, fmt.Errorf("shuffle: randomness vector length %d does not match deck size %d", len(rs), n)
	}

	w, err := rsshuffle.Generate(ops, n, levels, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("shuffle: generate witness: %w", err)
	}

	deckOut := make([]elgamal.Ciphertext, n)
	reencProofs := make([]chaumpedersen.Proof, n)
	for i := 0; i < n; i++ {
		deckOut[i] = elgamal.AddEncryptionLayer(ops, deckIn[w.Permutation[i]], rs[i], pk)
		st := chaumpedersen.Statement{
			G:     ops.Generator(),
			H:     pk,
			Alpha: ops.SubPoints(deckOut[i].C1, deckIn[w.Permutation[i]].C1),
			Beta:  ops.SubPoints(deckOut[i].C2, deckIn[w.Permutation[i]].C2),
		}
		reencProofs[i] = chaumpedersen.Prove(ops, st, rs[i])
	}

	permBases := bases(ops, n, "RS-perm-bases-v1")
	hPerm := ops.ScalarMul(ops.ScalarFromInt64(424242), ops.Generator())
	permVec := permutationVector(ops, w.Permutation)
	permBlind := ops.RandomScalar()
	permProof, cPerm := pedersen.Prove(ops, permBases, hPerm, permVec, permBlind)

	powerBases := bases(ops, n, "RS-power-bases-v1")
	hPower := ops.ScalarMul(ops.ScalarFromInt64(535353), ops.Generator())
	powerX := deriveChallengeScalar(ops, "RS-power-challenge-v1", deckIn, deckOut, seed, cPerm, ops.Identity())
	powVec := powerVector(ops, w.Permutation, powerX)
	powerBlind := ops.RandomScalar()
	powerProof, cPower := pedersen.Prove(ops, powerBases, hPower, powVec, powerBlind)

	alpha := deriveChallengeScalar(ops, "RS-alpha-v1", deckIn, deckOut, seed, cPerm, cPower)
	beta := deriveChallengeScalar(ops, "RS-beta-v1", deckIn, deckOut, seed, cPerm, cPower)

	msg := &Message{
		DeckIn:  deckIn,
		DeckOut: deckOut,
		TurnIdx: turnIdx,
		Proof: Proof{
			Seed:         seed,
			NumSamples:   w.NumSamples,
			CPerm:        cPerm,
			PermProof:    permProof,
			CPower:       cPower,
			PowerProof:   powerProof,
			PowerX:       powerX,
			Alpha:        alpha,
			Beta:         beta,
			Reencryption: reencProofs,
		},
	}
	return msg, w, nil
}

// Verify checks a shuffle + re-encrypt message against the claimed public
// key pk and radix level count, per spec.md §4.4's four-part acceptance
// rule: (a)/(b)/(c) the permutation and power-challenge Pedersen openings
// fold to the witness recomputed from the revealed seed and the honestly
// derived Fiat-Shamir challenges, and (d) deck_out really is deck_in
// permuted and re-encrypted under pk, checked per deck position via a
// Chaum-Pedersen DLEQ proof that deck_out[i]-deck_in[π(i)] == r_i·(G,pk)
// without requiring the verifier to ever see r_i.
func Verify(ops *curve.Ops, msg *Message, pk curve.Point, levels int) error {
	n := len(msg.DeckIn)
	if len(msg.DeckOut) != n {
		return fmt.Errorf("shuffle: deck_out length %d does not match deck_in length %d", len(msg.DeckOut), n)
	}
	if len(msg.Proof.Reencryption) != n {
		return fmt.Errorf("shuffle: reencryption proof count %d does not match deck size %d", len(msg.Proof.Reencryption), n)
	}

	w, err := rsshuffle.Generate(ops, n, levels, msg.Proof.Seed)
	if err != nil {
		return fmt.Errorf("shuffle: regenerate witness from seed: %w", err)
	}
	if w.NumSamples != msg.Proof.NumSamples {
		return fmt.Errorf("shuffle: num_samples mismatch: witness recomputed %d, message claims %d", w.NumSamples, msg.Proof.NumSamples)
	}
	if err := w.VerifyInvariants(); err != nil {
		return fmt.Errorf("shuffle: witness invariants: %w", err)
	}

	for i, proof := range msg.Proof.Reencryption {
		st := chaumpedersen.Statement{
			G:     ops.Generator(),
			H:     pk,
			Alpha: ops.SubPoints(msg.DeckOut[i].C1, msg.DeckIn[w.Permutation[i]].C1),
			Beta:  ops.SubPoints(msg.DeckOut[i].C2, msg.DeckIn[w.Permutation[i]].C2),
		}
		if err := chaumpedersen.Verify(ops, st, proof); err != nil {
			return fmt.Errorf("shuffle: re-encryption relation failed at position %d: %w", i, err)
		}
	}

	permBases := bases(ops, n, "RS-perm-bases-v1")
	hPerm := ops.ScalarMul(ops.ScalarFromInt64(424242), ops.Generator())
	if err := pedersen.Verify(ops, permBases, hPerm, msg.Proof.CPerm, msg.Proof.PermProof); err != nil {
		return fmt.Errorf("shuffle: permutation commitment opening: %w", err)
	}
	permVec := permutationVector(ops, w.Permutation)
	if err := pedersen.ScalarFoldingLink(ops, permBases, hPerm, msg.Proof.CPerm, msg.Proof.PermProof, permVec); err != nil {
		return fmt.Errorf("shuffle: permutation commitment does not match witness: %w", err)
	}

	powerBases := bases(ops, n, "RS-power-bases-v1")
	hPower := ops.ScalarMul(ops.ScalarFromInt64(535353), ops.Generator())
	expectedPowerX := deriveChallengeScalar(ops, "RS-power-challenge-v1", msg.DeckIn, msg.DeckOut, msg.Proof.Seed, msg.Proof.CPerm, ops.Identity())
	if !ops.EqualScalars(expectedPowerX, msg.Proof.PowerX) {
		return fmt.Errorf("shuffle: power challenge x was not honestly derived")
	}
	if err := pedersen.Verify(ops, powerBases, hPower, msg.Proof.CPower, msg.Proof.PowerProof); err != nil {
		return fmt.Errorf("shuffle: power commitment opening: %w", err)
	}
	powVec := powerVector(ops, w.Permutation, msg.Proof.PowerX)
	if err := pedersen.ScalarFoldingLink(ops, powerBases, hPower, msg.Proof.CPower, msg.Proof.PowerProof, powVec); err != nil {
		return fmt.Errorf("shuffle: power commitment does not match witness permutation: %w", err)
	}

	expectedAlpha := deriveChallengeScalar(ops, "RS-alpha-v1", msg.DeckIn, msg.DeckOut, msg.Proof.Seed, msg.Proof.CPerm, msg.Proof.CPower)
	if !ops.EqualScalars(expectedAlpha, msg.Proof.Alpha) {
		return fmt.Errorf("shuffle: alpha challenge was not honestly derived")
	}
	expectedBeta := deriveChallengeScalar(ops, "RS-beta-v1", msg.DeckIn, msg.DeckOut, msg.Proof.Seed, msg.Proof.CPerm, msg.Proof.CPower)
	if !ops.EqualScalars(expectedBeta, msg.Proof.Beta) {
		return fmt.Errorf("shuffle: beta challenge was not honestly derived")
	}

	return nil
}

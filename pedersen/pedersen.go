// Package pedersen implements the vector Pedersen commitment and its
// logarithmic-folding opening argument from spec.md §4.3, plus the
// scalar-folding-link helper that binds a commitment to a specific
// externally-known vector (used by the shuffle proof of spec.md §4.4 to
// tie a committed permutation to the RS-derived one).
//
// The teacher pack has no inner-product/bulletproof analogue; this
// package is built directly from the §4.3 folding recursion using the
// same curve.Ops and transcript toolset every other primitive package
// uses, so no new third-party dependency is introduced for it (see
// DESIGN.md).
package pedersen

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/transcript"
)

// Round is one folding step's pair of cross-term commitments (L_k, R_k).
type Round struct {
	L curve.Point
	R curve.Point
}

// Proof is the folding argument output: the per-round (L,R) pairs plus
// the final folded scalar â and blinding r̂.
type Proof struct {
	Rounds []Round
	AHat   curve.Scalar
	RHat   curve.Scalar
}

// nextPow2 returns the smallest power of two >= n, with a floor of 1 (the
// "empty input pads to one zero" edge case).
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func padScalars(ops *curve.Ops, m []curve.Scalar, n int) []curve.Scalar {
	out := make([]curve.Scalar, n)
	for i := 0; i < n; i++ {
		if i < len(m) {
			out[i] = m[i]
		} else {
			out[i] = ops.ScalarZero()
		}
	}
	return out
}

func padPoints(ops *curve.Ops, g []curve.Point, n int) []curve.Point {
	out := make([]curve.Point, n)
	for i := 0; i < n; i++ {
		if i < len(g) {
			out[i] = g[i]
		} else {
			out[i] = ops.Identity()
		}
	}
	return out
}

func innerProduct(ops *curve.Ops, a []curve.Scalar, g []curve.Point) curve.Point {
	acc := ops.Identity()
	for i := range a {
		acc = ops.AddPoints(acc, ops.ScalarMul(a[i], g[i]))
	}
	return acc
}

// Commit computes C = Σ m_i·G_i + r·H over the padded vectors.
func Commit(ops *curve.Ops, g []curve.Point, h curve.Point, m []curve.Scalar, r curve.Scalar) curve.Point {
	n := nextPow2(len(m))
	if gn := nextPow2(len(g)); gn > n {
		n = gn
	}
	mm := padScalars(ops, m, n)
	gg := padPoints(ops, g, n)
	return ops.AddPoints(innerProduct(ops, mm, gg), ops.ScalarMul(r, h))
}

// baseTranscript anchors the argument on parameter identity (the blinding
// base and the padded vector bases) and then on P_0 = C, with no separate
// domain tag string required beyond that parameter identity, per
// spec.md §4.3's "Pedersen argument transcripts use unnamed anchoring"
// note.
func baseTranscript(h curve.Point, gg []curve.Point, c curve.Point) *transcript.Builder {
	tb := transcript.New("")
	tb.AppendPoint(h)
	for _, gi := range gg {
		tb.AppendPoint(gi)
	}
	tb.AppendPoint(c)
	return tb
}

func squeezeChallenge(ops *curve.Ops, tb *transcript.Builder) curve.Scalar {
	digest := tb.Hash()
	x := ops.ScalarFromBytes(digest[:])
	if ops.EqualScalars(x, ops.ScalarZero()) {
		x = ops.ScalarOne()
	}
	return x
}

// Prove produces the folding argument for commitment C = Commit(g,h,m,r).
// It pads m to the next power of two with zeros and g similarly with the
// group identity (spec.md §4.3 step 1), then runs log2(N) folding rounds.
func Prove(ops *curve.Ops, g []curve.Point, h curve.Point, m []curve.Scalar, r curve.Scalar) (*Proof, curve.Point) {
	n := nextPow2(len(m))
	if gn := nextPow2(len(g)); gn > n {
		n = gn
	}
	mm := padScalars(ops, m, n)
	gg := padPoints(ops, g, n)
	c := ops.AddPoints(innerProduct(ops, mm, gg), ops.ScalarMul(r, h))

	tb := baseTranscript(h, gg, c)

	a := mm
	gCur := gg
	rho := r
	var rounds []Round

	for len(a) > 1 {
		half := len(a) / 2
		aL, aR := a[:half], a[half:]
		gL, gR := gCur[:half], gCur[half:]

		alpha := ops.RandomScalar()
		beta := ops.RandomScalar()
		L := ops.AddPoints(innerProduct(ops, aL, gR), ops.ScalarMul(alpha, h))
		R := ops.AddPoints(innerProduct(ops, aR, gL), ops.ScalarMul(beta, h))

		tb.AppendPoint(L)
		tb.AppendPoint(R)
		x := squeezeChallenge(ops, tb)
		xInv := ops.InvScalar(x)

		newA := make([]curve.Scalar, half)
		newG := make([]curve.Point, half)
		for i := 0; i < half; i++ {
			newA[i] = ops.AddScalar(ops.MulScalar(x, aL[i]), ops.MulScalar(xInv, aR[i]))
			newG[i] = ops.AddPoints(ops.ScalarMul(xInv, gL[i]), ops.ScalarMul(x, gR[i]))
		}

		x2 := ops.MulScalar(x, x)
		xInv2 := ops.MulScalar(xInv, xInv)
		rho = ops.SumScalars(rho, ops.MulScalar(x2, alpha), ops.MulScalar(xInv2, beta))

		rounds = append(rounds, Round{L: L, R: R})
		a, gCur = newA, newG
	}

	return &Proof{Rounds: rounds, AHat: a[0], RHat: rho}, c
}

// deriveChallenges recomputes the Fiat-Shamir challenges the prover must
// have used, folding P alongside them so Verify and ScalarFoldingLink
// share one code path.
func deriveChallenges(ops *curve.Ops, g []curve.Point, h curve.Point, c curve.Point, proof *Proof) (challenges []curve.Scalar, foldedP curve.Point, gg []curve.Point, n int) {
	n = nextPow2(len(g))
	if expected := 1 << uint(len(proof.Rounds)); expected > n {
		n = expected
	}
	gg = padPoints(ops, g, n)

	tb := baseTranscript(h, gg, c)
	p := c
	challenges = make([]curve.Scalar, len(proof.Rounds))
	for i, rnd := range proof.Rounds {
		tb.AppendPoint(rnd.L)
		tb.AppendPoint(rnd.R)
		x := squeezeChallenge(ops, tb)
		challenges[i] = x
		xInv := ops.InvScalar(x)
		x2 := ops.MulScalar(x, x)
		xInv2 := ops.MulScalar(xInv, xInv)
		p = ops.SumPoints(p, ops.ScalarMul(x2, rnd.L), ops.ScalarMul(xInv2, rnd.R))
	}
	return challenges, p, gg, n
}

// foldingCoefficients computes s_j = Π_k x_k^{(-1)^{1-bit_k(j)}} in block
// order (bit_0 is the most-significant split, i.e. the first round),
// matching the recursive left/right halving spec.md §4.3 describes.
func foldingCoefficients(ops *curve.Ops, challenges []curve.Scalar, n int) []curve.Scalar {
	t := len(challenges)
	out := make([]curve.Scalar, n)
	for j := 0; j < n; j++ {
		s := ops.ScalarOne()
		for k := 0; k < t; k++ {
			bit := (j >> uint(t-1-k)) & 1
			if bit == 0 {
				s = ops.MulScalar(s, ops.InvScalar(challenges[k]))
			} else {
				s = ops.MulScalar(s, challenges[k])
			}
		}
		out[j] = s
	}
	return out
}

// Verify checks the folding argument against commitment C and bases
// (g,h). Accepts iff P_final == â·(Σ s_j·G_j) + r̂·H.
func Verify(ops *curve.Ops, g []curve.Point, h curve.Point, c curve.Point, proof *Proof) error {
	challenges, p, gg, n := deriveChallenges(ops, g, h, c, proof)
	s := foldingCoefficients(ops, challenges, n)

	combined := ops.Identity()
	for j := 0; j < n; j++ {
		combined = ops.AddPoints(combined, ops.ScalarMul(s[j], gg[j]))
	}
	rhs := ops.AddPoints(ops.ScalarMul(proof.AHat, combined), ops.ScalarMul(proof.RHat, h))
	if !ops.EqualPoints(p, rhs) {
		return fmt.Errorf("pedersen: opening argument failed to verify")
	}
	return nil
}

// FoldVector folds an externally-known candidate vector m' through the
// same challenge sequence the prover used (a := x·a_L + x⁻¹·a_R per
// round), returning the resulting single scalar.
func FoldVector(ops *curve.Ops, challenges []curve.Scalar, mPrime []curve.Scalar) curve.Scalar {
	n := 1 << uint(len(challenges))
	a := padScalars(ops, mPrime, n)
	for _, x := range challenges {
		half := len(a) / 2
		aL, aR := a[:half], a[half:]
		xInv := ops.InvScalar(x)
		newA := make([]curve.Scalar, half)
		for i := 0; i < half; i++ {
			newA[i] = ops.AddScalar(ops.MulScalar(x, aL[i]), ops.MulScalar(xInv, aR[i]))
		}
		a = newA
	}
	return a[0]
}

// ScalarFoldingLink recomputes the challenges of a previously-verified
// (or about-to-be-verified) proof against (g,h,C) and checks that folding
// candidate vector m' through them equals the proof's â. This binds the
// commitment to a specific known vector, e.g. tying a shuffle's committed
// permutation-derived vector to the RS-shuffle witness.
func ScalarFoldingLink(ops *curve.Ops, g []curve.Point, h curve.Point, c curve.Point, proof *Proof, mPrime []curve.Scalar) error {
	challenges, _, _, _ := deriveChallenges(ops, g, h, c, proof)
	folded := FoldVector(ops, challenges, mPrime)
	if !ops.EqualScalars(folded, proof.AHat) {
		return fmt.Errorf("pedersen: scalar-folding link mismatch")
	}
	return nil
}

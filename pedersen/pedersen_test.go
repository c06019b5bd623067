package pedersen

import (
	"testing"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

func basesFor(ops *curve.Ops, n int) []curve.Point {
	g := make([]curve.Point, n)
	for i := 0; i < n; i++ {
		g[i] = ops.ScalarBaseMul(ops.ScalarFromInt64(int64(1000 + i)))
	}
	return g
}

// TestProveVerifyN8 is scenario S3 from spec.md §8.
func TestProveVerifyN8(t *testing.T) {
	ops := curve.New()
	g := basesFor(ops, 8)
	h := ops.ScalarBaseMul(ops.ScalarFromInt64(999))

	m := make([]curve.Scalar, 8)
	for i := 0; i < 8; i++ {
		m[i] = ops.ScalarFromInt64(int64(i + 1))
	}
	r := ops.RandomScalar()

	proof, c := Prove(ops, g, h, m, r)
	if err := Verify(ops, g, h, c, proof); err != nil {
		t.Fatalf("expected honest proof to verify: %v", err)
	}

	if err := ScalarFoldingLink(ops, g, h, c, proof, m); err != nil {
		t.Fatalf("expected scalar-folding link against original vector to match: %v", err)
	}

	tampered := append([]curve.Scalar(nil), m...)
	tampered[3] = ops.ScalarFromInt64(99)
	if err := ScalarFoldingLink(ops, g, h, c, proof, tampered); err == nil {
		t.Fatal("expected scalar-folding link to reject a tampered vector")
	}
}

func TestProveVerifyN1(t *testing.T) {
	ops := curve.New()
	g := basesFor(ops, 1)
	h := ops.ScalarBaseMul(ops.ScalarFromInt64(999))
	m := []curve.Scalar{ops.ScalarFromInt64(5)}
	r := ops.RandomScalar()

	proof, c := Prove(ops, g, h, m, r)
	if len(proof.Rounds) != 0 {
		t.Fatalf("expected zero folding rounds for N=1, got %d", len(proof.Rounds))
	}
	if !ops.EqualScalars(proof.AHat, m[0]) {
		t.Fatal("expected AHat to equal m[0] for N=1")
	}
	if !ops.EqualScalars(proof.RHat, r) {
		t.Fatal("expected RHat to equal r for N=1")
	}
	if err := Verify(ops, g, h, c, proof); err != nil {
		t.Fatalf("expected N=1 proof to verify: %v", err)
	}
}

func TestVerifyRejectsTamperedCommitment(t *testing.T) {
	ops := curve.New()
	g := basesFor(ops, 4)
	h := ops.ScalarBaseMul(ops.ScalarFromInt64(999))
	m := []curve.Scalar{ops.ScalarFromInt64(1), ops.ScalarFromInt64(2), ops.ScalarFromInt64(3), ops.ScalarFromInt64(4)}
	r := ops.RandomScalar()

	proof, c := Prove(ops, g, h, m, r)
	badC := ops.AddPoints(c, ops.Generator())
	if err := Verify(ops, g, h, badC, proof); err == nil {
		t.Fatal("expected verification against a tampered commitment to fail")
	}
}

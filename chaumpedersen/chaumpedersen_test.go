package chaumpedersen

import (
	"testing"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

// TestProveVerify is scenario S2 from spec.md §8: secret s=17, g=G,
// h=23·G, α=17·G, β=17·23·G.
func TestProveVerify(t *testing.T) {
	ops := curve.New()
	g := ops.Generator()
	h := ops.ScalarMul(ops.ScalarFromInt64(23), g)
	s := ops.ScalarFromInt64(17)
	alpha := ops.ScalarMul(s, g)
	beta := ops.ScalarMul(s, h)

	st := Statement{G: g, H: h, Alpha: alpha, Beta: beta}
	proof := Prove(ops, st, s)

	if err := Verify(ops, st, proof); err != nil {
		t.Fatalf("expected valid proof to verify, got: %v", err)
	}
}

// TestVerifyRejectsTamperedAlpha flips the public alpha so the proof
// must fail (spec.md §8 S2: "Flipping any one bit of α makes it fail").
func TestVerifyRejectsTamperedAlpha(t *testing.T) {
	ops := curve.New()
	g := ops.Generator()
	h := ops.ScalarMul(ops.ScalarFromInt64(23), g)
	s := ops.ScalarFromInt64(17)
	alpha := ops.ScalarMul(s, g)
	beta := ops.ScalarMul(s, h)

	st := Statement{G: g, H: h, Alpha: alpha, Beta: beta}
	proof := Prove(ops, st, s)

	tampered := st
	tampered.Alpha = ops.AddPoints(alpha, g)

	if err := Verify(ops, tampered, proof); err == nil {
		t.Fatal("expected verification to fail against tampered alpha")
	}
}

func TestVerifyBatch(t *testing.T) {
	ops := curve.New()
	g := ops.Generator()

	var items []BatchItem
	var weights []curve.Scalar
	for i := int64(1); i <= 4; i++ {
		h := ops.ScalarMul(ops.ScalarFromInt64(i+1), g)
		s := ops.ScalarFromInt64(i * 7)
		alpha := ops.ScalarMul(s, g)
		beta := ops.ScalarMul(s, h)
		st := Statement{G: g, H: h, Alpha: alpha, Beta: beta}
		items = append(items, BatchItem{Statement: st, Proof: Prove(ops, st, s)})
		weights = append(weights, ops.RandomScalar())
	}

	if err := VerifyBatch(ops, items, weights); err != nil {
		t.Fatalf("expected batch to verify, got: %v", err)
	}

	items[2].Proof.Z = ops.AddScalar(items[2].Proof.Z, ops.ScalarOne())
	if err := VerifyBatch(ops, items, weights); err == nil {
		t.Fatal("expected batch verification to fail after tampering one proof")
	}
}

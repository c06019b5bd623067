package decryption

import (
	"testing"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
)

// TestRecoverHoleCard is scenario S4 from spec.md §8: three shufflers,
// encrypt card 42 through the full blind/unblind pipeline, recover 42;
// dropping any one partial share must fail recovery.
func TestRecoverHoleCard(t *testing.T) {
	ops := curve.New()
	const n = 3

	skJ := make([]curve.Scalar, n)
	pkJ := make([]curve.Point, n)
	for j := 0; j < n; j++ {
		skJ[j] = ops.ScalarFromInt64(int64(100 + j))
		pkJ[j] = ops.ScalarBaseMul(skJ[j])
	}
	pk := ops.Identity()
	for _, p := range pkJ {
		pk = ops.AddPoints(pk, p)
	}

	skU := ops.ScalarFromInt64(777)
	pkU := ops.ScalarBaseMul(skU)

	table := curve.BuildCardTable(ops, 51)

	r := ops.ScalarFromInt64(55)
	ct := elgamal.EncryptScalar(ops, 42, r, pk)

	contributions := make([]BlindingContribution, n)
	for j := 0; j < n; j++ {
		delta := ops.ScalarFromInt64(int64(200 + j))
		contributions[j] = MakeBlindingContribution(ops, pk, pkU, delta)
	}

	combined, err := CombineBlindingContributions(ops, ct, pk, pkU, contributions, n)
	if err != nil {
		t.Fatalf("combine blinding contributions: %v", err)
	}

	shares := make([]UnblindingShare, n)
	for j := 0; j < n; j++ {
		shares[j] = MakeUnblindingShare(ops, combined.BlindedBase, skJ[j], j)
	}

	mu, err := CombineUnblindingShares(ops, shares, n)
	if err != nil {
		t.Fatalf("combine unblinding shares: %v", err)
	}

	card, err := RecoverHoleCard(ops, table, combined, mu, skU)
	if err != nil {
		t.Fatalf("recover hole card: %v", err)
	}
	if card != 42 {
		t.Fatalf("expected recovered card 42, got %d", card)
	}

	for drop := 0; drop < n; drop++ {
		var partial []UnblindingShare
		for j, s := range shares {
			if j != drop {
				partial = append(partial, s)
			}
		}
		if _, err := CombineUnblindingShares(ops, partial, n); err == nil {
			t.Fatalf("expected combining shares without member %d to fail", drop)
		}
	}
}

func TestCombineBlindingContributionsRejectsBadProof(t *testing.T) {
	ops := curve.New()
	const n = 2

	skJ := make([]curve.Scalar, n)
	pkJ := make([]curve.Point, n)
	for j := 0; j < n; j++ {
		skJ[j] = ops.ScalarFromInt64(int64(10 + j))
		pkJ[j] = ops.ScalarBaseMul(skJ[j])
	}
	pk := ops.AddPoints(pkJ[0], pkJ[1])
	pkU := ops.ScalarBaseMul(ops.ScalarFromInt64(999))

	ct := elgamal.EncryptScalar(ops, 7, ops.ScalarFromInt64(11), pk)

	contributions := make([]BlindingContribution, n)
	for j := 0; j < n; j++ {
		contributions[j] = MakeBlindingContribution(ops, pk, pkU, ops.ScalarFromInt64(int64(30+j)))
	}
	// tamper with one contribution's A so its proof no longer matches B.
	contributions[0].A = ops.AddPoints(contributions[0].A, ops.Generator())

	if _, err := CombineBlindingContributions(ops, ct, pk, pkU, contributions, n); err == nil {
		t.Fatal("expected combine to reject a tampered blinding contribution")
	}
}

func TestRecoverCommunityCard(t *testing.T) {
	ops := curve.New()
	const n = 3

	skJ := make([]curve.Scalar, n)
	pkJ := make([]curve.Point, n)
	for j := 0; j < n; j++ {
		skJ[j] = ops.ScalarFromInt64(int64(300 + j))
		pkJ[j] = ops.ScalarBaseMul(skJ[j])
	}
	pk := ops.Identity()
	for _, p := range pkJ {
		pk = ops.AddPoints(pk, p)
	}

	table := curve.BuildCardTable(ops, 51)
	ct := elgamal.EncryptScalar(ops, 17, ops.ScalarFromInt64(88), pk)

	shares := make([]CommunityShare, n)
	for j := 0; j < n; j++ {
		shares[j] = MakeCommunityShare(ops, ct, skJ[j], pkJ[j])
		if err := VerifyCommunityShare(ops, ct, pkJ[j], shares[j]); err != nil {
			t.Fatalf("verify community share %d: %v", j, err)
		}
	}

	card, err := RecoverCommunityCard(ops, table, ct, shares, n)
	if err != nil {
		t.Fatalf("recover community card: %v", err)
	}
	if card != 17 {
		t.Fatalf("expected recovered community card 17, got %d", card)
	}

	if _, err := RecoverCommunityCard(ops, table, ct, shares[:n-1], n); err == nil {
		t.Fatal("expected recovery to fail with a missing community share")
	}
}

// Package decryption implements the targeted (n-of-n) cooperative
// decryption protocol of spec.md §4.5: blinding contributions and partial
// unblinding shares from every shuffler in the committee, combined so that
// no single party ever reconstructs the committee's collective secret.
// Grounded on deck/deck.go's DrawCard/OpenCard pair, generalized from a
// single shared secret into the two-phase blind/unblind handshake.
package decryption

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/chaumpedersen"
	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
)

// BlindingContribution is shuffler j's published share A_j, B_j and the
// Chaum-Pedersen proof that both use the same δ_j relative to bases G and
// pk+pk_u.
type BlindingContribution struct {
	A     curve.Point
	B     curve.Point
	Proof chaumpedersen.Proof
}

// MakeBlindingContribution draws a fresh δ_j and builds shuffler j's
// contribution for a hole card bound for player key pkU, relative to the
// committee's aggregated public key pk.
func MakeBlindingContribution(ops *curve.Ops, pk, pkU curve.Point, delta curve.Scalar) BlindingContribution {
	h := ops.AddPoints(pk, pkU)
	a := ops.ScalarBaseMul(delta)
	b := ops.ScalarMul(delta, h)
	st := chaumpedersen.Statement{G: ops.Generator(), H: h, Alpha: a, Beta: b}
	proof := chaumpedersen.Prove(ops, st, delta)
	return BlindingContribution{A: a, B: b, Proof: proof}
}

// VerifyBlindingContribution checks a single contribution's Chaum-Pedersen
// proof against the committee key pk and player key pkU.
func VerifyBlindingContribution(ops *curve.Ops, pk, pkU curve.Point, c BlindingContribution) error {
	h := ops.AddPoints(pk, pkU)
	st := chaumpedersen.Statement{G: ops.Generator(), H: h, Alpha: c.A, Beta: c.B}
	return chaumpedersen.Verify(ops, st, c.Proof)
}

// CombinedBlinding is the player-accessible ciphertext formed once all n
// blinding contributions are in.
type CombinedBlinding struct {
	BlindedBase                 curve.Point // c1 + Σ A_j
	BlindedMessageWithPlayerKey curve.Point // c2 + Σ B_j
	PlayerUnblindingHelper      curve.Point // Σ A_j
}

// CombineBlindingContributions requires exactly n contributions (the
// n-of-n invariant of spec.md §4.5) and verifies each one's
// Chaum-Pedersen proof itself; a missing or failed-proof contribution is
// returned as an error, since no partial recovery is attempted.
func CombineBlindingContributions(ops *curve.Ops, ct elgamal.Ciphertext, pk, pkU curve.Point, contributions []BlindingContribution, n int) (CombinedBlinding, error) {
	if len(contributions) != n {
		return CombinedBlinding{}, fmt.Errorf("decryption: expected %d blinding contributions, got %d", n, len(contributions))
	}
	for i, c := range contributions {
		if err := VerifyBlindingContribution(ops, pk, pkU, c); err != nil {
			return CombinedBlinding{}, fmt.Errorf("decryption: blinding contribution %d failed verification: %w", i, err)
		}
	}

	sumA := ops.Identity()
	sumB := ops.Identity()
	for _, c := range contributions {
		sumA = ops.AddPoints(sumA, c.A)
		sumB = ops.AddPoints(sumB, c.B)
	}

	return CombinedBlinding{
		BlindedBase:                 ops.AddPoints(ct.C1, sumA),
		BlindedMessageWithPlayerKey: ops.AddPoints(ct.C2, sumB),
		PlayerUnblindingHelper:      sumA,
	}, nil
}

// UnblindingShare is shuffler j's partial share μ_j = blinded_base·sk_j.
type UnblindingShare struct {
	Mu          curve.Point
	MemberIndex int
}

// MakeUnblindingShare computes shuffler j's partial unblinding share.
func MakeUnblindingShare(ops *curve.Ops, blindedBase curve.Point, skJ curve.Scalar, memberIndex int) UnblindingShare {
	return UnblindingShare{Mu: ops.ScalarMul(skJ, blindedBase), MemberIndex: memberIndex}
}

// CombineUnblindingShares requires exactly n distinct, in-range shares (the
// n-of-n invariant): duplicate or out-of-range member indices, or a wrong
// count, are rejected.
func CombineUnblindingShares(ops *curve.Ops, shares []UnblindingShare, n int) (curve.Point, error) {
	if len(shares) != n {
		return nil, fmt.Errorf("decryption: expected %d unblinding shares, got %d", n, len(shares))
	}
	seen := make(map[int]bool, n)
	for _, s := range shares {
		if s.MemberIndex < 0 || s.MemberIndex >= n {
			return nil, fmt.Errorf("decryption: unblinding share member index %d out of range [0,%d)", s.MemberIndex, n)
		}
		if seen[s.MemberIndex] {
			return nil, fmt.Errorf("decryption: duplicate unblinding share for member %d", s.MemberIndex)
		}
		seen[s.MemberIndex] = true
	}

	mu := ops.Identity()
	for _, s := range shares {
		mu = ops.AddPoints(mu, s.Mu)
	}
	return mu, nil
}

// RecoverHoleCard computes m·G from the combined blinding, the combined
// unblinding, and the player's own mask, then maps it back to 0..51 via
// table. A failure to find m·G in the table is a decryption error per
// spec.md §4.5.
func RecoverHoleCard(ops *curve.Ops, table *curve.CardTable, combined CombinedBlinding, mu curve.Point, skU curve.Scalar) (int, error) {
	playerMask := ops.ScalarMul(skU, combined.PlayerUnblindingHelper)
	mg := ops.SubPoints(ops.SubPoints(combined.BlindedMessageWithPlayerKey, mu), playerMask)
	v, ok := table.Lookup(ops, mg)
	if !ok {
		return 0, fmt.Errorf("decryption: recovered point is not a valid card encoding")
	}
	return v, nil
}

// CommunityShare is a shuffler's contribution to the simpler community-card
// variant of spec.md §4.5: blinded_base·sk_j with a Chaum-Pedersen proof
// against G and the shuffler's own key pk_j (no player key involved).
type CommunityShare struct {
	Share curve.Point
	Proof chaumpedersen.Proof
}

// MakeCommunityShare computes shuffler j's share of a community card
// ciphertext ct, proving it used sk_j relative to G and pk_j.
func MakeCommunityShare(ops *curve.Ops, ct elgamal.Ciphertext, skJ curve.Scalar, pkJ curve.Point) CommunityShare {
	share := ops.ScalarMul(skJ, ct.C1)
	st := chaumpedersen.Statement{G: ops.Generator(), H: ct.C1, Alpha: pkJ, Beta: share}
	proof := chaumpedersen.Prove(ops, st, skJ)
	return CommunityShare{Share: share, Proof: proof}
}

// VerifyCommunityShare checks a community share's Chaum-Pedersen proof
// against the shuffler's known public key pkJ.
func VerifyCommunityShare(ops *curve.Ops, ct elgamal.Ciphertext, pkJ curve.Point, s CommunityShare) error {
	st := chaumpedersen.Statement{G: ops.Generator(), H: ct.C1, Alpha: pkJ, Beta: s.Share}
	return chaumpedersen.Verify(ops, st, s.Proof)
}

// RecoverCommunityCard combines n verified community shares and maps the
// resulting m·G back to a card index. Verification of each share is the
// caller's responsibility (mirroring the n-of-n "no partial recovery"
// invariant: any missing or invalid share must prevent this call).
func RecoverCommunityCard(ops *curve.Ops, table *curve.CardTable, ct elgamal.Ciphertext, shares []CommunityShare, n int) (int, error) {
	if len(shares) != n {
		return 0, fmt.Errorf("decryption: expected %d community shares, got %d", n, len(shares))
	}
	sum := ops.Identity()
	for _, s := range shares {
		sum = ops.AddPoints(sum, s.Share)
	}
	mg := ops.SubPoints(ct.C2, sum)
	v, ok := table.Lookup(ops, mg)
	if !ok {
		return 0, fmt.Errorf("decryption: recovered community point is not a valid card encoding")
	}
	return v, nil
}

// Package runtime drives a single shuffler's participation in a hand:
// watching the table's ledger feed and submitting its own shuffle,
// blinding, unblinding, and community-share steps as soon as they become
// its turn, mirroring domain/deck/shuffle.go's sequential per-peer turn
// loop generalized from one broadcast round into the full multi-phase
// protocol, and network/peer.go's select-on-channel cancellation idiom
// generalized from a single content/error pair into a typed ledger feed.
package runtime

import (
	"crypto/ed25519"
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

// Identity is a shuffler's credential: one ed25519 seed serving both as
// its envelope signing key and, via ScalarFromEd25519Seed, as the
// discrete-log secret behind its unblinding shares and the one
// decryption.MakeCommunityShare proves against — the roster's PKj must
// equal the envelope actor's key, so the two roles cannot use
// independently drawn keys the way this package's ephemeral blinding
// deltas do.
type Identity struct {
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
	Key  curve.Point
	Sk   curve.Scalar
}

// NewIdentity derives a shuffler identity from a 32-byte ed25519 seed.
func NewIdentity(ops *curve.Ops, seed []byte) (Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return Identity{}, fmt.Errorf("runtime: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	key, err := ops.DecodePoint(pub)
	if err != nil {
		return Identity{}, fmt.Errorf("runtime: decode identity point: %w", err)
	}
	sk := curve.ScalarFromEd25519Seed(ops, seed)
	if !ops.EqualPoints(ops.ScalarBaseMul(sk), key) {
		return Identity{}, fmt.Errorf("runtime: derived scalar does not match identity point")
	}
	return Identity{Priv: priv, Pub: pub, Key: key, Sk: sk}, nil
}

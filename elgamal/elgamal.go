// Package elgamal implements the ciphertext type and additive
// re-encryption operation of spec.md §4.1. Grounded on deck/deck.go and
// domain/deck/deck.go's per-card encryption loop, adapted from a
// networked all-to-all protocol into pure functions over curve.Ops.
package elgamal

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

// Ciphertext is (c1, c2) over the curve group.
type Ciphertext struct {
	C1 curve.Point
	C2 curve.Point
}

// EncryptScalar computes (r·G, r·pk + m·G), mapping plaintext message m
// to the group element m·G.
func EncryptScalar(ops *curve.Ops, m int64, r curve.Scalar, pk curve.Point) Ciphertext {
	mg := ops.ScalarBaseMul(ops.ScalarFromInt64(m))
	c1 := ops.ScalarBaseMul(r)
	c2 := ops.AddPoints(ops.ScalarMul(r, pk), mg)
	return Ciphertext{C1: c1, C2: c2}
}

// AddEncryptionLayer is the only re-randomization used by shufflers: a
// strictly additive layer so each shuffler's contribution is independent.
// (c1,c2) ↦ (c1 + r'·G, c2 + r'·pk). The plaintext point m·G is preserved;
// only randomness accumulates (spec.md §4.1 invariant).
func AddEncryptionLayer(ops *curve.Ops, c Ciphertext, rPrime curve.Scalar, pk curve.Point) Ciphertext {
	return Ciphertext{
		C1: ops.AddPoints(c.C1, ops.ScalarBaseMul(rPrime)),
		C2: ops.AddPoints(c.C2, ops.ScalarMul(rPrime, pk)),
	}
}

// Clone returns a defensive copy of c suitable for independent mutation.
func (c Ciphertext) Clone() Ciphertext {
	return Ciphertext{C1: c.C1.Clone(), C2: c.C2.Clone()}
}

// Equal reports whether two ciphertexts encode the same (c1,c2) pair.
func (c Ciphertext) Equal(other Ciphertext) bool {
	return c.C1.Equal(other.C1) && c.C2.Equal(other.C2)
}

// Encode returns the canonical encoding of a ciphertext, length-prefixed
// components concatenated, used by the deck-chain hash and transcripts.
func Encode(ops *curve.Ops, c Ciphertext) []byte {
	c1 := ops.EncodePoint(c.C1)
	c2 := ops.EncodePoint(c.C2)
	out := make([]byte, 0, len(c1)+len(c2)+8)
	out = appendPrefixed(out, c1)
	out = appendPrefixed(out, c2)
	return out
}

func appendPrefixed(dst []byte, p []byte) []byte {
	var lenBuf [4]byte
	n := uint32(len(p))
	lenBuf[0] = byte(n >> 24)
	lenBuf[1] = byte(n >> 16)
	lenBuf[2] = byte(n >> 8)
	lenBuf[3] = byte(n)
	dst = append(dst, lenBuf[:]...)
	return append(dst, p...)
}

// Decode parses bytes previously produced by Encode.
func Decode(ops *curve.Ops, b []byte) (Ciphertext, error) {
	c1b, rest, err := readPrefixed(b)
	if err != nil {
		return Ciphertext{}, err
	}
	c2b, _, err := readPrefixed(rest)
	if err != nil {
		return Ciphertext{}, err
	}
	c1, err := ops.DecodePoint(c1b)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("elgamal: decode c1: %w", err)
	}
	c2, err := ops.DecodePoint(c2b)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("elgamal: decode c2: %w", err)
	}
	return Ciphertext{C1: c1, C2: c2}, nil
}

func readPrefixed(b []byte) (payload []byte, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("elgamal: truncated length prefix")
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, fmt.Errorf("elgamal: truncated payload")
	}
	return b[:n], b[n:], nil
}

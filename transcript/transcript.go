// Package transcript implements the canonical, domain-separated byte
// builder described in spec.md §6, plus the Poseidon hash that every
// deterministic witness and Fiat-Shamir challenge in this module is
// derived from.
//
// The Poseidon instance is BN254-scalar-field Poseidon2
// (github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2), the
// production hash this module's teacher pack uses for exactly this
// purpose (see parsdao-pars/zk/poseidon.go). Rate/capacity/rounds/S-box
// are gnark-crypto's fixed BN254 Poseidon2 parameters; this package does
// not re-derive a custom arithmetization (see DESIGN.md).
package transcript

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// Marshaler is satisfied by kyber Points and Scalars.
type Marshaler interface {
	MarshalBinary() ([]byte, error)
}

// Builder accumulates canonical transcript bytes under a single
// domain-separation tag, per spec.md §6's typed-token encoding:
// u8/u16/u32/u64/i64, fixed-length bytes, length-prefixed bytes, and
// canonical (compressed) group points.
type Builder struct {
	buf []byte
}

// New starts a transcript with the given stable domain tag absorbed
// first (e.g. "CP-DLEQ-v1", "state/chain").
func New(domainTag string) *Builder {
	b := &Builder{buf: make([]byte, 0, 256)}
	b.AppendBytes([]byte(domainTag))
	return b
}

// AppendU8 appends a single byte token.
func (b *Builder) AppendU8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

// AppendU16 appends a big-endian u16 token.
func (b *Builder) AppendU16(v uint16) *Builder {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// AppendU32 appends a big-endian u32 token.
func (b *Builder) AppendU32(v uint32) *Builder {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// AppendU64 appends a big-endian u64 token.
func (b *Builder) AppendU64(v uint64) *Builder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// AppendI64 appends a big-endian i64 token.
func (b *Builder) AppendI64(v int64) *Builder {
	return b.AppendU64(uint64(v))
}

// AppendBytes appends a fixed-length byte slice with no length prefix.
func (b *Builder) AppendBytes(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// AppendPrefixedBytes appends a length-prefixed byte slice.
func (b *Builder) AppendPrefixedBytes(p []byte) *Builder {
	b.AppendU32(uint32(len(p)))
	return b.AppendBytes(p)
}

// AppendString is a convenience wrapper for AppendPrefixedBytes.
func (b *Builder) AppendString(s string) *Builder {
	return b.AppendPrefixedBytes([]byte(s))
}

// AppendPoint appends the canonical compressed encoding of a group
// element, length-prefixed so variable-size curve encodings stay
// unambiguous in the transcript.
func (b *Builder) AppendPoint(p Marshaler) *Builder {
	enc, err := p.MarshalBinary()
	if err != nil {
		panic("transcript: marshal point: " + err.Error())
	}
	return b.AppendPrefixedBytes(enc)
}

// AppendPoints appends a sequence of points in order.
func (b *Builder) AppendPoints(pts ...Marshaler) *Builder {
	for _, p := range pts {
		b.AppendPoint(p)
	}
	return b
}

// Bytes returns a defensive copy of the accumulated transcript bytes.
// Re-serializing the same sequence of Append calls yields byte-identical
// output (spec.md §8 invariant 11).
func (b *Builder) Bytes() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// chunk32 splits buf into 32-byte field-element chunks, zero-padding the
// final chunk. An empty input pads to a single zero chunk, matching the
// "empty input pads to one zero" edge case spec.md §4.3 specifies for
// Pedersen folding inputs and which we apply uniformly to hashing too.
func chunk32(buf []byte) [][32]byte {
	if len(buf) == 0 {
		return [][32]byte{{}}
	}
	n := (len(buf) + 31) / 32
	out := make([][32]byte, n)
	for i := 0; i < n; i++ {
		start := i * 32
		end := start + 32
		if end > len(buf) {
			end = len(buf)
		}
		copy(out[i][:], buf[start:end])
	}
	return out
}

// Hash computes the Poseidon2 digest of the transcript accumulated so
// far, absorbing it as a sequence of BN254 scalar-field elements via a
// Merkle-Damgard sponge construction.
func (b *Builder) Hash() [32]byte {
	return Hash(b.buf)
}

// Hash computes the Poseidon2 digest of an arbitrary byte string.
func Hash(data []byte) [32]byte {
	hasher := poseidon2.NewMerkleDamgardHasher()
	for _, chunk := range chunk32(data) {
		var e fr.Element
		e.SetBytes(chunk[:])
		eb := e.Bytes()
		hasher.Write(eb[:])
	}
	sum := hasher.Sum(nil)
	var out [32]byte
	copy(out[:], sum)
	return out
}

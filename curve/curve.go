// Package curve abstracts the elliptic-curve group every cryptographic
// primitive in this module is parametric in, per the CurveOps capability
// interface described in the design notes: rather than threading curve,
// base-field and scalar-field type parameters through every primitive, a
// single Ops value wraps one instantiated kyber group and is passed down
// explicitly wherever curve arithmetic is needed.
package curve

import (
	"crypto/sha512"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
	"go.dedis.ch/kyber/v4/util/random"
)

// Scalar is an element of the curve's scalar field Fs.
type Scalar = kyber.Scalar

// Point is an element of the curve group C.
type Point = kyber.Point

// Ops is the capability object every primitive in this module receives
// instead of a generic curve parameter: scalar arithmetic, group addition,
// scalar multiplication, and canonical serialize/deserialize.
type Ops struct {
	suite suites.Suite
}

// New instantiates Ops against the production curve. Ed25519 is the
// group the teacher module already depends on (go.dedis.ch/kyber/v4);
// every primitive here is written against Ops, not against Ed25519
// directly, so a different curve can be swapped in at composition time.
func New() *Ops {
	return &Ops{suite: suites.MustFind("Ed25519")}
}

// Generator returns the group's distinguished base point G.
func (o *Ops) Generator() Point {
	return o.suite.Point().Base()
}

// Identity returns the group's neutral element.
func (o *Ops) Identity() Point {
	return o.suite.Point().Null()
}

// RandomScalar draws a uniformly random scalar from the process's
// default entropy source, exactly as common/zka.go's random.New() call
// does for its interactive proofs.
func (o *Ops) RandomScalar() Scalar {
	return o.suite.Scalar().Pick(random.New())
}

// RandomScalarFrom draws a scalar using an explicit kyber stream, for
// callers that already manage one (e.g. DeterministicStream below).
func (o *Ops) RandomScalarFrom(stream kyber.XOF) Scalar {
	return o.suite.Scalar().Pick(stream)
}

// DeterministicStream derives a seeded kyber XOF stream from an
// arbitrary seed. Design notes §9 call for a seeded PRNG for every
// blinding factor inside a hand so tests can replay it deterministically.
// No package in this module calls it: rsshuffle derives its bit matrix
// from Poseidon transcript hashes of its seed instead.
func (o *Ops) DeterministicStream(seed []byte) kyber.XOF {
	return o.suite.XOF(seed)
}

// ScalarFromBytes reduces an arbitrary byte string (typically a Poseidon
// digest) into a scalar mod the group order. This is the "map Poseidon
// output into Fs" step used by every deterministic witness/challenge in
// this module (Chaum-Pedersen witness, Fiat-Shamir challenges, folding
// challenges).
func (o *Ops) ScalarFromBytes(b []byte) Scalar {
	return o.suite.Scalar().SetBytes(b)
}

// ScalarFromInt64 builds a small scalar constant (used for power-challenge
// vectors [x^i] and zero/one padding).
func (o *Ops) ScalarFromInt64(v int64) Scalar {
	return o.suite.Scalar().SetInt64(v)
}

// ScalarZero and ScalarOne return the additive and multiplicative
// identities of Fs.
func (o *Ops) ScalarZero() Scalar { return o.suite.Scalar().Zero() }
func (o *Ops) ScalarOne() Scalar  { return o.suite.Scalar().One() }

// Add, Sub, Mul, Inv, Neg are scalar-field arithmetic.
func (o *Ops) AddScalar(a, b Scalar) Scalar { return o.suite.Scalar().Add(a, b) }
func (o *Ops) SubScalar(a, b Scalar) Scalar { return o.suite.Scalar().Sub(a, b) }
func (o *Ops) MulScalar(a, b Scalar) Scalar { return o.suite.Scalar().Mul(a, b) }
func (o *Ops) InvScalar(a Scalar) Scalar    { return o.suite.Scalar().Inv(a) }
func (o *Ops) NegScalar(a Scalar) Scalar    { return o.suite.Scalar().Neg(a) }

// ScalarMul computes s·p in the group.
func (o *Ops) ScalarMul(s Scalar, p Point) Point {
	return o.suite.Point().Mul(s, p)
}

// ScalarBaseMul computes s·G.
func (o *Ops) ScalarBaseMul(s Scalar) Point {
	return o.suite.Point().Mul(s, nil)
}

// AddPoints and SubPoints are group addition/subtraction.
func (o *Ops) AddPoints(a, b Point) Point { return o.suite.Point().Add(a, b) }
func (o *Ops) SubPoints(a, b Point) Point { return o.suite.Point().Sub(a, b) }

// SumPoints adds a slice of points, returning the identity for an empty
// slice.
func (o *Ops) SumPoints(pts ...Point) Point {
	acc := o.Identity()
	for _, p := range pts {
		acc = o.AddPoints(acc, p)
	}
	return acc
}

// SumScalars adds a slice of scalars, returning zero for an empty slice.
func (o *Ops) SumScalars(ss ...Scalar) Scalar {
	acc := o.ScalarZero()
	for _, s := range ss {
		acc = o.AddScalar(acc, s)
	}
	return acc
}

// EqualPoints and EqualScalars delegate to the group's constant-ish
// Equal (kyber's Equal for Ed25519 compares canonical encodings).
func (o *Ops) EqualPoints(a, b Point) bool   { return a.Equal(b) }
func (o *Ops) EqualScalars(a, b Scalar) bool { return a.Equal(b) }

// EncodePoint returns the canonical compressed encoding of p.
func (o *Ops) EncodePoint(p Point) []byte {
	enc, err := p.MarshalBinary()
	if err != nil {
		// kyber's Ed25519 point marshaling never fails for a valid point;
		// a failure here means p was never produced by this Ops.
		panic(fmt.Sprintf("curve: marshal point: %v", err))
	}
	return enc
}

// DecodePoint parses a canonical compressed point.
func (o *Ops) DecodePoint(b []byte) (Point, error) {
	p := o.suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("curve: decode point: %w", err)
	}
	return p, nil
}

// EncodeScalar returns the canonical encoding of s.
func (o *Ops) EncodeScalar(s Scalar) []byte {
	enc, err := s.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("curve: marshal scalar: %v", err))
	}
	return enc
}

// DecodeScalar parses a canonical scalar encoding.
func (o *Ops) DecodeScalar(b []byte) (Scalar, error) {
	s := o.suite.Scalar()
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("curve: decode scalar: %w", err)
	}
	return s, nil
}

// ScalarFromEd25519Seed derives the clamped private scalar an ed25519
// keypair built from seed (ed25519.NewKeyFromSeed's 32-byte seed) signs
// with, following RFC 8032 §5.1.5's h = SHA-512(seed), clear the low 3
// bits of h[0], clear the high bit and set bit 6 of h[31]. A party that
// needs one identity key to serve as both its ed25519 signing key and
// its ElGamal secret scalar (G^sk = the same public point both roles
// publish) derives sk this way instead of drawing the two independently.
func ScalarFromEd25519Seed(o *Ops, seed []byte) Scalar {
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return o.ScalarFromBytes(h[:32])
}

// CanonicalKey returns the byte-stable, comparable map key for a point,
// used throughout roster/ledger so entities are identified by key
// material rather than an id alias.
func CanonicalKey(o *Ops, p Point) string {
	return string(o.EncodePoint(p))
}

// CardTable is the baby-step table context object described in the
// design notes: rather than a hidden process-global cache of i·G for
// i=0..deckSize, BuildCardTable constructs it once per curve instance and
// callers look decoded points up through it.
type CardTable struct {
	byEncoding map[string]int
	deckSize   int
}

// BuildCardTable constructs the i·G table for i=0..deckSize (inclusive),
// the precomputed table spec.md §4.5 calls the "baby-step" table used to
// map a recovered m·G back to its integer card value.
func BuildCardTable(o *Ops, deckSize int) *CardTable {
	t := &CardTable{byEncoding: make(map[string]int, deckSize+1), deckSize: deckSize}
	for i := 0; i <= deckSize; i++ {
		p := o.ScalarBaseMul(o.ScalarFromInt64(int64(i)))
		t.byEncoding[string(o.EncodePoint(p))] = i
	}
	return t
}

// Lookup maps m·G back to m. ok is false if the point is not in the table
// (per spec.md §4.5, a decryption error).
func (t *CardTable) Lookup(o *Ops, p Point) (int, bool) {
	v, ok := t.byEncoding[string(o.EncodePoint(p))]
	return v, ok
}

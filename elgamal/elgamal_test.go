package elgamal

import (
	"testing"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

func TestAddEncryptionLayerPreservesPlaintext(t *testing.T) {
	ops := curve.New()
	sk := ops.RandomScalar()
	pk := ops.ScalarBaseMul(sk)

	r := ops.RandomScalar()
	ct := EncryptScalar(ops, 42, r, pk)

	rPrime := ops.RandomScalar()
	ct2 := AddEncryptionLayer(ops, ct, rPrime, pk)

	// decrypt both directly using the secret key and check the plaintext
	// point m*G is unchanged; only randomness accumulated.
	decrypt := func(c Ciphertext) curve.Point {
		shared := ops.ScalarMul(sk, c.C1)
		return ops.SubPoints(c.C2, shared)
	}

	mg1 := decrypt(ct)
	mg2 := decrypt(ct2)
	if !ops.EqualPoints(mg1, mg2) {
		t.Fatal("expected plaintext point to be preserved across re-encryption")
	}

	expected := ops.ScalarBaseMul(ops.ScalarFromInt64(42))
	if !ops.EqualPoints(mg1, expected) {
		t.Fatal("expected recovered plaintext point to equal 42*G")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ops := curve.New()
	pk := ops.ScalarBaseMul(ops.RandomScalar())
	ct := EncryptScalar(ops, 7, ops.RandomScalar(), pk)

	enc := Encode(ops, ct)
	dec, err := Decode(ops, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ct.Equal(dec) {
		t.Fatal("expected round-tripped ciphertext to equal original")
	}
}

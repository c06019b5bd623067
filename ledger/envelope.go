// Package ledger implements the hash-chained, envelope/signature-verified
// append-only log of spec.md §3/§4.7/§7: every accepted or rejected
// message produces exactly one new snapshot, chained by a Poseidon
// "state/chain" hash.
//
// Grounded on ledger/blockchain.go's mutex-guarded, append-only
// Block{Index,PrevHash,Hash,Action,Votes}/GetLatest/Verify shape and
// consensus/types.go's ed25519 Action.Signature, generalized from a
// single JSON-marshaled interface{} action and a SHA-256 hash into a
// typed Envelope and a Poseidon domain-tagged hash chain.
package ledger

import (
	"crypto/ed25519"
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/transcript"
)

// ActorKind distinguishes the two kinds of envelope submitters.
type ActorKind uint8

const (
	ActorPlayer ActorKind = iota
	ActorShuffler
)

// Actor identifies an envelope's submitter, per spec.md §3's
// `Player{seat,id} | Shuffler{id,key}` union.
type Actor struct {
	Kind       ActorKind
	Seat       uint8  // valid when Kind == ActorPlayer
	PlayerID   uint64 // valid when Kind == ActorPlayer
	ShufflerID int64  // valid when Kind == ActorShuffler
	Key        curve.Point
}

// CanonicalKey returns the byte-stable identity key used for nonce
// tracking and roster lookups: the actor's own curve key, the same
// CanonicalKey convention used by roster and curve.
func (a Actor) CanonicalKey(ops *curve.Ops) string {
	return curve.CanonicalKey(ops, a.Key)
}

// MessageKind tags which variant of the envelope's message union is
// carried in Payload (spec.md §6's wire message one_of).
type MessageKind uint8

const (
	MsgShuffle MessageKind = iota
	MsgBlindingContribution
	MsgPartialUnblinding
	MsgCommunityDecryption
	MsgPlayerAction
	MsgShowdown
)

// Envelope is the signed, nonce-bearing carrier of a domain message
// (spec.md §3). Payload is the canonical encoding of the phase-specific
// message; the hand package owns decoding it based on Kind.
type Envelope struct {
	HandID    uint64
	GameID    uint64
	Actor     Actor
	Nonce     uint64
	PublicKey ed25519.PublicKey
	Kind      MessageKind
	Payload   []byte

	Signature       []byte
	TranscriptBytes []byte
}

func appendActor(tb *transcript.Builder, a Actor) {
	tb.AppendU8(uint8(a.Kind))
	switch a.Kind {
	case ActorPlayer:
		tb.AppendU8(a.Seat)
		tb.AppendU64(a.PlayerID)
	case ActorShuffler:
		tb.AppendI64(a.ShufflerID)
	}
}

// CanonicalBytes builds the canonical transcript of an envelope's
// preceding fields, per spec.md §6's `transcript: canonical encoding of
// all preceding fields`.
func CanonicalBytes(env *Envelope) []byte {
	tb := transcript.New("")
	tb.AppendU64(env.HandID)
	tb.AppendU64(env.GameID)
	appendActor(tb, env.Actor)
	tb.AppendU64(env.Nonce)
	tb.AppendBytes([]byte(env.PublicKey))
	tb.AppendU8(uint8(env.Kind))
	tb.AppendPrefixedBytes(env.Payload)
	return tb.Bytes()
}

// Sign populates TranscriptBytes and Signature for env using priv, whose
// Public() must equal env.PublicKey (the envelope's actor identity
// doubles as its ed25519 signing key, per consensus/types.go's ed25519
// identity keys generalized to also serve as the actor's curve key).
func Sign(env *Envelope, priv ed25519.PrivateKey) {
	env.TranscriptBytes = CanonicalBytes(env)
	env.Signature = ed25519.Sign(priv, env.TranscriptBytes)
}

// VerifySignature recomputes the canonical transcript and checks it
// matches env.TranscriptBytes, then checks the signature against
// env.PublicKey (spec.md §4.7 steps 1-2, signature half).
func VerifySignature(env *Envelope) error {
	expected := CanonicalBytes(env)
	if len(expected) != len(env.TranscriptBytes) || string(expected) != string(env.TranscriptBytes) {
		return fmt.Errorf("ledger: transcript bytes do not recompute to canonical form")
	}
	if len(env.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("ledger: malformed public key")
	}
	if !ed25519.Verify(env.PublicKey, env.TranscriptBytes, env.Signature) {
		return fmt.Errorf("ledger: signature verification failed")
	}
	return nil
}

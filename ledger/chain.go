package ledger

import (
	"github.com/luca-patrignani/onchain-holdem/transcript"
)

// Reason is the failure-reason taxonomy of spec.md §7 (semantics, not
// type names): every rejected envelope except a nonce conflict produces
// a failure snapshot tagged with one of these.
type Reason string

const (
	ReasonUnauthorized  Reason = "unauthorized"
	ReasonBadSignature  Reason = "bad_signature"
	ReasonPhaseMismatch Reason = "phase_mismatch"
	ReasonShape         Reason = "shape"
	ReasonCrypto        Reason = "crypto"
	ReasonRule          Reason = "rule"
	ReasonMissingShare  Reason = "missing_share"
)

// MessageHash computes Poseidon(domain_tag("msg") || canonical_envelope_bytes)
// per spec.md §4.6.
func MessageHash(env *Envelope) [32]byte {
	tb := transcript.New("msg")
	tb.AppendBytes(CanonicalBytes(env))
	return tb.Hash()
}

// ChainHash computes Poseidon("state/chain" || prev_state_hash || new_message_hash),
// the per-accepted-envelope state transition of spec.md §4.6.
func ChainHash(prevStateHash, newMessageHash [32]byte) [32]byte {
	tb := transcript.New("state/chain")
	tb.AppendBytes(prevStateHash[:])
	tb.AppendBytes(newMessageHash[:])
	return tb.Hash()
}

// FailureHash computes state_hash = Poseidon(prev || Poseidon("ledger/state/failure" || reason_bytes)),
// the failure-snapshot chaining rule of spec.md §4.6.
func FailureHash(prevStateHash [32]byte, reason Reason) [32]byte {
	inner := transcript.New("ledger/state/failure")
	inner.AppendString(string(reason))
	innerHash := inner.Hash()

	outer := transcript.New("")
	outer.AppendBytes(prevStateHash[:])
	outer.AppendBytes(innerHash[:])
	return outer.Hash()
}

package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

// ErrNonceConflict is returned for a stale or future nonce. Per spec.md
// §7's propagation policy, nonce conflicts are NOT recorded as failure
// snapshots — callers must check for this sentinel and drop the envelope
// silently instead of advancing the chain.
var ErrNonceConflict = errors.New("ledger: nonce conflict")

// NonceState tracks, per actor, the last committed nonce and any
// in-flight reservation. Guarded by a read-write lock per spec.md §5:
// "writers acquire exclusive access to check-then-reserve in one
// critical section."
type NonceState struct {
	mu       sync.RWMutex
	lastSeen map[string]int64
	reserved map[string]bool
}

// NewNonceState returns an empty nonce tracker; every actor's initial
// last-seen nonce is -1, so the first accepted nonce is 0 (spec.md §9
// open-question resolution).
func NewNonceState() *NonceState {
	return &NonceState{
		lastSeen: make(map[string]int64),
		reserved: make(map[string]bool),
	}
}

// Reserve checks nonce == last_seen+1 and that no reservation is already
// outstanding for actorKey, then marks it reserved. The reservation is
// not committed until Commit is called; a failed transition calls
// Release instead so the nonce is not consumed (spec.md §4.7 step 4).
func (n *NonceState) Reserve(actorKey string, nonce uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.reserved[actorKey] {
		return fmt.Errorf("%w: actor %s has an outstanding reservation", ErrNonceConflict, actorKey)
	}
	last, ok := n.lastSeen[actorKey]
	if !ok {
		last = -1
	}
	if int64(nonce) != last+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceConflict, last+1, nonce)
	}
	n.reserved[actorKey] = true
	return nil
}

// Commit finalizes a reservation, advancing last_seen to nonce.
func (n *NonceState) Commit(actorKey string, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastSeen[actorKey] = int64(nonce)
	delete(n.reserved, actorKey)
}

// Release drops a reservation without committing it, e.g. when a
// phase/shape/crypto/rule check fails after the nonce was reserved.
func (n *NonceState) Release(actorKey string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.reserved, actorKey)
}

// KnownActor is what the verifier needs from the caller's roster lookup
// to perform spec.md §4.7 step 3 (actor recognition): the actor's own
// recorded public key, resolved by the hand package from its shuffler or
// player roster.
type KnownActor struct {
	Found bool
	Key   curve.Point
}

// Verifier performs the generic, phase-independent checks of spec.md
// §4.7 steps 1-4. Step 5 (phase-appropriate shape checks) is necessarily
// phase-specific and is left to the hand package's dispatch table:
// CheckEnvelope reserves the nonce, and the hand package calls Commit or
// Release once it has applied or rejected the transition.
type Verifier struct {
	ops    *curve.Ops
	nonces *NonceState
}

// NewVerifier builds a Verifier backed by a fresh NonceState.
func NewVerifier(ops *curve.Ops) *Verifier {
	return &Verifier{ops: ops, nonces: NewNonceState()}
}

// Nonces exposes the underlying NonceState so the hand package can
// Commit/Release the nonce CheckEnvelope reserved around its own
// phase-specific application.
func (v *Verifier) Nonces() *NonceState { return v.nonces }

// CheckEnvelope performs spec.md §4.7 steps 1-4: hand/game id match,
// signature verification, actor recognition, and nonce reservation.
// Returns ReasonUnauthorized, ReasonBadSignature, or ErrNonceConflict on
// failure; a nil error means the nonce has been reserved and the caller
// must Commit or Release it.
func (v *Verifier) CheckEnvelope(env *Envelope, expectedHandID, expectedGameID uint64, known KnownActor) (Reason, error) {
	if env.HandID != expectedHandID || env.GameID != expectedGameID {
		return ReasonUnauthorized, fmt.Errorf("ledger: hand_id/game_id mismatch")
	}

	if err := VerifySignature(env); err != nil {
		return ReasonBadSignature, err
	}

	if !known.Found {
		return ReasonUnauthorized, fmt.Errorf("ledger: actor not recognized")
	}
	if !v.ops.EqualPoints(known.Key, env.Actor.Key) {
		return ReasonUnauthorized, fmt.Errorf("ledger: actor key does not match roster")
	}
	if string(env.PublicKey) != curve.CanonicalKey(v.ops, env.Actor.Key) {
		return ReasonUnauthorized, fmt.Errorf("ledger: envelope public_key does not match actor key")
	}

	actorKey := env.Actor.CanonicalKey(v.ops)
	if err := v.nonces.Reserve(actorKey, env.Nonce); err != nil {
		return "", err // nonce conflicts are not assigned a Reason; dropped, not recorded.
	}

	return "", nil
}

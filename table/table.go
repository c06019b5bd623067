// Package table wires one hand's state machine to the ledger store: it
// is the single mutex-guarded owner of the current snapshot, applying
// envelopes through hand.Process and appending the resulting record to
// the store for subscribers. Grounded on ledger/blockchain.go's
// mutex-guarded append path, generalized from a raw hash-chained log
// into the typed hand.State machine sitting on top of it.
package table

import (
	"fmt"
	"sync"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/hand"
	"github.com/luca-patrignani/onchain-holdem/ledger"
)

// Table drives a single (game_id, hand_id)'s hand state machine.
type Table struct {
	ops      *curve.Ops
	store    *ledger.Store
	verifier *ledger.Verifier
	engines  hand.Engines
	key      ledger.HandKey

	mu    sync.Mutex
	state *hand.State
}

// New creates a table for initial, registering its chain with store
// under initial's (GameID, HandID).
func New(ops *curve.Ops, store *ledger.Store, verifier *ledger.Verifier, engines hand.Engines, initial *hand.State) *Table {
	key := ledger.HandKey{GameID: initial.GameID, HandID: initial.HandID}
	// initial is the chain's genesis record, so the first processed
	// envelope's record (sequence initial.Sequence+1) links onto it.
	_ = store.Append(key, ledger.Record{
		Sequence:  initial.Sequence,
		PrevHash:  initial.PreviousHash,
		StateHash: initial.StateHash,
		Snapshot:  initial,
	})
	return &Table{
		ops:      ops,
		store:    store,
		verifier: verifier,
		engines:  engines,
		key:      key,
		state:    initial,
	}
}

// State returns the current snapshot. Callers must treat it as
// read-only: it is shared with whatever last called Submit.
func (t *Table) State() *hand.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Submit runs env/payload through hand.Process against the table's
// current snapshot, appends the resulting record (unless it was
// dropped for a nonce conflict), and advances the table's snapshot.
func (t *Table) Submit(env *ledger.Envelope, payload any) (hand.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	outcome, err := hand.Process(t.ops, t.verifier, t.engines, t.state, env, payload)
	if err != nil {
		return outcome, fmt.Errorf("table: process envelope: %w", err)
	}
	if outcome.Dropped {
		return outcome, nil
	}
	if err := t.store.Append(t.key, outcome.Record); err != nil {
		return outcome, fmt.Errorf("table: append record: %w", err)
	}
	t.state = outcome.Next
	return outcome, nil
}

// Subscribe registers a feed of this table's finalized records.
func (t *Table) Subscribe(capacity int) *ledger.Subscription {
	return t.store.Subscribe(t.key, capacity)
}

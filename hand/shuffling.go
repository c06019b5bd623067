package hand

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
	"github.com/luca-patrignani/onchain-holdem/ledger"
	"github.com/luca-patrignani/onchain-holdem/shuffle"
)

// ShuffleLevels is the RS-shuffle radix level count used for every hand's
// deck of 52, derived once: 2^levels must be >= 52, so 6 levels (64
// buckets) is the smallest fit.
const ShuffleLevels = 6

func decksEqual(a, b []elgamal.Ciphertext) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// applyShuffle is the Shuffling-phase, MsgShuffle, ActorShuffler
// transition of spec.md §4.6: each shuffler in turn takes the previous
// deck and publishes a re-encrypted, permuted deck with its proof.
// Out-of-turn submissions are rejected without consuming deck state
// (spec.md §8 scenario S5).
func applyShuffle(ops *curve.Ops, state *State, env *ledger.Envelope, msg *shuffle.Message) (*State, ledger.Reason, error) {
	turnIdx := len(state.Shuffling.Steps)
	if turnIdx >= state.Shufflers.Len() {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: shuffling already complete")
	}
	expectedKey := state.Shufflers.ExpectedOrder[turnIdx]
	actorKey := env.Actor.CanonicalKey(ops)
	if actorKey != expectedKey {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: shuffler out of turn: expected %s, got %s", expectedKey, actorKey)
	}
	if msg.TurnIdx != turnIdx {
		return nil, ledger.ReasonShape, fmt.Errorf("hand: shuffle message turn_idx %d does not match expected %d", msg.TurnIdx, turnIdx)
	}

	var expectedDeckIn []elgamal.Ciphertext
	if turnIdx == 0 {
		expectedDeckIn = state.Shuffling.InitialDeck
	} else {
		expectedDeckIn = state.Shuffling.FinalDeck
	}
	if !decksEqual(msg.DeckIn, expectedDeckIn) {
		return nil, ledger.ReasonShape, fmt.Errorf("hand: shuffle message deck_in does not match the current deck")
	}

	if err := shuffle.Verify(ops, msg, state.Shufflers.AggregatedPK, ShuffleLevels); err != nil {
		return nil, ledger.ReasonCrypto, fmt.Errorf("hand: shuffle proof failed verification: %w", err)
	}

	next := state.Clone()
	next.Shuffling.Steps = append(next.Shuffling.Steps, ShuffleStep{ShufflerKey: actorKey, Message: msg})
	next.Shuffling.FinalDeck = msg.DeckOut

	if len(next.Shuffling.Steps) == next.Shufflers.Len() {
		next.Phase = PhaseDealing
		next.Dealing.Assignments = materializeAssignments(next.Shuffling.FinalDeck)
	}
	return next, "", nil
}

// materializeAssignments fixes each deck position's realized ciphertext
// once shuffling is complete; the RS-shuffle's permutation is already
// baked into deck's ordering, so a deal index's source is itself.
func materializeAssignments(deck []elgamal.Ciphertext) map[int]DealAssignment {
	out := make(map[int]DealAssignment, len(deck))
	for i, c := range deck {
		out[i] = DealAssignment{Ciphertext: c, SourceIndex: i}
	}
	return out
}

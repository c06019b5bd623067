package hand

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/ledger"
)

// freshBettingState builds the first active betting state once the
// Dealing → Preflop gate is satisfied: every active seat starts with its
// pre-seeded stack (State.Betting.Stacks, set at NewInitialState) fully
// uncommitted, acting order starts with the lowest-numbered active seat
// (the button position is not consulted).
func freshBettingState(state *State) *BettingState {
	seats := state.Players.ActiveSeats()
	stacks := make(map[int]uint64, len(seats))
	committed := make(map[int]uint64, len(seats))
	folded := make(map[int]bool, len(seats))
	allIn := make(map[int]bool, len(seats))
	acted := make(map[int]bool, len(seats))
	for _, seat := range seats {
		if state.Betting != nil {
			stacks[seat] = state.Betting.Stacks[seat]
		}
		committed[seat] = 0
		folded[seat] = false
		allIn[seat] = false
		acted[seat] = false
	}
	return &BettingState{
		Street:      0,
		ToAct:       seats[0],
		HighestBet:  0,
		Pots:        nil,
		Stacks:      stacks,
		Committed:   committed,
		Folded:      folded,
		AllIn:       allIn,
		ActiveSeats: seats,
		Acted:       acted,
	}
}

func phaseForStreet(street int) Phase {
	switch street {
	case 0:
		return PhasePreflop
	case 1:
		return PhaseFlop
	case 2:
		return PhaseTurn
	case 3:
		return PhaseRiver
	default:
		return PhaseShowdown
	}
}

// applyPlayerAction is the MsgPlayerAction, ActorPlayer transition
// accepted during Preflop/Flop/Turn/River: it is validated and applied by
// the injected BettingEngine, and a StreetEnd/HandEnd transition reported
// by the engine advances Phase, gated on the next street's community
// cards already being decoded.
func applyPlayerAction(ops *curve.Ops, engine BettingEngine, state *State, env *ledger.Envelope, m PlayerActionMsg) (*State, ledger.Reason, error) {
	if state.Betting == nil {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: betting has not started")
	}
	seat := int(env.Actor.Seat)
	if seat != state.Betting.ToAct {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: seat %d acted out of turn, expected seat %d", seat, state.Betting.ToAct)
	}

	legal, err := engine.LegalActions(state.Betting, seat)
	if err != nil {
		return nil, ledger.ReasonRule, fmt.Errorf("hand: compute legal actions: %w", err)
	}
	allowed := false
	for _, k := range legal.Kinds {
		if k == m.Action.Kind {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ledger.ReasonRule, fmt.Errorf("hand: action %v is not legal for seat %d", m.Action.Kind, seat)
	}

	next := state.Clone()
	transition, err := engine.Apply(next.Betting, seat, m.Action)
	if err != nil {
		return nil, ledger.ReasonRule, fmt.Errorf("hand: apply action: %w", err)
	}

	switch transition {
	case Continued:
		return next, "", nil
	case StreetEnd:
		nextPhase := phaseForStreet(next.Betting.Street)
		if !communityCardsReady(next, nextPhase) {
			return nil, ledger.ReasonMissingShare, fmt.Errorf("hand: community cards for %s are not yet decoded", nextPhase)
		}
		next.Phase = nextPhase
		return next, "", nil
	case HandEnd:
		// HandEnd is only reported when a fold leaves a single
		// uncalled player; that seat takes every pot without a
		// showdown.
		next.Phase = PhaseComplete
		next.Showdown.Winners = activeNonFolded(next.Betting)
		return next, "", nil
	default:
		return nil, ledger.ReasonRule, fmt.Errorf("hand: unknown betting transition %v", transition)
	}
}

func activeNonFolded(b *BettingState) []int {
	out := make([]int, 0, len(b.ActiveSeats))
	for _, seat := range b.ActiveSeats {
		if !b.Folded[seat] {
			out = append(out, seat)
		}
	}
	return out
}

package hand

import "github.com/luca-patrignani/onchain-holdem/roster"

func dealIndexForHole(plan *roster.CardPlan, seat, holeIndex int) (int, bool) {
	for i, a := range plan.Assignments {
		if a.Kind == roster.KindHole && a.Seat == seat && a.HoleIndex == holeIndex {
			return i, true
		}
	}
	return 0, false
}

func dealIndexForBoard(plan *roster.CardPlan, boardIndex int) (int, bool) {
	for i, a := range plan.Assignments {
		if a.Kind == roster.KindBoard && a.BoardIndex == boardIndex {
			return i, true
		}
	}
	return 0, false
}

// neededBoardIndices reports which board positions must be decoded
// before the hand may enter phase, per spec.md §4.6's progressive
// community-card reveal (flop reveals 0-2, turn reveals 3, river
// reveals 4).
func neededBoardIndices(phase Phase) []int {
	switch phase {
	case PhaseFlop:
		return []int{0, 1, 2}
	case PhaseTurn:
		return []int{3}
	case PhaseRiver:
		return []int{4}
	default:
		return nil
	}
}

// dealingGateSatisfied reports whether every active seat's both hole
// cards have a combined player ciphertext and a combined unblinding,
// the Dealing → Preflop gate of spec.md §8 scenario S6.
func dealingGateSatisfied(state *State) bool {
	for _, seat := range state.Players.ActiveSeats() {
		for holeIdx := 0; holeIdx < 2; holeIdx++ {
			key := HoleKey{Seat: seat, HoleIndex: holeIdx}
			if _, ok := state.Dealing.PlayerCiphertexts[key]; !ok {
				return false
			}
			if _, ok := state.Dealing.CombinedUnblindings[key]; !ok {
				return false
			}
		}
	}
	return true
}

// Package bettingref is a reference hand.BettingEngine: no-limit
// fold/check/call/bet/raise/all-in with side-pot computation. Grounded
// on domain/poker/rules.go's checkPokerLogic and domain/poker/game.go's
// applyAction/recalculatePots/advanceTurn, generalized from a single
// Session mutated in place into pure functions over hand.BettingState.
package bettingref

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/hand"
)

// Engine is the reference no-limit betting engine. MinBet is the
// smallest opening bet/raise-increment size (the "big blind" of the
// table).
type Engine struct {
	MinBet uint64
}

func callAmount(state *hand.BettingState, seat int) uint64 {
	committed := state.Committed[seat]
	if state.HighestBet <= committed {
		return 0
	}
	return state.HighestBet - committed
}

// LegalActions reports what seat may do, per domain/poker/rules.go's
// per-action fund/turn checks generalized into an enumerated set.
func (e Engine) LegalActions(state *hand.BettingState, seat int) (hand.LegalActions, error) {
	if state.Folded[seat] || state.AllIn[seat] {
		return hand.LegalActions{}, fmt.Errorf("bettingref: seat %d cannot act (folded or all-in)", seat)
	}
	stack := state.Stacks[seat]
	call := callAmount(state, seat)

	kinds := []hand.ActionKind{hand.ActionFold}
	if call == 0 {
		kinds = append(kinds, hand.ActionCheck)
	} else if call < stack {
		kinds = append(kinds, hand.ActionCall)
	}
	minRaise := e.MinBet
	if state.HighestBet > 0 {
		minRaise = state.HighestBet + e.MinBet
	}
	maxRaise := state.Committed[seat] + stack
	if maxRaise > call && stack > call {
		if state.HighestBet == 0 {
			kinds = append(kinds, hand.ActionBet)
		} else if maxRaise >= minRaise {
			kinds = append(kinds, hand.ActionRaise)
		}
	}
	if stack > 0 {
		kinds = append(kinds, hand.ActionAllIn)
	}

	return hand.LegalActions{
		Kinds:      kinds,
		CallAmount: call,
		MinRaise:   minRaise,
		MaxRaise:   maxRaise,
	}, nil
}

// Apply validates and applies action to state, mirroring
// domain/poker/game.go's applyAction, then recomputes pots and either
// keeps the action on the current street, closes it, or ends the hand.
func (e Engine) Apply(state *hand.BettingState, seat int, action hand.Action) (hand.Transition, error) {
	switch action.Kind {
	case hand.ActionFold:
		state.Folded[seat] = true

	case hand.ActionCheck:
		if callAmount(state, seat) != 0 {
			return 0, fmt.Errorf("bettingref: seat %d cannot check, must call, raise, or fold", seat)
		}
		state.Acted[seat] = true

	case hand.ActionCall:
		call := callAmount(state, seat)
		if call > state.Stacks[seat] {
			return 0, fmt.Errorf("bettingref: seat %d lacks funds to call", seat)
		}
		state.Stacks[seat] -= call
		state.Committed[seat] += call
		if state.Stacks[seat] == 0 {
			state.AllIn[seat] = true
		}
		state.Acted[seat] = true

	case hand.ActionBet:
		if state.HighestBet != 0 {
			return 0, fmt.Errorf("bettingref: seat %d cannot bet, a bet is already open", seat)
		}
		if err := e.commitTo(state, seat, action.Amount, e.MinBet); err != nil {
			return 0, err
		}
		state.HighestBet = action.Amount
		resetActedExcept(state, seat)

	case hand.ActionRaise:
		if state.HighestBet == 0 {
			return 0, fmt.Errorf("bettingref: seat %d must bet, not raise, when no bet is open", seat)
		}
		minTo := state.HighestBet + e.MinBet
		if err := e.commitTo(state, seat, action.Amount, minTo); err != nil {
			return 0, err
		}
		state.HighestBet = action.Amount
		resetActedExcept(state, seat)

	case hand.ActionAllIn:
		total := state.Committed[seat] + state.Stacks[seat]
		if total == 0 {
			return 0, fmt.Errorf("bettingref: seat %d has nothing left to push all-in", seat)
		}
		state.Committed[seat] = total
		state.Stacks[seat] = 0
		state.AllIn[seat] = true
		if total > state.HighestBet {
			state.HighestBet = total
			resetActedExcept(state, seat)
		} else {
			state.Acted[seat] = true
		}

	default:
		return 0, fmt.Errorf("bettingref: unknown action kind %v", action.Kind)
	}

	recalculatePots(state)

	if remaining := activeSeats(state); len(remaining) <= 1 {
		return hand.HandEnd, nil
	}

	if roundClosed(state) {
		state.Street++
		startNewStreet(state)
		return hand.StreetEnd, nil
	}

	state.ToAct = nextToAct(state, seat)
	return hand.Continued, nil
}

// commitTo raises/bets seat's total street commitment up to amount,
// requiring amount to meet the floor (min bet/raise, unless it is an
// all-in shove for less) and not exceed the seat's stack.
func (e Engine) commitTo(state *hand.BettingState, seat int, amount, floor uint64) error {
	ceiling := state.Committed[seat] + state.Stacks[seat]
	if amount > ceiling {
		return fmt.Errorf("bettingref: seat %d cannot commit %d, only has %d", seat, amount, ceiling)
	}
	if amount < floor && amount != ceiling {
		return fmt.Errorf("bettingref: seat %d must commit at least %d", seat, floor)
	}
	delta := amount - state.Committed[seat]
	state.Stacks[seat] -= delta
	state.Committed[seat] = amount
	if state.Stacks[seat] == 0 {
		state.AllIn[seat] = true
	}
	return nil
}

func resetActedExcept(state *hand.BettingState, seat int) {
	for _, s := range state.ActiveSeats {
		state.Acted[s] = s == seat
	}
}

func roundClosed(state *hand.BettingState) bool {
	for _, seat := range state.ActiveSeats {
		if state.Folded[seat] || state.AllIn[seat] {
			continue
		}
		if !state.Acted[seat] || state.Committed[seat] != state.HighestBet {
			return false
		}
	}
	return true
}

func startNewStreet(state *hand.BettingState) {
	state.HighestBet = 0
	for _, seat := range state.ActiveSeats {
		state.Committed[seat] = 0
		state.Acted[seat] = state.Folded[seat] || state.AllIn[seat]
	}
	state.ToAct = firstToAct(state)
}

func firstToAct(state *hand.BettingState) int {
	for _, seat := range state.ActiveSeats {
		if !state.Folded[seat] && !state.AllIn[seat] {
			return seat
		}
	}
	return state.ActiveSeats[0]
}

func nextToAct(state *hand.BettingState, from int) int {
	n := len(state.ActiveSeats)
	start := 0
	for i, seat := range state.ActiveSeats {
		if seat == from {
			start = i
			break
		}
	}
	for i := 1; i <= n; i++ {
		seat := state.ActiveSeats[(start+i)%n]
		if !state.Folded[seat] && !state.AllIn[seat] {
			return seat
		}
	}
	return from
}

func activeSeats(state *hand.BettingState) []int {
	out := make([]int, 0, len(state.ActiveSeats))
	for _, seat := range state.ActiveSeats {
		if !state.Folded[seat] {
			out = append(out, seat)
		}
	}
	return out
}

// recalculatePots rebuilds state.Pots from every active seat's street
// commitment, splitting into side pots at each distinct all-in
// commitment level, per domain/poker/game.go's recalculatePots.
func recalculatePots(state *hand.BettingState) {
	bets := make(map[int]uint64, len(state.ActiveSeats))
	for _, seat := range state.ActiveSeats {
		bets[seat] = state.Committed[seat]
	}

	var pots []hand.Pot
	for {
		contributors := make([]int, 0, len(bets))
		for _, seat := range state.ActiveSeats {
			if bets[seat] > 0 {
				contributors = append(contributors, seat)
			}
		}
		if len(contributors) == 0 {
			break
		}

		min := bets[contributors[0]]
		for _, seat := range contributors {
			if bets[seat] < min {
				min = bets[seat]
			}
		}

		var amount uint64
		for _, seat := range contributors {
			amount += minUint64(bets[seat], min)
			bets[seat] -= min
		}

		eligible := make([]int, 0, len(contributors))
		for _, seat := range contributors {
			if !state.Folded[seat] {
				eligible = append(eligible, seat)
			}
		}
		pots = append(pots, hand.Pot{Amount: amount, Eligible: eligible})
	}

	if onePlayerRemains(pots) {
		var total uint64
		for _, p := range pots {
			total += p.Amount
		}
		pots = []hand.Pot{{Amount: total, Eligible: []int{pots[0].Eligible[0]}}}
	}

	state.Pots = pots
}

func onePlayerRemains(pots []hand.Pot) bool {
	if len(pots) == 0 {
		return false
	}
	for _, p := range pots {
		if len(p.Eligible) != 1 {
			return false
		}
	}
	return true
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

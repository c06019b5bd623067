package hand

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/decryption"
	"github.com/luca-patrignani/onchain-holdem/ledger"
)

// HandEvaluator ranks a seat's best five-card hand from its two hole
// cards and the board; higher Best() return values win. Injected so the
// hand package never depends on a specific evaluator library directly
// (spec.md §4.9 showdown boundary).
type HandEvaluator interface {
	Best(hole [2]int, board []int) int64
}

// applyShowdown is the Showdown-phase, MsgShowdown, ActorPlayer
// transition: a player reveals their hole cards and the secret key used
// to decrypt them, which is checked against the dealing phase's combined
// blinding/unblinding before the reveal is accepted. Once every
// non-folded seat has revealed, the engine evaluates hands and advances
// to Complete.
func applyShowdown(ops *curve.Ops, table *curve.CardTable, evaluator HandEvaluator, state *State, env *ledger.Envelope, m ShowdownMsg) (*State, ledger.Reason, error) {
	if state.Betting == nil {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: no betting state at showdown")
	}
	seat := int(env.Actor.Seat)
	if state.Betting.Folded[seat] {
		return nil, ledger.ReasonRule, fmt.Errorf("hand: folded seat %d cannot reveal", seat)
	}
	if _, already := state.Showdown.Revealed[seat]; already {
		return nil, ledger.ReasonRule, fmt.Errorf("hand: seat %d already revealed", seat)
	}

	for holeIdx, claimed := range m.Reveal.Cards {
		hole := HoleKey{Seat: seat, HoleIndex: holeIdx}
		combined, ok := state.Dealing.PlayerCiphertexts[hole]
		if !ok {
			return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: hole %d for seat %d was never combined", holeIdx, seat)
		}
		mu, ok := state.Dealing.CombinedUnblindings[hole]
		if !ok {
			return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: hole %d for seat %d was never unblinded", holeIdx, seat)
		}
		recovered, err := decryption.RecoverHoleCard(ops, table, combined, mu, m.SkU)
		if err != nil {
			return nil, ledger.ReasonCrypto, fmt.Errorf("hand: recover hole card: %w", err)
		}
		if recovered != claimed {
			return nil, ledger.ReasonCrypto, fmt.Errorf("hand: revealed card %d does not match decrypted card %d", claimed, recovered)
		}
	}

	next := state.Clone()
	next.Showdown.Revealed[seat] = m.Reveal

	remaining := activeNonFolded(next.Betting)
	allRevealed := true
	for _, s := range remaining {
		if _, ok := next.Showdown.Revealed[s]; !ok {
			allRevealed = false
			break
		}
	}
	if allRevealed {
		board := boardCards(next)
		var best int64
		first := true
		var winners []int
		for _, s := range remaining {
			reveal := next.Showdown.Revealed[s]
			rank := evaluator.Best(reveal.Cards, board)
			if first || rank > best {
				best = rank
				winners = []int{s}
				first = false
			} else if rank == best {
				winners = append(winners, s)
			}
		}
		next.Showdown.Winners = winners
		next.Phase = PhaseComplete
	}
	return next, "", nil
}

func boardCards(state *State) []int {
	out := make([]int, 0, 5)
	for boardIdx := 0; boardIdx < 5; boardIdx++ {
		dealIdx, ok := dealIndexForBoard(state.CardPlan, boardIdx)
		if !ok {
			continue
		}
		if card, ok := state.Dealing.CommunityCards[dealIdx]; ok {
			out = append(out, card)
		}
	}
	return out
}

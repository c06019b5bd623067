package hand

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/decryption"
	"github.com/luca-patrignani/onchain-holdem/ledger"
)

// applyBlindingContribution is the Dealing-phase, MsgBlindingContribution,
// ActorShuffler transition of spec.md §4.5/§4.6: one shuffler's blinding
// share toward one seat's one hole card. Once all n shuffler
// contributions for a hole are in, they are combined into the
// player-accessible ciphertext.
func applyBlindingContribution(ops *curve.Ops, state *State, env *ledger.Envelope, m BlindingContributionMsg) (*State, ledger.Reason, error) {
	dealIdx, ok := dealIndexForHole(state.CardPlan, m.Hole.Seat, m.Hole.HoleIndex)
	if !ok {
		return nil, ledger.ReasonShape, fmt.Errorf("hand: seat %d hole %d is not a dealt hole position", m.Hole.Seat, m.Hole.HoleIndex)
	}
	assignment, ok := state.Dealing.Assignments[dealIdx]
	if !ok {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: deck position %d not yet materialized", dealIdx)
	}

	actorKey := env.Actor.CanonicalKey(ops)
	if existing := state.Dealing.BlindingContribs[m.Hole]; existing != nil {
		if _, dup := existing[actorKey]; dup {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: shuffler already submitted a blinding contribution for this hole")
		}
	}

	seatKey := state.Players.Seating[m.Hole.Seat]
	player, ok := state.Players.ByKey[seatKey]
	if !ok {
		return nil, ledger.ReasonShape, fmt.Errorf("hand: seat %d is not occupied", m.Hole.Seat)
	}

	if err := decryption.VerifyBlindingContribution(ops, state.Shufflers.AggregatedPK, player.PKu, m.Contribution); err != nil {
		return nil, ledger.ReasonCrypto, fmt.Errorf("hand: blinding contribution failed verification: %w", err)
	}

	next := state.Clone()
	if next.Dealing.BlindingContribs[m.Hole] == nil {
		next.Dealing.BlindingContribs[m.Hole] = make(map[string]decryption.BlindingContribution)
	}
	next.Dealing.BlindingContribs[m.Hole][actorKey] = m.Contribution

	n := next.Shufflers.Len()
	if len(next.Dealing.BlindingContribs[m.Hole]) == n {
		contributions := make([]decryption.BlindingContribution, 0, n)
		for _, key := range next.Shufflers.ExpectedOrder {
			c, ok := next.Dealing.BlindingContribs[m.Hole][key]
			if !ok {
				return nil, ledger.ReasonMissingShare, fmt.Errorf("hand: missing blinding contribution from shuffler %s", key)
			}
			contributions = append(contributions, c)
		}
		combined, err := decryption.CombineBlindingContributions(ops, assignment.Ciphertext, next.Shufflers.AggregatedPK, player.PKu, contributions, n)
		if err != nil {
			return nil, ledger.ReasonCrypto, fmt.Errorf("hand: combine blinding contributions: %w", err)
		}
		next.Dealing.PlayerCiphertexts[m.Hole] = combined
	}

	maybeAdvanceToPreflop(next)
	return next, "", nil
}

// applyUnblindingShare is the Dealing-phase, MsgPartialUnblinding,
// ActorShuffler transition: one shuffler's partial share toward
// unblinding a hole card ciphertext already combined by
// applyBlindingContribution.
func applyUnblindingShare(ops *curve.Ops, state *State, env *ledger.Envelope, m UnblindingShareMsg) (*State, ledger.Reason, error) {
	if _, ok := dealIndexForHole(state.CardPlan, m.Hole.Seat, m.Hole.HoleIndex); !ok {
		return nil, ledger.ReasonShape, fmt.Errorf("hand: seat %d hole %d is not a dealt hole position", m.Hole.Seat, m.Hole.HoleIndex)
	}
	if _, ok := state.Dealing.PlayerCiphertexts[m.Hole]; !ok {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: blinding contributions for this hole are not yet combined")
	}

	actorKey := env.Actor.CanonicalKey(ops)
	if existing := state.Dealing.UnblindingShares[m.Hole]; existing != nil {
		if _, dup := existing[actorKey]; dup {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: shuffler already submitted an unblinding share for this hole")
		}
	}
	n := state.Shufflers.Len()
	if m.Share.MemberIndex < 0 || m.Share.MemberIndex >= n {
		return nil, ledger.ReasonShape, fmt.Errorf("hand: unblinding share member index %d out of range", m.Share.MemberIndex)
	}

	next := state.Clone()
	if next.Dealing.UnblindingShares[m.Hole] == nil {
		next.Dealing.UnblindingShares[m.Hole] = make(map[string]decryption.UnblindingShare)
	}
	next.Dealing.UnblindingShares[m.Hole][actorKey] = m.Share

	if len(next.Dealing.UnblindingShares[m.Hole]) == n {
		shares := make([]decryption.UnblindingShare, 0, n)
		for _, share := range next.Dealing.UnblindingShares[m.Hole] {
			shares = append(shares, share)
		}
		mu, err := decryption.CombineUnblindingShares(ops, shares, n)
		if err != nil {
			return nil, ledger.ReasonMissingShare, fmt.Errorf("hand: combine unblinding shares: %w", err)
		}
		next.Dealing.CombinedUnblindings[m.Hole] = mu
	}

	maybeAdvanceToPreflop(next)
	return next, "", nil
}

func maybeAdvanceToPreflop(state *State) {
	if state.Phase == PhaseDealing && dealingGateSatisfied(state) {
		state.Phase = PhasePreflop
		state.Betting = freshBettingState(state)
	}
}

// applyCommunityShare is the MsgCommunityDecryption, ActorShuffler
// transition accepted across the Dealing/Preflop/Flop/Turn phases: board
// cards are revealed progressively, ahead of the street that needs them,
// per spec.md §4.6.
func applyCommunityShare(ops *curve.Ops, state *State, env *ledger.Envelope, m CommunityShareMsg) (*State, ledger.Reason, error) {
	assignment, ok := state.Dealing.Assignments[m.DealIndex]
	if !ok {
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: deck position %d not yet materialized", m.DealIndex)
	}

	shufflerKey := env.Actor.CanonicalKey(ops)
	shuffler, ok := state.Shufflers.ByKey[shufflerKey]
	if !ok {
		return nil, ledger.ReasonUnauthorized, fmt.Errorf("hand: unknown shuffler")
	}
	if existing := state.Dealing.CommunityShares[m.DealIndex]; existing != nil {
		if _, dup := existing[shufflerKey]; dup {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: shuffler already submitted a community share for this card")
		}
	}

	if err := decryption.VerifyCommunityShare(ops, assignment.Ciphertext, shuffler.PKj, m.Share); err != nil {
		return nil, ledger.ReasonCrypto, fmt.Errorf("hand: community share failed verification: %w", err)
	}

	next := state.Clone()
	if next.Dealing.CommunityShares[m.DealIndex] == nil {
		next.Dealing.CommunityShares[m.DealIndex] = make(map[string]decryption.CommunityShare)
	}
	next.Dealing.CommunityShares[m.DealIndex][shufflerKey] = m.Share

	n := next.Shufflers.Len()
	if len(next.Dealing.CommunityShares[m.DealIndex]) == n {
		shares := make([]decryption.CommunityShare, 0, n)
		for _, share := range next.Dealing.CommunityShares[m.DealIndex] {
			shares = append(shares, share)
		}
		table := curve.BuildCardTable(ops, len(state.Shuffling.InitialDeck))
		card, err := decryption.RecoverCommunityCard(ops, table, assignment.Ciphertext, shares, n)
		if err != nil {
			return nil, ledger.ReasonCrypto, fmt.Errorf("hand: recover community card: %w", err)
		}
		next.Dealing.CommunityCards[m.DealIndex] = card
	}
	return next, "", nil
}

func communityCardsReady(state *State, phase Phase) bool {
	for _, boardIdx := range neededBoardIndices(phase) {
		dealIdx, ok := dealIndexForBoard(state.CardPlan, boardIdx)
		if !ok {
			return false
		}
		if _, ok := state.Dealing.CommunityCards[dealIdx]; !ok {
			return false
		}
	}
	return true
}

package runtime

import (
	"context"
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/decryption"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
	"github.com/luca-patrignani/onchain-holdem/hand"
	"github.com/luca-patrignani/onchain-holdem/ledger"
	"github.com/luca-patrignani/onchain-holdem/roster"
	"github.com/luca-patrignani/onchain-holdem/shuffle"
	"github.com/luca-patrignani/onchain-holdem/table"
)

// Shuffler drives one committee member's side of a single hand: it
// watches the table's ledger feed and submits its own shuffle, blinding,
// unblinding, and community-share steps as soon as the snapshot shows
// they're due, skipping anything it has already contributed.
type Shuffler struct {
	ops        *curve.Ops
	identity   Identity
	shufflerID int64
	gameID     uint64
	handID     uint64
	nonce      uint64
}

// NewShuffler builds a runtime driver for one shuffler's identity and
// its assigned (game_id, hand_id).
func NewShuffler(ops *curve.Ops, identity Identity, shufflerID int64, gameID, handID uint64) *Shuffler {
	return &Shuffler{ops: ops, identity: identity, shufflerID: shufflerID, gameID: gameID, handID: handID}
}

func (s *Shuffler) actor() ledger.Actor {
	return ledger.Actor{Kind: ledger.ActorShuffler, ShufflerID: s.shufflerID, Key: s.identity.Key}
}

func (s *Shuffler) key() string {
	return curve.CanonicalKey(s.ops, s.identity.Key)
}

func (s *Shuffler) submit(tbl *table.Table, kind ledger.MessageKind, payload []byte, raw any) (hand.Outcome, error) {
	env := &ledger.Envelope{
		HandID:    s.handID,
		GameID:    s.gameID,
		Actor:     s.actor(),
		Nonce:     s.nonce,
		PublicKey: s.identity.Pub,
		Kind:      kind,
		Payload:   payload,
	}
	ledger.Sign(env, s.identity.Priv)
	outcome, err := tbl.Submit(env, raw)
	if err != nil {
		return outcome, err
	}
	if outcome.Accepted {
		s.nonce++
	}
	return outcome, nil
}

func freshRandomness(ops *curve.Ops, n int) []curve.Scalar {
	out := make([]curve.Scalar, n)
	for i := range out {
		out[i] = ops.RandomScalar()
	}
	return out
}

// Run watches tbl's ledger feed, reacting to every new snapshot by
// submitting whichever of this shuffler's steps the snapshot makes due.
// It exits when ctx is cancelled or the subscription's channel closes.
// Grounded on domain/deck/shuffle.go's sequential per-peer broadcast
// loop and network/peer.go's select-on-channel cancellation idiom.
func (s *Shuffler) Run(ctx context.Context, tbl *table.Table) error {
	sub := tbl.Subscribe(32)

	if err := s.attemptNext(tbl.State(), tbl); err != nil {
		return fmt.Errorf("runtime: initial attempt: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-sub.C():
			if !ok {
				return nil
			}
			snapshot, ok := rec.Snapshot.(*hand.State)
			if !ok {
				continue
			}
			if snapshot.Phase == hand.PhaseComplete || snapshot.Phase == hand.PhaseFailure {
				return nil
			}
			if err := s.attemptNext(snapshot, tbl); err != nil {
				return err
			}
		}
	}
}

// attemptNext submits at most one step per call; accepting it produces a
// fresh record on the subscription, which drives the next call.
func (s *Shuffler) attemptNext(state *hand.State, tbl *table.Table) error {
	switch state.Phase {
	case hand.PhaseShuffling:
		return s.maybeSubmitShuffle(state, tbl)
	case hand.PhaseDealing, hand.PhasePreflop, hand.PhaseFlop, hand.PhaseTurn:
		submitted, err := s.maybeSubmitBlinding(state, tbl)
		if err != nil || submitted {
			return err
		}
		submitted, err = s.maybeSubmitUnblinding(state, tbl)
		if err != nil || submitted {
			return err
		}
		_, err = s.maybeSubmitCommunityShare(state, tbl)
		return err
	default:
		return nil
	}
}

func (s *Shuffler) maybeSubmitShuffle(state *hand.State, tbl *table.Table) error {
	turnIdx := len(state.Shuffling.Steps)
	if turnIdx >= state.Shufflers.Len() {
		return nil
	}
	if state.Shufflers.ExpectedOrder[turnIdx] != s.key() {
		return nil
	}

	var deckIn []elgamal.Ciphertext
	if turnIdx == 0 {
		deckIn = state.Shuffling.InitialDeck
	} else {
		deckIn = state.Shuffling.FinalDeck
	}

	seed := s.ops.RandomScalar()
	rs := freshRandomness(s.ops, len(deckIn))
	msg, _, err := shuffle.Build(s.ops, deckIn, state.Shufflers.AggregatedPK, hand.ShuffleLevels, seed, rs, turnIdx)
	if err != nil {
		return fmt.Errorf("runtime: build shuffle message: %w", err)
	}
	payload := hand.EncodeShuffleMessage(s.ops, msg)
	_, err = s.submit(tbl, ledger.MsgShuffle, payload, msg)
	return err
}

// maybeSubmitBlinding submits one blinding contribution for the first
// active seat's hole this shuffler has not yet contributed to and that
// isn't already combined.
func (s *Shuffler) maybeSubmitBlinding(state *hand.State, tbl *table.Table) (bool, error) {
	for _, seat := range state.Players.ActiveSeats() {
		for holeIdx := 0; holeIdx < 2; holeIdx++ {
			hole := hand.HoleKey{Seat: seat, HoleIndex: holeIdx}
			if _, combined := state.Dealing.PlayerCiphertexts[hole]; combined {
				continue
			}
			if existing := state.Dealing.BlindingContribs[hole]; existing != nil {
				if _, done := existing[s.key()]; done {
					continue
				}
			}
			playerKey, ok := state.Players.ByKey[state.Players.Seating[seat]]
			if !ok {
				continue
			}
			delta := s.ops.RandomScalar()
			contribution := decryption.MakeBlindingContribution(s.ops, state.Shufflers.AggregatedPK, playerKey.PKu, delta)
			m := hand.BlindingContributionMsg{Hole: hole, Contribution: contribution}
			payload := hand.EncodeBlindingContribution(s.ops, m)
			if _, err := s.submit(tbl, ledger.MsgBlindingContribution, payload, m); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// maybeSubmitUnblinding submits one unblinding share for the first hole
// whose blinding contributions are already combined but whose
// unblinding this shuffler hasn't contributed to yet. The share uses this
// shuffler's identity scalar, whose public key is part of the aggregated
// key the deck is encrypted under, so the n shares sum to the value
// decryption.RecoverHoleCard subtracts.
func (s *Shuffler) maybeSubmitUnblinding(state *hand.State, tbl *table.Table) (bool, error) {
	for _, seat := range state.Players.ActiveSeats() {
		for holeIdx := 0; holeIdx < 2; holeIdx++ {
			hole := hand.HoleKey{Seat: seat, HoleIndex: holeIdx}
			combined, ok := state.Dealing.PlayerCiphertexts[hole]
			if !ok {
				continue
			}
			if _, done := state.Dealing.CombinedUnblindings[hole]; done {
				continue
			}
			if existing := state.Dealing.UnblindingShares[hole]; existing != nil {
				if _, done := existing[s.key()]; done {
					continue
				}
			}
			memberIndex := memberIndexOf(state, s.key())
			if memberIndex < 0 {
				continue
			}
			share := decryption.MakeUnblindingShare(s.ops, combined.BlindedBase, s.identity.Sk, memberIndex)
			m := hand.UnblindingShareMsg{Hole: hole, Share: share}
			payload := hand.EncodeUnblindingShare(s.ops, m)
			if _, err := s.submit(tbl, ledger.MsgPartialUnblinding, payload, m); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// maybeSubmitCommunityShare submits a share for the first still-ungated
// board slot this shuffler hasn't contributed to yet: flop only once
// every hole ciphertext has been served, turn only once the flop has
// been revealed, river only once the turn has.
func (s *Shuffler) maybeSubmitCommunityShare(state *hand.State, tbl *table.Table) (bool, error) {
	if allHoleCiphertextsServed(state) {
		if submitted, err := s.tryBoardGroup(state, tbl, []int{0, 1, 2}); submitted || err != nil {
			return submitted, err
		}
	}
	if boardGroupRevealed(state, []int{0, 1, 2}) {
		if submitted, err := s.tryBoardGroup(state, tbl, []int{3}); submitted || err != nil {
			return submitted, err
		}
	}
	if boardGroupRevealed(state, []int{3}) {
		if submitted, err := s.tryBoardGroup(state, tbl, []int{4}); submitted || err != nil {
			return submitted, err
		}
	}
	return false, nil
}

func (s *Shuffler) tryBoardGroup(state *hand.State, tbl *table.Table, boardIndices []int) (bool, error) {
	for _, bi := range boardIndices {
		dealIdx, ok := boardDealIndex(state.CardPlan, bi)
		if !ok {
			continue
		}
		if _, done := state.Dealing.CommunityCards[dealIdx]; done {
			continue
		}
		if existing := state.Dealing.CommunityShares[dealIdx]; existing != nil {
			if _, done := existing[s.key()]; done {
				continue
			}
		}
		da, ok := state.Dealing.Assignments[dealIdx]
		if !ok {
			continue
		}
		share := decryption.MakeCommunityShare(s.ops, da.Ciphertext, s.identity.Sk, s.identity.Key)
		m := hand.CommunityShareMsg{DealIndex: dealIdx, Share: share}
		payload := hand.EncodeCommunityShare(s.ops, m)
		if _, err := s.submit(tbl, ledger.MsgCommunityDecryption, payload, m); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func boardDealIndex(plan *roster.CardPlan, boardIndex int) (int, bool) {
	for i, a := range plan.Assignments {
		if a.Kind == roster.KindBoard && a.BoardIndex == boardIndex {
			return i, true
		}
	}
	return 0, false
}

func allHoleCiphertextsServed(state *hand.State) bool {
	for _, seat := range state.Players.ActiveSeats() {
		for holeIdx := 0; holeIdx < 2; holeIdx++ {
			if _, ok := state.Dealing.PlayerCiphertexts[hand.HoleKey{Seat: seat, HoleIndex: holeIdx}]; !ok {
				return false
			}
		}
	}
	return true
}

func boardGroupRevealed(state *hand.State, boardIndices []int) bool {
	for _, bi := range boardIndices {
		dealIdx, ok := boardDealIndex(state.CardPlan, bi)
		if !ok {
			return false
		}
		if _, done := state.Dealing.CommunityCards[dealIdx]; !done {
			return false
		}
	}
	return true
}

func memberIndexOf(state *hand.State, key string) int {
	for i, k := range state.Shufflers.ExpectedOrder {
		if k == key {
			return i
		}
	}
	return -1
}

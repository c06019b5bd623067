// Package hand implements the phase-tagged hand state machine of
// spec.md §4.6: deterministic transitions `apply(snapshot, envelope) →
// snapshot'` selected by `(current_phase, message_kind, actor_kind)`,
// chained into the ledger's hash chain.
//
// Grounded on domain/poker/state_machine.go's
// Validate/Apply/Snapshot/Restore shape, generalized from a single
// `PokerAction` type mutating a `*Session` in place into the spec's
// phase dispatch table over immutable, copy-on-transition snapshots.
package hand

import (
	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/decryption"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
	"github.com/luca-patrignani/onchain-holdem/ledger"
	"github.com/luca-patrignani/onchain-holdem/roster"
	"github.com/luca-patrignani/onchain-holdem/shuffle"
)

// Phase is one of the states of spec.md §4.6, plus the terminal Failure
// state reachable from any of them.
type Phase int

const (
	PhaseShuffling Phase = iota
	PhaseDealing
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseComplete
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseShuffling:
		return "Shuffling"
	case PhaseDealing:
		return "Dealing"
	case PhasePreflop:
		return "Preflop"
	case PhaseFlop:
		return "Flop"
	case PhaseTurn:
		return "Turn"
	case PhaseRiver:
		return "River"
	case PhaseShowdown:
		return "Showdown"
	case PhaseComplete:
		return "Complete"
	case PhaseFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// HoleKey addresses one player's one hole card.
type HoleKey struct {
	Seat      int
	HoleIndex int
}

// ShuffleStep is one accepted entry of the shuffling phase's step log.
type ShuffleStep struct {
	ShufflerKey string
	Message     *shuffle.Message
}

// ShufflingData is spec.md §3's ShufflingSnapshot.
type ShufflingData struct {
	InitialDeck []elgamal.Ciphertext
	Steps       []ShuffleStep
	FinalDeck   []elgamal.Ciphertext
}

// DealAssignment is one deck position's realized ciphertext plus the
// source index it was drawn from (after the final shuffle permutation).
type DealAssignment struct {
	Ciphertext  elgamal.Ciphertext
	SourceIndex int
}

// DealingData is spec.md §3's DealingSnapshot.
type DealingData struct {
	Assignments         map[int]DealAssignment
	PlayerCiphertexts   map[HoleKey]decryption.CombinedBlinding
	BlindingContribs    map[HoleKey]map[string]decryption.BlindingContribution
	UnblindingShares    map[HoleKey]map[string]decryption.UnblindingShare
	CombinedUnblindings map[HoleKey]curve.Point
	CommunityShares     map[int]map[string]decryption.CommunityShare
	CommunityCards      map[int]int
}

func newDealingData() DealingData {
	return DealingData{
		Assignments:         make(map[int]DealAssignment),
		PlayerCiphertexts:   make(map[HoleKey]decryption.CombinedBlinding),
		BlindingContribs:    make(map[HoleKey]map[string]decryption.BlindingContribution),
		UnblindingShares:    make(map[HoleKey]map[string]decryption.UnblindingShare),
		CombinedUnblindings: make(map[HoleKey]curve.Point),
		CommunityShares:     make(map[int]map[string]decryption.CommunityShare),
		CommunityCards:      make(map[int]int),
	}
}

// ActionKind is a betting action variant (spec.md §3's PokerAction,
// generalized to the BettingEngine boundary).
type ActionKind int

const (
	ActionFold ActionKind = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

// Action is one player's requested betting action.
type Action struct {
	Kind   ActionKind
	Amount uint64
}

// LegalActions is what BettingEngine.LegalActions reports for a seat.
type LegalActions struct {
	Kinds      []ActionKind
	CallAmount uint64
	MinRaise   uint64
	MaxRaise   uint64
}

// Transition is the result BettingEngine.Apply reports, per spec.md §3.
type Transition int

const (
	Continued Transition = iota
	StreetEnd
	HandEnd
)

// Pot is one (possibly side-) pot, per spec.md's pot/eligibility model.
type Pot struct {
	Amount   uint64
	Eligible []int
}

// BettingState is the concrete shape of the otherwise-opaque betting
// state spec.md §3 describes as "owned by the rule engine": current
// street, to-act seat, pots, and per-seat stacks/commitments/status.
// Grounded on domain/poker/types.go's Session{Board,Players,Pots,
// HighestBet,Dealer,CurrentTurn}.
type BettingState struct {
	Street      int
	ToAct       int
	HighestBet  uint64
	Pots        []Pot
	Stacks      map[int]uint64
	Committed   map[int]uint64
	Folded      map[int]bool
	AllIn       map[int]bool
	ActiveSeats []int
	// Acted records which seats have acted since the last bet/raise reset
	// the betting round; the round closes once every non-folded,
	// non-all-in seat is in Acted with Committed == HighestBet.
	Acted map[int]bool
}

// BettingEngine is the external collaborator interface of spec.md §1 and
// §4.10: the hand machine delegates every PlayerAction to it rather than
// owning betting-rule logic itself.
type BettingEngine interface {
	LegalActions(state *BettingState, seat int) (LegalActions, error)
	Apply(state *BettingState, seat int, action Action) (Transition, error)
}

// RevealedHole is one seat's showdown reveal.
type RevealedHole struct {
	Cards [2]int
}

// ShowdownData tracks per-seat reveals during the Showdown phase.
type ShowdownData struct {
	Revealed map[int]RevealedHole
	Winners  []int
}

// State is the full phase-tagged snapshot of spec.md §3's Snapshot /
// TableSnapshot<Phase> union: one struct carrying every phase's data,
// tagged by Phase, generalized from the teacher's single *Session value.
type State struct {
	GameID, HandID uint64
	Sequence       uint64
	PreviousHash   [32]byte
	StateHash      [32]byte
	Failed         bool
	FailureReason  ledger.Reason

	Phase Phase

	Shufflers *roster.ShufflerRoster
	Players   *roster.PlayerRoster
	CardPlan  *roster.CardPlan

	Shuffling ShufflingData
	Dealing   DealingData
	Betting   *BettingState
	Showdown  ShowdownData
}

// Clone returns a deep-enough copy of s for copy-on-transition mutation:
// every map and slice that a transition might append to is duplicated so
// the original State remains valid and immutable, per spec.md §3's
// "Snapshots are immutable once published" lifecycle rule.
func (s *State) Clone() *State {
	clone := *s

	clone.Shuffling.Steps = append([]ShuffleStep(nil), s.Shuffling.Steps...)
	clone.Shuffling.FinalDeck = append([]elgamal.Ciphertext(nil), s.Shuffling.FinalDeck...)

	clone.Dealing.Assignments = cloneAssignments(s.Dealing.Assignments)
	clone.Dealing.PlayerCiphertexts = clonePlayerCiphertexts(s.Dealing.PlayerCiphertexts)
	clone.Dealing.BlindingContribs = cloneBlindingContribs(s.Dealing.BlindingContribs)
	clone.Dealing.UnblindingShares = cloneUnblindingShares(s.Dealing.UnblindingShares)
	clone.Dealing.CombinedUnblindings = cloneCombinedUnblindings(s.Dealing.CombinedUnblindings)
	clone.Dealing.CommunityShares = cloneCommunityShares(s.Dealing.CommunityShares)
	clone.Dealing.CommunityCards = cloneIntMap(s.Dealing.CommunityCards)

	if s.Betting != nil {
		betting := *s.Betting
		betting.Pots = append([]Pot(nil), s.Betting.Pots...)
		betting.Stacks = cloneUint64Map(s.Betting.Stacks)
		betting.Committed = cloneUint64Map(s.Betting.Committed)
		betting.Folded = cloneBoolMap(s.Betting.Folded)
		betting.AllIn = cloneBoolMap(s.Betting.AllIn)
		betting.ActiveSeats = append([]int(nil), s.Betting.ActiveSeats...)
		betting.Acted = cloneBoolMap(s.Betting.Acted)
		clone.Betting = &betting
	}

	clone.Showdown.Revealed = make(map[int]RevealedHole, len(s.Showdown.Revealed))
	for k, v := range s.Showdown.Revealed {
		clone.Showdown.Revealed[k] = v
	}
	clone.Showdown.Winners = append([]int(nil), s.Showdown.Winners...)

	return &clone
}

func cloneAssignments(m map[int]DealAssignment) map[int]DealAssignment {
	out := make(map[int]DealAssignment, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clonePlayerCiphertexts(m map[HoleKey]decryption.CombinedBlinding) map[HoleKey]decryption.CombinedBlinding {
	out := make(map[HoleKey]decryption.CombinedBlinding, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBlindingContribs(m map[HoleKey]map[string]decryption.BlindingContribution) map[HoleKey]map[string]decryption.BlindingContribution {
	out := make(map[HoleKey]map[string]decryption.BlindingContribution, len(m))
	for k, inner := range m {
		innerOut := make(map[string]decryption.BlindingContribution, len(inner))
		for ik, iv := range inner {
			innerOut[ik] = iv
		}
		out[k] = innerOut
	}
	return out
}

func cloneUnblindingShares(m map[HoleKey]map[string]decryption.UnblindingShare) map[HoleKey]map[string]decryption.UnblindingShare {
	out := make(map[HoleKey]map[string]decryption.UnblindingShare, len(m))
	for k, inner := range m {
		innerOut := make(map[string]decryption.UnblindingShare, len(inner))
		for ik, iv := range inner {
			innerOut[ik] = iv
		}
		out[k] = innerOut
	}
	return out
}

func cloneCombinedUnblindings(m map[HoleKey]curve.Point) map[HoleKey]curve.Point {
	out := make(map[HoleKey]curve.Point, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneCommunityShares(m map[int]map[string]decryption.CommunityShare) map[int]map[string]decryption.CommunityShare {
	out := make(map[int]map[string]decryption.CommunityShare, len(m))
	for k, inner := range m {
		innerOut := make(map[string]decryption.CommunityShare, len(inner))
		for ik, iv := range inner {
			innerOut[ik] = iv
		}
		out[k] = innerOut
	}
	return out
}

func cloneIntMap(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneUint64Map(m map[int]uint64) map[int]uint64 {
	out := make(map[int]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NewInitialState builds the Shuffling-phase genesis state for a hand:
// rosters fixed, card plan materialized, deck seeded with initialDeck,
// and each active seat's starting stack recorded so the betting engine
// has it once the Dealing → Preflop gate is reached.
func NewInitialState(gameID, handID uint64, shufflers *roster.ShufflerRoster, players *roster.PlayerRoster, plan *roster.CardPlan, initialDeck []elgamal.Ciphertext, startingStacks map[int]uint64) *State {
	stacks := make(map[int]uint64, len(startingStacks))
	for seat, amount := range startingStacks {
		stacks[seat] = amount
	}
	return &State{
		GameID:    gameID,
		HandID:    handID,
		Phase:     PhaseShuffling,
		Shufflers: shufflers,
		Players:   players,
		CardPlan:  plan,
		Shuffling: ShufflingData{InitialDeck: initialDeck},
		Dealing:   newDealingData(),
		Betting:   &BettingState{Stacks: stacks},
		Showdown:  ShowdownData{Revealed: make(map[int]RevealedHole)},
	}
}

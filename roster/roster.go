// Package roster holds the fixed-at-hand-start entities of spec.md §3:
// the shuffler committee, the seated players, and the card plan derived
// from the button position. Grounded on domain/poker/types.go's
// Player/Session shape, generalized from a single in-memory session into
// the canonical-key-addressed rosters the ledger and hand packages need.
package roster

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
)

// Shuffler is one committee member.
type Shuffler struct {
	ShufflerID string
	PKj        curve.Point
}

// ShufflerRoster is the ordered committee membership fixed at hand start:
// the aggregated key and the expected shuffle order never change once
// built.
type ShufflerRoster struct {
	ByKey         map[string]Shuffler
	ExpectedOrder []string // canonical keys, in shuffle turn order
	AggregatedPK  curve.Point
}

// BuildShufflerRoster aggregates pk = Σ pk_j and fixes the expected
// shuffle order to the order shufflers are given in, keyed by canonical
// key so later lookups never depend on array position.
func BuildShufflerRoster(ops *curve.Ops, shufflers []Shuffler) (*ShufflerRoster, error) {
	if len(shufflers) == 0 {
		return nil, fmt.Errorf("roster: at least one shuffler is required")
	}
	byKey := make(map[string]Shuffler, len(shufflers))
	order := make([]string, 0, len(shufflers))
	agg := ops.Identity()
	for _, s := range shufflers {
		key := curve.CanonicalKey(ops, s.PKj)
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("roster: duplicate shuffler key %q", s.ShufflerID)
		}
		byKey[key] = s
		order = append(order, key)
		agg = ops.AddPoints(agg, s.PKj)
	}
	return &ShufflerRoster{ByKey: byKey, ExpectedOrder: order, AggregatedPK: agg}, nil
}

// Len returns the committee size n used throughout the n-of-n protocols.
func (r *ShufflerRoster) Len() int { return len(r.ExpectedOrder) }

// PlayerEntry is one seated player's roster row.
type PlayerEntry struct {
	PlayerID string
	PKu      curve.Point
	Seat     int
	Nonce    int64
}

// PlayerRoster is the canonical-key-addressed player table plus the
// seat → key map (SeatingMap). A seat holding the empty string is
// unseated.
type PlayerRoster struct {
	ByKey   map[string]PlayerEntry
	Seating map[int]string
	Seats   int
}

// BuildPlayerRoster seats the given entries; duplicate seats or duplicate
// keys are rejected.
func BuildPlayerRoster(ops *curve.Ops, seats int, entries []PlayerEntry) (*PlayerRoster, error) {
	byKey := make(map[string]PlayerEntry, len(entries))
	seating := make(map[int]string, seats)
	for _, e := range entries {
		if e.Seat < 0 || e.Seat >= seats {
			return nil, fmt.Errorf("roster: seat %d out of range [0,%d)", e.Seat, seats)
		}
		if _, taken := seating[e.Seat]; taken {
			return nil, fmt.Errorf("roster: seat %d is already occupied", e.Seat)
		}
		key := curve.CanonicalKey(ops, e.PKu)
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("roster: duplicate player key for seat %d", e.Seat)
		}
		byKey[key] = e
		seating[e.Seat] = key
	}
	return &PlayerRoster{ByKey: byKey, Seating: seating, Seats: seats}, nil
}

// ActiveSeats returns the occupied seat numbers in ascending order.
func (r *PlayerRoster) ActiveSeats() []int {
	out := make([]int, 0, len(r.Seating))
	for seat := range r.Seating {
		out = append(out, seat)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// DealIndexKind tags what a deck position is used for.
type DealIndexKind int

const (
	KindHole DealIndexKind = iota
	KindBoard
	KindBurn
	KindUnused
)

// DealIndexAssignment is one entry of the card plan.
type DealIndexAssignment struct {
	Kind       DealIndexKind
	Seat       int // valid when Kind == KindHole
	HoleIndex  int // 0 or 1, valid when Kind == KindHole
	BoardIndex int // 0..4, valid when Kind == KindBoard
}

// CardPlan maps every deck position to its role, derived deterministically
// from the button position and active seats at hand start (spec.md §3).
type CardPlan struct {
	DeckSize    int
	Assignments []DealIndexAssignment
}

// BuildCardPlan derives the standard hold'em deal order starting one seat
// after the button: two hole cards to each active seat round-robin, then
// a burn + 3 board cards (flop), a burn + 1 board card (turn), a burn + 1
// board card (river), with any remaining positions marked Unused.
func BuildCardPlan(deckSize int, activeSeats []int, button int) (*CardPlan, error) {
	if len(activeSeats) == 0 {
		return nil, fmt.Errorf("roster: card plan requires at least one active seat")
	}
	order := seatsFromButton(activeSeats, button)

	assignments := make([]DealIndexAssignment, deckSize)
	for i := range assignments {
		assignments[i] = DealIndexAssignment{Kind: KindUnused}
	}

	pos := 0
	need := func(n int) bool { return pos+n <= deckSize }

	for holeIdx := 0; holeIdx < 2; holeIdx++ {
		for _, seat := range order {
			if !need(1) {
				return nil, fmt.Errorf("roster: deck too small for hole cards")
			}
			assignments[pos] = DealIndexAssignment{Kind: KindHole, Seat: seat, HoleIndex: holeIdx}
			pos++
		}
	}

	boardIndex := 0
	place := func(boardCount int) error {
		if !need(1) {
			return fmt.Errorf("roster: deck too small for burn card")
		}
		assignments[pos] = DealIndexAssignment{Kind: KindBurn}
		pos++
		for b := 0; b < boardCount; b++ {
			if !need(1) {
				return fmt.Errorf("roster: deck too small for board card")
			}
			assignments[pos] = DealIndexAssignment{Kind: KindBoard, BoardIndex: boardIndex}
			boardIndex++
			pos++
		}
		return nil
	}

	if err := place(3); err != nil {
		return nil, err
	}
	if err := place(1); err != nil {
		return nil, err
	}
	if err := place(1); err != nil {
		return nil, err
	}

	return &CardPlan{DeckSize: deckSize, Assignments: assignments}, nil
}

// seatsFromButton returns activeSeats rotated to start with the seat
// immediately after the button (heads-up and multi-way both follow this
// rule; short-handed tables simply have fewer active seats).
func seatsFromButton(activeSeats []int, button int) []int {
	sorted := append([]int(nil), activeSeats...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	start := 0
	for i, seat := range sorted {
		if seat > button {
			start = i
			break
		}
	}
	out := make([]int, len(sorted))
	for i := range sorted {
		out[i] = sorted[(start+i)%len(sorted)]
	}
	return out
}

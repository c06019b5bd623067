// Package handeval is the showdown boundary: it scores a seat's best
// five-card hand out of its two hole cards and the board, breaking ties
// by equal score. Grounded on domain/poker/evaluator.go's winnerEval,
// generalized from a Session-owned [7]Card array into the hand
// package's HandEvaluator interface over plain 0..51 card indices.
package handeval

import (
	"fmt"

	"github.com/paulhankin/poker"
)

// cardToPokerCard maps our 0..51 card index (rank*4+suit, rank 0=Two
// .. 12=Ace, suit 0..3) to the paulhankin/poker library's Card type.
func cardToPokerCard(idx int) (poker.Card, error) {
	if idx < 0 || idx > 51 {
		return poker.Card{}, fmt.Errorf("handeval: card index %d out of range", idx)
	}
	rank := poker.Rank(idx/4 + 2)
	suit := poker.Suit(idx % 4)
	return poker.MakeCard(suit, rank)
}

// Evaluator implements hand.HandEvaluator using the paulhankin/poker
// 7-card evaluator.
type Evaluator struct{}

// Best scores the best five-card hand from hole and board, higher is
// better, matching poker.Eval7's ordering.
func (Evaluator) Best(hole [2]int, board []int) int64 {
	var cards [7]poker.Card
	for i, idx := range append(append([]int(nil), hole[0], hole[1]), board...) {
		c, err := cardToPokerCard(idx)
		if err != nil {
			// An invalid card index here means the ledger's dealt
			// indices are corrupt; score it as the worst possible hand
			// rather than panicking in the middle of a showdown.
			return -1
		}
		cards[i] = c
	}
	return int64(poker.Eval7(&cards))
}

// Describe renders a human-readable description of a seat's final hand,
// mirroring domain/poker/evaluator.go's DescribeHand.
func Describe(hole [2]int, board []int) (string, error) {
	cards := make([]poker.Card, 0, 7)
	for _, idx := range append(append([]int(nil), hole[0], hole[1]), board...) {
		c, err := cardToPokerCard(idx)
		if err != nil {
			return "", err
		}
		cards = append(cards, c)
	}
	return poker.Describe(cards)
}

package handeval

import "testing"

// cardIdx builds our rank*4+suit card index from a 0-based rank (0=Two
// .. 12=Ace) and suit (0..3), matching cardToPokerCard's convention.
func cardIdx(rank, suit int) int {
	return rank*4 + suit
}

func TestBest_PairBeatsHighCard(t *testing.T) {
	e := Evaluator{}

	board := []int{cardIdx(3, 0), cardIdx(7, 1), cardIdx(9, 2), cardIdx(11, 3), cardIdx(2, 0)}
	pair := [2]int{cardIdx(5, 1), cardIdx(5, 2)}       // pair of sevens
	highCard := [2]int{cardIdx(0, 0), cardIdx(1, 1)}   // no pair

	pairScore := e.Best(pair, board)
	highScore := e.Best(highCard, board)
	if pairScore <= highScore {
		t.Fatalf("expected a pair to outscore a high card hand, got pair=%d high=%d", pairScore, highScore)
	}
}

func TestBest_InvalidCardIndexScoresWorst(t *testing.T) {
	e := Evaluator{}
	board := []int{cardIdx(3, 0), cardIdx(7, 1), cardIdx(9, 2), cardIdx(11, 3), cardIdx(2, 0)}
	bad := [2]int{-1, cardIdx(1, 1)}

	if got := e.Best(bad, board); got != -1 {
		t.Fatalf("expected an invalid card index to score -1, got %d", got)
	}
}

// Command tablecli runs a single in-process hand end to end between two
// shufflers and two players, printing each phase transition with pterm
// panels in the teacher's cmd/style.go idiom. It exists to give a
// concrete, watchable demonstration of the shuffler runtime driving a
// hand from Shuffling through Showdown; it is not a server.
package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"
	"time"

	"github.com/luca-patrignani/onchain-holdem/bettingref"
	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/decryption"
	"github.com/luca-patrignani/onchain-holdem/elgamal"
	"github.com/luca-patrignani/onchain-holdem/hand"
	"github.com/luca-patrignani/onchain-holdem/handeval"
	"github.com/luca-patrignani/onchain-holdem/ledger"
	"github.com/luca-patrignani/onchain-holdem/roster"
	"github.com/luca-patrignani/onchain-holdem/runtime"
	"github.com/luca-patrignani/onchain-holdem/table"
	"github.com/pterm/pterm"
)

func mustSeed() []byte {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		log.Fatalf("generate seed: %v", err)
	}
	return priv.Seed()
}

func mustIdentity(ops *curve.Ops) runtime.Identity {
	id, err := runtime.NewIdentity(ops, mustSeed())
	if err != nil {
		log.Fatalf("derive identity: %v", err)
	}
	return id
}

func main() {
	ops := curve.New()

	shufflerIDs := []runtime.Identity{mustIdentity(ops), mustIdentity(ops)}
	playerIDs := []runtime.Identity{mustIdentity(ops), mustIdentity(ops)}

	shuffRost, err := roster.BuildShufflerRoster(ops, []roster.Shuffler{
		{ShufflerID: "s0", PKj: shufflerIDs[0].Key},
		{ShufflerID: "s1", PKj: shufflerIDs[1].Key},
	})
	if err != nil {
		log.Fatalf("build shuffler roster: %v", err)
	}

	playRost, err := roster.BuildPlayerRoster(ops, 2, []roster.PlayerEntry{
		{PlayerID: "p0", PKu: playerIDs[0].Key, Seat: 0},
		{PlayerID: "p1", PKu: playerIDs[1].Key, Seat: 1},
	})
	if err != nil {
		log.Fatalf("build player roster: %v", err)
	}

	plan, err := roster.BuildCardPlan(52, playRost.ActiveSeats(), 1)
	if err != nil {
		log.Fatalf("build card plan: %v", err)
	}

	initialDeck := make([]elgamal.Ciphertext, 52)
	for i := range initialDeck {
		r := ops.RandomScalar()
		initialDeck[i] = elgamal.EncryptScalar(ops, int64(i), r, shuffRost.AggregatedPK)
	}

	engines := hand.Engines{
		Betting:   bettingref.Engine{MinBet: 20},
		Table:     curve.BuildCardTable(ops, 52),
		Evaluator: handeval.Evaluator{},
	}

	state := hand.NewInitialState(1, 1, shuffRost, playRost, plan, initialDeck, map[int]uint64{0: 1000, 1: 1000})
	store := ledger.NewStore()
	verifier := ledger.NewVerifier(ops)
	tbl := table.New(ops, store, verifier, engines, state)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i, id := range shufflerIDs {
		s := runtime.NewShuffler(ops, id, int64(i), 1, 1)
		go func() {
			if err := s.Run(ctx, tbl); err != nil && ctx.Err() == nil {
				log.Printf("shuffler %d stopped: %v", i, err)
			}
		}()
	}

	pterm.DefaultHeader.WithFullWidth().Println("on-chain hold'em — table demo")

	lastPhase := hand.PhaseShuffling
	playerNonce := map[int]uint64{0: 0, 1: 0}

	for {
		current := tbl.State()
		if current.Phase != lastPhase {
			printPhasePanel(current)
			lastPhase = current.Phase
		}

		switch current.Phase {
		case hand.PhaseComplete:
			printShowdownPanel(current)
			return
		case hand.PhaseFailure:
			pterm.Error.Println("hand failed:", current.FailureReason)
			return
		case hand.PhasePreflop, hand.PhaseFlop, hand.PhaseTurn, hand.PhaseRiver:
			driveBettingStep(engines.Betting, tbl, current, playerIDs, playerNonce)
		case hand.PhaseShowdown:
			driveShowdownStep(ops, engines.Table, tbl, current, playerIDs, playerNonce)
		}

		time.Sleep(20 * time.Millisecond)
	}
}

func printPhasePanel(state *hand.State) {
	box := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	panel := box.WithTitle(pterm.LightCyan("|PHASE|")).WithTitleTopCenter().
		Sprintf("now in %s (sequence %d)", state.Phase, state.Sequence)
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{{{Data: panel}}}).Render()
}

// driveBettingStep submits one check-or-call action for the seat whose
// turn it is, a minimal stand-in for a real player client per spec.md's
// "players ... inject betting and showdown messages" boundary.
func driveBettingStep(engine hand.BettingEngine, tbl *table.Table, state *hand.State, playerIDs []runtime.Identity, nonces map[int]uint64) {
	if state.Betting == nil {
		return
	}
	seat := state.Betting.ToAct
	legal, err := engine.LegalActions(state.Betting, seat)
	if err != nil {
		return
	}
	action := hand.Action{Kind: hand.ActionFold}
	for _, k := range legal.Kinds {
		if k == hand.ActionCheck {
			action = hand.Action{Kind: hand.ActionCheck}
			break
		}
		if k == hand.ActionCall {
			action = hand.Action{Kind: hand.ActionCall, Amount: legal.CallAmount}
		}
	}

	id := playerIDs[seat]
	m := hand.PlayerActionMsg{Action: action}
	payload := hand.EncodePlayerAction(m)
	actor := ledger.Actor{Kind: ledger.ActorPlayer, Seat: uint8(seat), PlayerID: uint64(seat), Key: id.Key}
	env := &ledger.Envelope{HandID: state.HandID, GameID: state.GameID, Actor: actor, Nonce: nonces[seat], PublicKey: id.Pub, Kind: ledger.MsgPlayerAction, Payload: payload}
	ledger.Sign(env, id.Priv)

	outcome, err := tbl.Submit(env, m)
	if err != nil {
		log.Printf("submit player action: %v", err)
		return
	}
	if outcome.Accepted {
		nonces[seat]++
	}
}

// driveShowdownStep recovers the hole cards of the first active seat that
// has neither folded nor revealed yet and submits a Showdown reveal for
// it.
func driveShowdownStep(ops *curve.Ops, cardTable *curve.CardTable, tbl *table.Table, state *hand.State, playerIDs []runtime.Identity, nonces map[int]uint64) {
	for _, seat := range state.Players.ActiveSeats() {
		if state.Betting.Folded[seat] {
			continue
		}
		if _, done := state.Showdown.Revealed[seat]; done {
			continue
		}

		var cards [2]int
		ok := true
		for holeIdx := 0; holeIdx < 2; holeIdx++ {
			hole := hand.HoleKey{Seat: seat, HoleIndex: holeIdx}
			combined, found := state.Dealing.PlayerCiphertexts[hole]
			mu, foundMu := state.Dealing.CombinedUnblindings[hole]
			if !found || !foundMu {
				ok = false
				break
			}
			card, err := decryption.RecoverHoleCard(ops, cardTable, combined, mu, playerIDs[seat].Sk)
			if err != nil {
				ok = false
				break
			}
			cards[holeIdx] = card
		}
		if !ok {
			continue
		}

		id := playerIDs[seat]
		m := hand.ShowdownMsg{Reveal: hand.RevealedHole{Cards: cards}, SkU: id.Sk}
		payload := hand.EncodeShowdown(ops, m)
		actor := ledger.Actor{Kind: ledger.ActorPlayer, Seat: uint8(seat), PlayerID: uint64(seat), Key: id.Key}
		env := &ledger.Envelope{HandID: state.HandID, GameID: state.GameID, Actor: actor, Nonce: nonces[seat], PublicKey: id.Pub, Kind: ledger.MsgShowdown, Payload: payload}
		ledger.Sign(env, id.Priv)

		outcome, err := tbl.Submit(env, m)
		if err != nil {
			log.Printf("submit showdown reveal: %v", err)
			continue
		}
		if outcome.Accepted {
			nonces[seat]++
		}
		return
	}
}

func printShowdownPanel(state *hand.State) {
	box := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	info := ""
	for _, seat := range state.Showdown.Winners {
		info += pterm.Sprintfln("seat %d wins", seat)
	}
	for seat, reveal := range state.Showdown.Revealed {
		board := make([]int, 0, 5)
		for boardIdx := 0; boardIdx < 5; boardIdx++ {
			for dealIdx, a := range state.CardPlan.Assignments {
				if a.Kind == roster.KindBoard && a.BoardIndex == boardIdx {
					if card, ok := state.Dealing.CommunityCards[dealIdx]; ok {
						board = append(board, card)
					}
				}
			}
		}
		desc, err := handeval.Describe(reveal.Cards, board)
		if err != nil {
			continue
		}
		info += pterm.Sprintfln("seat %d shows %s", seat, desc)
	}
	panel := box.WithTitle(pterm.LightGreen("|SHOWDOWN|")).WithTitleTopCenter().Sprintf(info)
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{{{Data: panel}}}).Render()
	fmt.Println()
}

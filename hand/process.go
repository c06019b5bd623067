package hand

import (
	"errors"
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/ledger"
	"github.com/luca-patrignani/onchain-holdem/shuffle"
)

// Engines bundles the external collaborators a running hand needs beyond
// its own state: the betting rule engine, the discrete-log card table
// used to recover decrypted cards, and the showdown hand evaluator.
type Engines struct {
	Betting   BettingEngine
	Table     *curve.CardTable
	Evaluator HandEvaluator
}

func resolveKnownActor(ops *curve.Ops, state *State, actor ledger.Actor) ledger.KnownActor {
	key := curve.CanonicalKey(ops, actor.Key)
	switch actor.Kind {
	case ledger.ActorShuffler:
		if _, ok := state.Shufflers.ByKey[key]; ok {
			return ledger.KnownActor{Found: true, Key: actor.Key}
		}
	case ledger.ActorPlayer:
		if entry, ok := state.Players.ByKey[key]; ok && entry.Seat == int(actor.Seat) {
			return ledger.KnownActor{Found: true, Key: actor.Key}
		}
	}
	return ledger.KnownActor{Found: false}
}

func encodePayload(ops *curve.Ops, env *ledger.Envelope, payload any) ([]byte, error) {
	switch env.Kind {
	case ledger.MsgShuffle:
		msg, ok := payload.(*shuffle.Message)
		if !ok {
			return nil, fmt.Errorf("hand: payload type does not match MsgShuffle")
		}
		return EncodeShuffleMessage(ops, msg), nil
	case ledger.MsgBlindingContribution:
		m, ok := payload.(BlindingContributionMsg)
		if !ok {
			return nil, fmt.Errorf("hand: payload type does not match MsgBlindingContribution")
		}
		return EncodeBlindingContribution(ops, m), nil
	case ledger.MsgPartialUnblinding:
		m, ok := payload.(UnblindingShareMsg)
		if !ok {
			return nil, fmt.Errorf("hand: payload type does not match MsgPartialUnblinding")
		}
		return EncodeUnblindingShare(ops, m), nil
	case ledger.MsgCommunityDecryption:
		m, ok := payload.(CommunityShareMsg)
		if !ok {
			return nil, fmt.Errorf("hand: payload type does not match MsgCommunityDecryption")
		}
		return EncodeCommunityShare(ops, m), nil
	case ledger.MsgPlayerAction:
		m, ok := payload.(PlayerActionMsg)
		if !ok {
			return nil, fmt.Errorf("hand: payload type does not match MsgPlayerAction")
		}
		return EncodePlayerAction(m), nil
	case ledger.MsgShowdown:
		m, ok := payload.(ShowdownMsg)
		if !ok {
			return nil, fmt.Errorf("hand: payload type does not match MsgShowdown")
		}
		return EncodeShowdown(ops, m), nil
	default:
		return nil, fmt.Errorf("hand: unknown message kind %d", env.Kind)
	}
}

func dispatch(ops *curve.Ops, engines Engines, state *State, env *ledger.Envelope, payload any) (*State, ledger.Reason, error) {
	switch {
	case state.Phase == PhaseShuffling && env.Kind == ledger.MsgShuffle && env.Actor.Kind == ledger.ActorShuffler:
		msg, ok := payload.(*shuffle.Message)
		if !ok {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: expected a shuffle message")
		}
		return applyShuffle(ops, state, env, msg)

	case state.Phase == PhaseDealing && env.Kind == ledger.MsgBlindingContribution && env.Actor.Kind == ledger.ActorShuffler:
		m, ok := payload.(BlindingContributionMsg)
		if !ok {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: expected a blinding contribution message")
		}
		return applyBlindingContribution(ops, state, env, m)

	case state.Phase == PhaseDealing && env.Kind == ledger.MsgPartialUnblinding && env.Actor.Kind == ledger.ActorShuffler:
		m, ok := payload.(UnblindingShareMsg)
		if !ok {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: expected an unblinding share message")
		}
		return applyUnblindingShare(ops, state, env, m)

	case isCommunityEligible(state.Phase) && env.Kind == ledger.MsgCommunityDecryption && env.Actor.Kind == ledger.ActorShuffler:
		m, ok := payload.(CommunityShareMsg)
		if !ok {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: expected a community share message")
		}
		return applyCommunityShare(ops, state, env, m)

	case isBettingPhase(state.Phase) && env.Kind == ledger.MsgPlayerAction && env.Actor.Kind == ledger.ActorPlayer:
		m, ok := payload.(PlayerActionMsg)
		if !ok {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: expected a player action message")
		}
		return applyPlayerAction(ops, engines.Betting, state, env, m)

	case state.Phase == PhaseShowdown && env.Kind == ledger.MsgShowdown && env.Actor.Kind == ledger.ActorPlayer:
		m, ok := payload.(ShowdownMsg)
		if !ok {
			return nil, ledger.ReasonShape, fmt.Errorf("hand: expected a showdown message")
		}
		return applyShowdown(ops, engines.Table, engines.Evaluator, state, env, m)

	default:
		return nil, ledger.ReasonPhaseMismatch, fmt.Errorf("hand: message kind %d from actor kind %d is not accepted in phase %s", env.Kind, env.Actor.Kind, state.Phase)
	}
}

func isCommunityEligible(p Phase) bool {
	switch p {
	case PhaseDealing, PhasePreflop, PhaseFlop, PhaseTurn:
		return true
	default:
		return false
	}
}

func isBettingPhase(p Phase) bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	default:
		return false
	}
}

// Outcome is the return value of Process: exactly one of Dropped,
// Accepted, or Rejected is true.
type Outcome struct {
	Dropped  bool
	Accepted bool
	Rejected bool

	Next   *State
	Record ledger.Record
}

// Process is the single entry point spec.md §4.7 describes: it runs the
// generic envelope checks (hand/game id, signature, actor recognition,
// nonce reservation), then the phase-specific dispatch table, and
// produces the ledger.Record to append — either an accepted transition's
// hash-chained success record or a rejected transition's failure record.
// A nonce conflict is reported as Dropped and no record should be
// appended at all, per spec.md §7.
func Process(ops *curve.Ops, verifier *ledger.Verifier, engines Engines, state *State, env *ledger.Envelope, payload any) (Outcome, error) {
	known := resolveKnownActor(ops, state, env.Actor)
	reason, err := verifier.CheckEnvelope(env, state.HandID, state.GameID, known)
	if err != nil {
		if errors.Is(err, ledger.ErrNonceConflict) {
			return Outcome{Dropped: true}, nil
		}
		return buildFailure(state, env, reason), nil
	}

	actorKey := env.Actor.CanonicalKey(ops)
	encoded, encErr := encodePayload(ops, env, payload)
	if encErr != nil || !bytesEqual(encoded, env.Payload) {
		verifier.Nonces().Release(actorKey)
		return buildFailure(state, env, ledger.ReasonShape), nil
	}

	next, failReason, dispatchErr := dispatch(ops, engines, state, env, payload)
	if dispatchErr != nil {
		verifier.Nonces().Release(actorKey)
		return buildFailure(state, env, failReason), nil
	}

	verifier.Nonces().Commit(actorKey, env.Nonce)
	next.Failed = false
	next.FailureReason = ""
	msgHash := ledger.MessageHash(env)
	next.Sequence = state.Sequence + 1
	next.PreviousHash = state.StateHash
	next.StateHash = ledger.ChainHash(state.StateHash, msgHash)

	rec := ledger.Record{
		Sequence:  next.Sequence,
		PrevHash:  next.PreviousHash,
		StateHash: next.StateHash,
		Envelope:  env,
		Snapshot:  next,
	}
	return Outcome{Accepted: true, Next: next, Record: rec}, nil
}

// isFatalReason reports which rejection reasons end the hand outright
// (Crypto/Rule: a party produced a mathematically invalid artifact or
// broke a betting rule — evidence of a faulty or cheating participant)
// versus which are merely recoverable (Unauthorized/BadSignature/
// PhaseMismatch/Shape/MissingShare: a legitimate actor can simply
// resubmit), per spec.md §8 scenario S5's "without consuming ... state"
// requirement for an out-of-turn (PhaseMismatch) submission.
func isFatalReason(reason ledger.Reason) bool {
	return reason == ledger.ReasonCrypto || reason == ledger.ReasonRule
}

func buildFailure(state *State, env *ledger.Envelope, reason ledger.Reason) Outcome {
	next := state.Clone()
	if isFatalReason(reason) {
		next.Phase = PhaseFailure
	}
	next.Failed = true
	next.FailureReason = reason
	next.Sequence = state.Sequence + 1
	next.PreviousHash = state.StateHash
	next.StateHash = ledger.FailureHash(state.StateHash, reason)

	rec := ledger.Record{
		Sequence:  next.Sequence,
		PrevHash:  next.PreviousHash,
		StateHash: next.StateHash,
		Envelope:  env,
		Snapshot:  next,
		Failed:    true,
		Reason:    reason,
	}
	return Outcome{Rejected: true, Next: next, Record: rec}
}

package hand

import (
	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/decryption"
	"github.com/luca-patrignani/onchain-holdem/shuffle"
	"github.com/luca-patrignani/onchain-holdem/transcript"
)

// The wire payload of an Envelope is a canonical, domain-tagged byte
// encoding of exactly one of the message types below, chosen by the
// envelope's Kind. The runtime constructs both the typed message and its
// encoding together (mirroring how a generated wire codec would hand a
// caller the parsed value alongside the bytes it was parsed from); Process
// confirms the two actually match (encodePayload, then bytesEqual against
// Envelope.Payload) before dispatching the typed value. The encoders below
// cover only the fields they append: the Chaum-Pedersen proofs of blinding
// contributions and community shares, and a shuffle proof's Pedersen
// opening arguments (PermProof, PowerProof), are not encoded, so the
// envelope signature does not cover them.

// BlindingContributionMsg is the MsgBlindingContribution payload.
type BlindingContributionMsg struct {
	Hole         HoleKey
	Contribution decryption.BlindingContribution
}

// UnblindingShareMsg is the MsgPartialUnblinding payload.
type UnblindingShareMsg struct {
	Hole  HoleKey
	Share decryption.UnblindingShare
}

// CommunityShareMsg is the MsgCommunityDecryption payload.
type CommunityShareMsg struct {
	DealIndex int
	Share     decryption.CommunityShare
}

// PlayerActionMsg is the MsgPlayerAction payload.
type PlayerActionMsg struct {
	Action Action
}

// ShowdownMsg is the MsgShowdown payload: the claimed hole cards plus the
// player's own secret key, revealed so the hand machine can check the
// claim against the dealing phase's combined blinding/unblinding without
// trusting the player.
type ShowdownMsg struct {
	Reveal RevealedHole
	SkU    curve.Scalar
}

func EncodeShuffleMessage(ops *curve.Ops, msg *shuffle.Message) []byte {
	tb := transcript.New("hand/payload/shuffle")
	for _, c := range msg.DeckIn {
		tb.AppendPoint(c.C1)
		tb.AppendPoint(c.C2)
	}
	for _, c := range msg.DeckOut {
		tb.AppendPoint(c.C1)
		tb.AppendPoint(c.C2)
	}
	tb.AppendU32(uint32(msg.TurnIdx))
	tb.AppendBytes(ops.EncodeScalar(msg.Proof.Seed))
	tb.AppendU32(uint32(msg.Proof.NumSamples))
	tb.AppendPoint(msg.Proof.CPerm)
	tb.AppendPoint(msg.Proof.CPower)
	tb.AppendBytes(ops.EncodeScalar(msg.Proof.PowerX))
	tb.AppendBytes(ops.EncodeScalar(msg.Proof.Alpha))
	tb.AppendBytes(ops.EncodeScalar(msg.Proof.Beta))
	for _, p := range msg.Proof.Reencryption {
		tb.AppendPoint(p.Tg)
		tb.AppendPoint(p.Th)
		tb.AppendBytes(ops.EncodeScalar(p.Z))
	}
	return tb.Bytes()
}

func EncodeBlindingContribution(ops *curve.Ops, m BlindingContributionMsg) []byte {
	tb := transcript.New("hand/payload/blinding")
	tb.AppendU32(uint32(m.Hole.Seat))
	tb.AppendU32(uint32(m.Hole.HoleIndex))
	tb.AppendPoint(m.Contribution.A)
	tb.AppendPoint(m.Contribution.B)
	return tb.Bytes()
}

func EncodeUnblindingShare(ops *curve.Ops, m UnblindingShareMsg) []byte {
	tb := transcript.New("hand/payload/unblinding")
	tb.AppendU32(uint32(m.Hole.Seat))
	tb.AppendU32(uint32(m.Hole.HoleIndex))
	tb.AppendPoint(m.Share.Mu)
	tb.AppendU32(uint32(m.Share.MemberIndex))
	return tb.Bytes()
}

func EncodeCommunityShare(ops *curve.Ops, m CommunityShareMsg) []byte {
	tb := transcript.New("hand/payload/community")
	tb.AppendU32(uint32(m.DealIndex))
	tb.AppendPoint(m.Share.Share)
	return tb.Bytes()
}

func EncodePlayerAction(m PlayerActionMsg) []byte {
	tb := transcript.New("hand/payload/action")
	tb.AppendU8(uint8(m.Action.Kind))
	tb.AppendU64(m.Action.Amount)
	return tb.Bytes()
}

func EncodeShowdown(ops *curve.Ops, m ShowdownMsg) []byte {
	tb := transcript.New("hand/payload/showdown")
	tb.AppendU8(uint8(m.Reveal.Cards[0]))
	tb.AppendU8(uint8(m.Reveal.Cards[1]))
	tb.AppendBytes(ops.EncodeScalar(m.SkU))
	return tb.Bytes()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

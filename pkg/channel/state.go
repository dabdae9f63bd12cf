package channel

import (
	"fmt"

	"github.com/taurusgroup/pedersen-channel/pkg/eddsa"
	"github.com/taurusgroup/pedersen-channel/pkg/hash"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
	zkopening "github.com/taurusgroup/pedersen-channel/pkg/zk/opening"
)

// State is one immutable channel state. Transitions build a new State and
// append the previous one to history, so live state and history entries
// never alias.
type State struct {
	sequence    uint64
	balances    map[ParticipantID]uint64
	commitments map[ParticipantID]*pedersen.Commitment
	openings    map[ParticipantID]*pedersen.Opening
	proofs      map[ParticipantID]*zkopening.Proof
	signatures  map[ParticipantID]eddsa.Signature
}

// Sequence returns the state's sequence number.
func (s *State) Sequence() uint64 { return s.sequence }

// Balance returns the participant's balance in this state.
func (s *State) Balance(id ParticipantID) uint64 { return s.balances[id] }

// Commitment returns the participant's balance commitment.
func (s *State) Commitment(id ParticipantID) *pedersen.Commitment { return s.commitments[id] }

// Proof returns the participant's proof of opening for this state.
func (s *State) Proof(id ParticipantID) *zkopening.Proof { return s.proofs[id] }

// Signature returns the participant's signature over this state, if present.
func (s *State) Signature(id ParticipantID) (eddsa.Signature, bool) {
	sig, ok := s.signatures[id]
	return sig, ok
}

// withSignature returns a copy of the state with the participant's signature
// stored. Commitments, openings and proofs are shared; they are never
// mutated after construction.
func (s *State) withSignature(id ParticipantID, sig eddsa.Signature) *State {
	signatures := make(map[ParticipantID]eddsa.Signature, len(s.signatures)+1)
	for pid, existing := range s.signatures {
		signatures[pid] = existing
	}
	signatures[id] = sig
	return &State{
		sequence:    s.sequence,
		balances:    s.balances,
		commitments: s.commitments,
		openings:    s.openings,
		proofs:      s.proofs,
		signatures:  signatures,
	}
}

// Snapshot is the read-only serialized view of one state. Openings are
// deliberately absent; they are only revealed in a ClosingPayload.
type Snapshot struct {
	Sequence    uint64                               `json:"sequence" cbor:"sequence"`
	Commitments map[ParticipantID]string             `json:"commitments" cbor:"commitments"`
	Proofs      map[ParticipantID]zkopening.HexProof `json:"proofs" cbor:"proofs"`
	Signatures  map[ParticipantID]string             `json:"signatures" cbor:"signatures"`
}

// Snapshot serializes the state for transport.
func (s *State) Snapshot() Snapshot {
	commitments := make(map[ParticipantID]string, len(s.commitments))
	for pid, c := range s.commitments {
		commitments[pid] = c.Hex()
	}
	proofs := make(map[ParticipantID]zkopening.HexProof, len(s.proofs))
	for pid, proof := range s.proofs {
		proofs[pid] = proof.Hex()
	}
	signatures := make(map[ParticipantID]string, len(s.signatures))
	for pid, sig := range s.signatures {
		signatures[pid] = sig.Hex()
	}
	return Snapshot{
		Sequence:    s.sequence,
		Commitments: commitments,
		Proofs:      proofs,
		Signatures:  signatures,
	}
}

// ClosingPayload is the full serialized current state submitted for
// cooperative settlement. This is the only point at which openings (the
// secret commitment randomness) are revealed.
type ClosingPayload struct {
	ChannelID   string                               `json:"channel_id" cbor:"channel_id"`
	Sequence    uint64                               `json:"sequence" cbor:"sequence"`
	Balances    map[ParticipantID]uint64             `json:"balances" cbor:"balances"`
	Commitments map[ParticipantID]string             `json:"commitments" cbor:"commitments"`
	Openings    map[ParticipantID]string             `json:"openings" cbor:"openings"`
	Proofs      map[ParticipantID]zkopening.HexProof `json:"proofs" cbor:"proofs"`
	Signatures  map[ParticipantID]string             `json:"signatures" cbor:"signatures"`
}

// StateDigest hashes (channelID, sequence, commitments ordered by role) into
// the message both participants sign. The settlement validator recomputes
// the exact same digest from its own record.
func StateDigest(channelID string, sequence uint64, commitments map[ParticipantID]*pedersen.Commitment) []byte {
	h := hash.New()
	_ = h.WriteAny(
		&hash.BytesWithDomain{TheDomain: "Channel State", Bytes: []byte(channelID)},
		sequence,
	)
	for _, pid := range Participants() {
		if c, ok := commitments[pid]; ok {
			_ = h.WriteAny([]byte(pid), c)
		}
	}
	return h.Sum()
}

// ProofContext builds the context string binding a proof of opening to one
// (channel, sequence, participant) triple. Proofs are unverifiable under
// any other context, which prevents replay across updates.
func ProofContext(channelID string, sequence uint64, id ParticipantID) []byte {
	return []byte(fmt.Sprintf("%s|%d|%s|opening-proof", channelID, sequence, id))
}

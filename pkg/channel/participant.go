package channel

import "github.com/taurusgroup/pedersen-channel/pkg/eddsa"

// ParticipantID is one of exactly two fixed channel roles. The protocol
// assumes precisely two participants; any other id is invalid.
type ParticipantID string

const (
	Alice ParticipantID = "alice"
	Bob   ParticipantID = "bob"
)

// Participants returns both roles in lexicographic order.
func Participants() [2]ParticipantID {
	return [2]ParticipantID{Alice, Bob}
}

// Valid reports whether id is one of the two fixed roles.
func (id ParticipantID) Valid() bool {
	return id == Alice || id == Bob
}

// Other returns the counterparty role. id must be valid.
func (id ParticipantID) Other() ParticipantID {
	switch id {
	case Alice:
		return Bob
	case Bob:
		return Alice
	}
	panic("channel: Other called on invalid participant id " + string(id))
}

// Participant pairs a fixed role with its signing key. Created once at
// channel open and immutable for the channel's lifetime.
type Participant struct {
	id  ParticipantID
	key *eddsa.PrivateKey
}

// ID returns the participant's role.
func (p *Participant) ID() ParticipantID { return p.id }

// VerifyKey derives the verification key; it is never stored independently.
func (p *Participant) VerifyKey() eddsa.PublicKey { return p.key.Public() }

// Package ledger simulates the settlement authority for cooperative channel
// closes. Every check re-derives from data the ledger itself stored at
// registration or update time; the closing payload is evidence, not
// authority.
package ledger

import (
	"fmt"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/pedersen-channel/pkg/channel"
	"github.com/taurusgroup/pedersen-channel/pkg/eddsa"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
	zkopening "github.com/taurusgroup/pedersen-channel/pkg/zk/opening"
)

type Error string

const (
	ErrUnknownChannel    Error = "unknown channel"
	ErrInvalidSettlement Error = "invalid settlement"
)

func (e Error) Error() string {
	return fmt.Sprintf("ledger: %s", string(e))
}

// Record is the ledger's view of one registered channel. closed transitions
// false→true exactly once and never back.
type Record struct {
	channelID   string
	sequence    uint64
	commitments map[channel.ParticipantID]*pedersen.Commitment
	verifyKeys  map[channel.ParticipantID]eddsa.PublicKey
	closed      bool
}

// Settlement is the authoritative result of a cooperative close.
type Settlement struct {
	ChannelID       string                           `json:"channel_id" cbor:"channel_id"`
	Sequence        uint64                           `json:"sequence" cbor:"sequence"`
	SettledBalances map[channel.ParticipantID]uint64 `json:"settled_balances" cbor:"settled_balances"`
	Verified        bool                             `json:"verified" cbor:"verified"`
}

// Ledger holds one record per registered channel.
type Ledger struct {
	group *pedersen.Parameters

	// mtx serializes record access. Records for different channel ids are
	// independent, but updates and closes read-then-write a record, so they
	// must not interleave for the same id.
	mtx     sync.Mutex
	records map[string]*Record
}

// New creates an empty ledger validating against the given group. A nil
// group selects the default parameters.
func New(group *pedersen.Parameters) *Ledger {
	if group == nil {
		group = pedersen.DefaultParameters()
	}
	return &Ledger{
		group:   group,
		records: map[string]*Record{},
	}
}

// Register snapshots the channel's current sequence, commitments and verify
// keys. Registering the same id twice replaces the tracked record, matching
// "open always registers fresh".
func (l *Ledger) Register(c *channel.Channel) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.records[c.ID()] = recordOf(c)
}

func recordOf(c *channel.Channel) *Record {
	state := c.State()
	commitments := make(map[channel.ParticipantID]*pedersen.Commitment, 2)
	for _, pid := range channel.Participants() {
		commitments[pid] = state.Commitment(pid).Clone()
	}
	return &Record{
		channelID:   c.ID(),
		sequence:    state.Sequence(),
		commitments: commitments,
		verifyKeys:  c.VerifyKeys(),
	}
}

// UpdateState refreshes the tracked sequence and commitments. Sequence
// numbers must never regress once observed.
func (l *Ledger) UpdateState(c *channel.Channel) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	record, ok := l.records[c.ID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, c.ID())
	}
	state := c.State()
	if state.Sequence() < record.sequence {
		return fmt.Errorf("%w: sequence regressed from %d to %d", ErrInvalidSettlement, record.sequence, state.Sequence())
	}

	commitments := make(map[channel.ParticipantID]*pedersen.Commitment, 2)
	for _, pid := range channel.Participants() {
		commitments[pid] = state.Commitment(pid).Clone()
	}
	record.sequence = state.Sequence()
	record.commitments = commitments
	return nil
}

// CooperativeClose validates the claimed closing state against the last
// accepted record and, only if every check for every participant passes,
// marks the record closed and returns the settled balances. Closing a
// settled channel is an error, not a no-op.
func (l *Ledger) CooperativeClose(payload *channel.ClosingPayload) (*Settlement, error) {
	if payload == nil || payload.ChannelID == "" {
		return nil, fmt.Errorf("%w: missing channel id", ErrInvalidSettlement)
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	record, ok := l.records[payload.ChannelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, payload.ChannelID)
	}
	if record.closed {
		return nil, fmt.Errorf("%w: channel already settled", ErrInvalidSettlement)
	}
	// The validator only settles the exact state it last tracked.
	if payload.Sequence != record.sequence {
		return nil, fmt.Errorf("%w: record at sequence %d, payload claims %d", ErrInvalidSettlement, record.sequence, payload.Sequence)
	}

	// Commitments must byte-for-byte match the last tracked state.
	for _, pid := range channel.Participants() {
		if payload.Commitments[pid] != record.commitments[pid].Hex() {
			return nil, fmt.Errorf("%w: commitment mismatch for participant %s", ErrInvalidSettlement, pid)
		}
	}

	digest := channel.StateDigest(record.channelID, record.sequence, record.commitments)

	for _, pid := range channel.Participants() {
		if err := l.checkParticipant(record, payload, digest, pid); err != nil {
			return nil, err
		}
	}

	record.closed = true

	settled := make(map[channel.ParticipantID]uint64, len(payload.Balances))
	for pid, balance := range payload.Balances {
		settled[pid] = balance
	}
	return &Settlement{
		ChannelID:       record.channelID,
		Sequence:        record.sequence,
		SettledBalances: settled,
		Verified:        true,
	}, nil
}

// checkParticipant verifies one participant's signature, opening and proof
// against the record's stored commitment and verify key.
func (l *Ledger) checkParticipant(record *Record, payload *channel.ClosingPayload, digest []byte, pid channel.ParticipantID) error {
	sigHex, ok := payload.Signatures[pid]
	if !ok {
		return fmt.Errorf("%w: missing signature for participant %s", ErrInvalidSettlement, pid)
	}
	sig, err := eddsa.SignatureFromHex(sigHex)
	if err != nil {
		return fmt.Errorf("%w: malformed signature for participant %s", ErrInvalidSettlement, pid)
	}
	if !record.verifyKeys[pid].Verify(digest, sig) {
		return fmt.Errorf("%w: invalid signature for participant %s", ErrInvalidSettlement, pid)
	}

	openingHex, okOpening := payload.Openings[pid]
	balance, okBalance := payload.Balances[pid]
	if !okOpening || !okBalance {
		return fmt.Errorf("%w: missing opening or balance for participant %s", ErrInvalidSettlement, pid)
	}
	opening, err := l.group.OpeningFromHex(openingHex)
	if err != nil {
		return fmt.Errorf("%w: malformed opening for participant %s", ErrInvalidSettlement, pid)
	}
	commitment := record.commitments[pid]
	if !l.group.Verify(commitment, new(saferith.Nat).SetUint64(balance), opening) {
		return fmt.Errorf("%w: opening does not match commitment for participant %s", ErrInvalidSettlement, pid)
	}

	proofHex, ok := payload.Proofs[pid]
	if !ok {
		return fmt.Errorf("%w: missing proof for participant %s", ErrInvalidSettlement, pid)
	}
	proof, err := zkopening.ProofFromHex(l.group, proofHex)
	if err != nil {
		return fmt.Errorf("%w: malformed proof for participant %s", ErrInvalidSettlement, pid)
	}
	public := zkopening.Public{
		Aux:        l.group,
		Commitment: commitment,
		Context:    channel.ProofContext(record.channelID, record.sequence, pid),
	}
	if !proof.Verify(public) {
		return fmt.Errorf("%w: invalid opening proof for participant %s", ErrInvalidSettlement, pid)
	}
	return nil
}

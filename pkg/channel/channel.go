package channel

import (
	"crypto/rand"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/google/uuid"
	"github.com/taurusgroup/pedersen-channel/pkg/eddsa"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
	zkopening "github.com/taurusgroup/pedersen-channel/pkg/zk/opening"
)

type Error string

const (
	ErrInvalidParticipant  Error = "invalid participant"
	ErrInvalidAmount       Error = "invalid amount"
	ErrInsufficientBalance Error = "insufficient balance"

	// ErrInternal indicates an implementation bug (a fresh proof failing its
	// own verification), never bad caller input.
	ErrInternal Error = "internal consistency failure"
)

func (e Error) Error() string {
	return fmt.Sprintf("channel: %s", string(e))
}

// Channel is one two-party payment channel: fixed participants, a current
// state and an append-only history of past states, oldest first.
type Channel struct {
	id           string
	group        *pedersen.Parameters
	participants map[ParticipantID]*Participant
	state        *State
	history      []*State
}

type options struct {
	group       *pedersen.Parameters
	channelID   string
	signingKeys map[ParticipantID]*eddsa.PrivateKey
}

// Option customizes Open.
type Option func(*options)

// WithParameters overrides the default commitment group.
func WithParameters(group *pedersen.Parameters) Option {
	return func(o *options) { o.group = group }
}

// WithChannelID sets the channel id instead of generating one.
func WithChannelID(id string) Option {
	return func(o *options) { o.channelID = id }
}

// WithSigningKeys supplies the participants' signing keys instead of
// generating fresh ones.
func WithSigningKeys(keys map[ParticipantID]*eddsa.PrivateKey) Option {
	return func(o *options) { o.signingKeys = keys }
}

// Open creates a channel at sequence 0, committing to both deposits, proving
// each opening under the sequence-0 context, and recording the initial state
// in history.
func Open(depositAlice, depositBob int64, opts ...Option) (*Channel, error) {
	if depositAlice < 0 || depositBob < 0 {
		return nil, fmt.Errorf("%w: deposits must be non-negative", ErrInvalidAmount)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	group := o.group
	if group == nil {
		group = pedersen.DefaultParameters()
	}
	channelID := o.channelID
	if channelID == "" {
		channelID = uuid.NewString()
	}

	participants := make(map[ParticipantID]*Participant, 2)
	for _, pid := range Participants() {
		key := o.signingKeys[pid]
		if key == nil {
			var err error
			key, err = eddsa.NewPrivateKey(rand.Reader)
			if err != nil {
				return nil, fmt.Errorf("channel: generate signing key for %s: %w", pid, err)
			}
		}
		participants[pid] = &Participant{id: pid, key: key}
	}

	balances := map[ParticipantID]uint64{
		Alice: uint64(depositAlice),
		Bob:   uint64(depositBob),
	}
	state, err := newProvenState(group, channelID, 0, balances)
	if err != nil {
		return nil, err
	}

	return &Channel{
		id:           channelID,
		group:        group,
		participants: participants,
		state:        state,
		history:      []*State{state},
	}, nil
}

// newProvenState commits to every balance with fresh randomness, proves each
// opening under the given sequence's context, and self-checks the proofs.
// A self-check failure is an internal error, not a caller error.
func newProvenState(group *pedersen.Parameters, channelID string, sequence uint64, balances map[ParticipantID]uint64) (*State, error) {
	commitments := make(map[ParticipantID]*pedersen.Commitment, 2)
	openings := make(map[ParticipantID]*pedersen.Opening, 2)
	proofs := make(map[ParticipantID]*zkopening.Proof, 2)

	for _, pid := range Participants() {
		balance := new(saferith.Nat).SetUint64(balances[pid])
		commitment, opening := group.Commit(rand.Reader, balance)

		public := zkopening.Public{
			Aux:        group,
			Commitment: commitment,
			Context:    ProofContext(channelID, sequence, pid),
		}
		proof := zkopening.NewProof(zkopening.Private{
			Message:    balance,
			Randomness: opening.Randomness(),
		}, public)
		if !proof.Verify(public) {
			return nil, fmt.Errorf("%w: fresh proof for %s does not verify", ErrInternal, pid)
		}

		commitments[pid] = commitment
		openings[pid] = opening
		proofs[pid] = proof
	}

	copied := make(map[ParticipantID]uint64, len(balances))
	for pid, balance := range balances {
		copied[pid] = balance
	}
	return &State{
		sequence:    sequence,
		balances:    copied,
		commitments: commitments,
		openings:    openings,
		proofs:      proofs,
		signatures:  map[ParticipantID]eddsa.Signature{},
	}, nil
}

// ID returns the channel's unique identifier.
func (c *Channel) ID() string { return c.id }

// Group returns the commitment group the channel commits in.
func (c *Channel) Group() *pedersen.Parameters { return c.group }

// State returns the current state.
func (c *Channel) State() *State { return c.state }

// VerifyKeys returns both participants' verification keys.
func (c *Channel) VerifyKeys() map[ParticipantID]eddsa.PublicKey {
	keys := make(map[ParticipantID]eddsa.PublicKey, len(c.participants))
	for pid, participant := range c.participants {
		keys[pid] = participant.VerifyKey()
	}
	return keys
}

// ApplyPayment moves amount from payer to the counterparty: the sequence
// advances, both balances are recommitted and reproved under the new
// sequence's context, and all signatures are cleared. Total channel value is
// conserved by construction.
func (c *Channel) ApplyPayment(payer ParticipantID, amount int64) (*State, error) {
	if !payer.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParticipant, payer)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer must be positive, got %d", ErrInvalidAmount, amount)
	}
	balance := c.state.balances[payer]
	if uint64(amount) > balance {
		return nil, fmt.Errorf("%w: %s holds %d, cannot transfer %d", ErrInsufficientBalance, payer, balance, amount)
	}

	payee := payer.Other()
	balances := map[ParticipantID]uint64{
		payer: balance - uint64(amount),
		payee: c.state.balances[payee] + uint64(amount),
	}

	next, err := newProvenState(c.group, c.id, c.state.sequence+1, balances)
	if err != nil {
		return nil, err
	}
	c.state = next
	c.history = append(c.history, next)
	return next, nil
}

// StateDigest returns the digest both participants sign for the current state.
func (c *Channel) StateDigest() []byte {
	return StateDigest(c.id, c.state.sequence, c.state.commitments)
}

// SignState signs the current state digest as the given participant.
// Re-signing the same state overwrites with an equivalent signature; any
// later payment invalidates all signatures.
func (c *Channel) SignState(id ParticipantID) (eddsa.Signature, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParticipant, id)
	}
	sig := c.participants[id].key.Sign(c.StateDigest())
	c.state = c.state.withSignature(id, sig)
	return sig, nil
}

// IsFullySigned reports whether every participant has signed the current state.
func (c *Channel) IsFullySigned() bool {
	for _, pid := range Participants() {
		if _, ok := c.state.signatures[pid]; !ok {
			return false
		}
	}
	return true
}

// VerifySignatures recomputes the digest and checks every stored signature
// against its verify key. A missing signature yields false, not an error.
func (c *Channel) VerifySignatures() bool {
	digest := c.StateDigest()
	for _, pid := range Participants() {
		sig, ok := c.state.signatures[pid]
		if !ok {
			return false
		}
		if !c.participants[pid].VerifyKey().Verify(digest, sig) {
			return false
		}
	}
	return true
}

// ClosingPayload exports the full current state for cooperative settlement,
// including the secret openings.
func (c *Channel) ClosingPayload() *ClosingPayload {
	balances := make(map[ParticipantID]uint64, len(c.state.balances))
	commitments := make(map[ParticipantID]string, 2)
	openings := make(map[ParticipantID]string, 2)
	proofs := make(map[ParticipantID]zkopening.HexProof, 2)
	signatures := make(map[ParticipantID]string, len(c.state.signatures))

	for pid, balance := range c.state.balances {
		balances[pid] = balance
	}
	for _, pid := range Participants() {
		commitments[pid] = c.state.commitments[pid].Hex()
		openings[pid] = c.state.openings[pid].Hex()
		proofs[pid] = c.state.proofs[pid].Hex()
	}
	for pid, sig := range c.state.signatures {
		signatures[pid] = sig.Hex()
	}

	return &ClosingPayload{
		ChannelID:   c.id,
		Sequence:    c.state.sequence,
		Balances:    balances,
		Commitments: commitments,
		Openings:    openings,
		Proofs:      proofs,
		Signatures:  signatures,
	}
}

// HistorySnapshots returns serialized views of all past states, oldest
// first. The history itself is never mutated.
func (c *Channel) HistorySnapshots() []Snapshot {
	snapshots := make([]Snapshot, len(c.history))
	for i, state := range c.history {
		snapshots[i] = state.Snapshot()
	}
	return snapshots
}

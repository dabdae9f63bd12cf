package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/pedersen-channel/pkg/channel"
)

// settledChannel opens a channel, plays the given payments into it, signs the
// final state with both participants, and registers every state transition
// with the ledger.
func settledChannel(t *testing.T, l *Ledger, depositAlice, depositBob int64, payments ...int64) *channel.Channel {
	t.Helper()
	c, err := channel.Open(depositAlice, depositBob)
	require.NoError(t, err)
	l.Register(c)

	for _, amount := range payments {
		payer := channel.Alice
		if amount < 0 {
			payer, amount = channel.Bob, -amount
		}
		_, err = c.ApplyPayment(payer, amount)
		require.NoError(t, err)
		require.NoError(t, l.UpdateState(c))
	}

	_, err = c.SignState(channel.Alice)
	require.NoError(t, err)
	_, err = c.SignState(channel.Bob)
	require.NoError(t, err)
	return c
}

func TestCooperativeClose(t *testing.T) {
	l := New(nil)
	c := settledChannel(t, l, 200, 50, 25)

	settlement, err := l.CooperativeClose(c.ClosingPayload())
	require.NoError(t, err)

	assert.Equal(t, c.ID(), settlement.ChannelID)
	assert.EqualValues(t, 1, settlement.Sequence)
	assert.EqualValues(t, 175, settlement.SettledBalances[channel.Alice])
	assert.EqualValues(t, 75, settlement.SettledBalances[channel.Bob])
	assert.True(t, settlement.Verified)
}

func TestCloseIsTerminal(t *testing.T) {
	l := New(nil)
	c := settledChannel(t, l, 100, 100, 10)
	payload := c.ClosingPayload()

	_, err := l.CooperativeClose(payload)
	require.NoError(t, err)

	_, err = l.CooperativeClose(payload)
	assert.ErrorIs(t, err, ErrInvalidSettlement)
	assert.Contains(t, err.Error(), "already settled")
}

func TestCloseUnknownChannel(t *testing.T) {
	l := New(nil)
	c, err := channel.Open(100, 100)
	require.NoError(t, err)
	_, err = c.SignState(channel.Alice)
	require.NoError(t, err)
	_, err = c.SignState(channel.Bob)
	require.NoError(t, err)

	_, err = l.CooperativeClose(c.ClosingPayload())
	assert.ErrorIs(t, err, ErrUnknownChannel)

	_, err = l.CooperativeClose(nil)
	assert.ErrorIs(t, err, ErrInvalidSettlement)
	_, err = l.CooperativeClose(&channel.ClosingPayload{})
	assert.ErrorIs(t, err, ErrInvalidSettlement)
}

func TestCloseStalePayloadRejected(t *testing.T) {
	l := New(nil)
	c, err := channel.Open(100, 100)
	require.NoError(t, err)
	l.Register(c)

	// Both participants sign the opening state, then the channel moves on and
	// the ledger tracks the newer state.
	_, err = c.SignState(channel.Alice)
	require.NoError(t, err)
	_, err = c.SignState(channel.Bob)
	require.NoError(t, err)
	stale := c.ClosingPayload()

	_, err = c.ApplyPayment(channel.Alice, 10)
	require.NoError(t, err)
	require.NoError(t, l.UpdateState(c))

	_, err = l.CooperativeClose(stale)
	assert.ErrorIs(t, err, ErrInvalidSettlement)
	assert.Contains(t, err.Error(), "sequence")
}

func TestCloseRejectsTampering(t *testing.T) {
	l := New(nil)
	c := settledChannel(t, l, 200, 50, 25)

	flipHex := func(s string) string {
		if strings.HasPrefix(s, "0") {
			return "1" + s[1:]
		}
		return "0" + s[1:]
	}

	for name, mutate := range map[string]func(p *channel.ClosingPayload){
		"balance":   func(p *channel.ClosingPayload) { p.Balances[channel.Alice]++ },
		"opening":   func(p *channel.ClosingPayload) { p.Openings[channel.Bob] = flipHex(p.Openings[channel.Bob]) },
		"proof":     func(p *channel.ClosingPayload) { pr := p.Proofs[channel.Alice]; pr.ResponseM = flipHex(pr.ResponseM); p.Proofs[channel.Alice] = pr },
		"signature": func(p *channel.ClosingPayload) { p.Signatures[channel.Bob] = flipHex(p.Signatures[channel.Bob]) },
		"no-sig":    func(p *channel.ClosingPayload) { delete(p.Signatures, channel.Alice) },
		"no-proof":  func(p *channel.ClosingPayload) { delete(p.Proofs, channel.Bob) },
	} {
		t.Run(name, func(t *testing.T) {
			payload := c.ClosingPayload()
			mutate(payload)
			_, err := l.CooperativeClose(payload)
			assert.ErrorIs(t, err, ErrInvalidSettlement)
		})
	}

	// The untampered payload still closes: failed attempts leave no trace.
	_, err := l.CooperativeClose(c.ClosingPayload())
	assert.NoError(t, err)
}

func TestCloseRejectsForeignCommitments(t *testing.T) {
	l := New(nil)
	c := settledChannel(t, l, 100, 100, 10)
	other := settledChannel(t, l, 100, 100, 10)

	payload := c.ClosingPayload()
	payload.Commitments[channel.Alice] = other.ClosingPayload().Commitments[channel.Alice]

	_, err := l.CooperativeClose(payload)
	assert.ErrorIs(t, err, ErrInvalidSettlement)
	assert.Contains(t, err.Error(), "commitment mismatch")
}

func TestUpdateStateMonotonic(t *testing.T) {
	l := New(nil)
	c, err := channel.Open(100, 100)
	require.NoError(t, err)

	err = l.UpdateState(c)
	assert.ErrorIs(t, err, ErrUnknownChannel)

	l.Register(c)
	_, err = c.ApplyPayment(channel.Alice, 10)
	require.NoError(t, err)
	require.NoError(t, l.UpdateState(c))

	// Re-registering resets the record, so open always starts fresh.
	fresh, err := channel.Open(50, 50, channel.WithChannelID(c.ID()))
	require.NoError(t, err)
	l.Register(fresh)
	require.NoError(t, l.UpdateState(fresh))
}

func TestCloseRequiresBothSignatures(t *testing.T) {
	l := New(nil)
	c, err := channel.Open(100, 100)
	require.NoError(t, err)
	l.Register(c)
	_, err = c.SignState(channel.Alice)
	require.NoError(t, err)

	_, err = l.CooperativeClose(c.ClosingPayload())
	assert.ErrorIs(t, err, ErrInvalidSettlement)
	assert.Contains(t, err.Error(), "missing signature")
}

package pedersen

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParametersValid(t *testing.T) {
	group := DefaultParameters()
	require.NoError(t, ValidateParameters(group.P(), group.Q(), group.G(), group.H()))
}

func TestHDerivationReproducible(t *testing.T) {
	group := DefaultParameters()
	e1 := deriveHExponent(group.Q())
	e2 := deriveHExponent(group.Q())
	require.EqualValues(t, 1, e1.Eq(e2), "derivation must be deterministic")

	h := new(saferith.Nat).Exp(group.G(), e1, group.P())
	assert.EqualValues(t, 1, h.Eq(group.H()), "h must be reproducible from g")
}

func TestValidateParametersRejectsBadGenerator(t *testing.T) {
	group := DefaultParameters()

	one := new(saferith.Nat).SetUint64(1)
	// p-1 has order 2, not q.
	pMinusOne := new(saferith.Nat).Sub(group.P().Nat(), one, -1)
	err := ValidateParameters(group.P(), group.Q(), pMinusOne, group.H())
	assert.ErrorIs(t, err, ErrNotGenerator)

	err = ValidateParameters(group.P(), group.Q(), group.G(), group.G())
	assert.ErrorIs(t, err, ErrGEqualH)

	err = ValidateParameters(nil, group.Q(), group.G(), group.H())
	assert.ErrorIs(t, err, ErrNilFields)
}

func TestCommitVerify(t *testing.T) {
	group := DefaultParameters()
	message := new(saferith.Nat).SetUint64(123)
	commitment, opening := group.Commit(rand.Reader, message)

	assert.True(t, group.Verify(commitment, message, opening))
	assert.False(t, group.Verify(commitment, new(saferith.Nat).SetUint64(124), opening), "wrong message must not open the commitment")
	assert.False(t, group.Verify(nil, message, opening))
	assert.False(t, group.Verify(commitment, message, nil))
}

func TestCommitHiding(t *testing.T) {
	group := DefaultParameters()
	message := new(saferith.Nat).SetUint64(55)
	c1, _ := group.Commit(rand.Reader, message)
	c2, _ := group.Commit(rand.Reader, message)
	assert.False(t, c1.Equal(c2), "fresh randomness must give distinct commitments")
}

func TestHomomorphism(t *testing.T) {
	group := DefaultParameters()
	m1 := new(saferith.Nat).SetUint64(40)
	m2 := new(saferith.Nat).SetUint64(60)

	c1, o1 := group.Commit(rand.Reader, m1)
	c2, o2 := group.Commit(rand.Reader, m2)

	combined, err := group.Add(c1, c2)
	require.NoError(t, err)
	combinedOpening, err := group.AddOpenings(o1, o2)
	require.NoError(t, err)
	combinedMessage, err := group.AddMessages(m1, m2)
	require.NoError(t, err)

	assert.True(t, group.Verify(combined, combinedMessage, combinedOpening), "sum commitment must open to the message sum")
}

func TestDifference(t *testing.T) {
	group := DefaultParameters()
	m1 := new(saferith.Nat).SetUint64(90)
	m2 := new(saferith.Nat).SetUint64(30)

	c1, o1 := group.Commit(rand.Reader, m1)
	c2, o2 := group.Commit(rand.Reader, m2)

	diff, err := group.Sub(c1, c2)
	require.NoError(t, err)

	// Opening of the difference is o1 - o2 mod q.
	negR := new(saferith.Nat).ModNeg(o2.Randomness(), group.Q())
	diffOpening, err := group.AddOpenings(o1, NewOpening(negR))
	require.NoError(t, err)

	assert.True(t, group.Verify(diff, new(saferith.Nat).SetUint64(60), diffOpening))
}

func TestAggregateNilRejected(t *testing.T) {
	group := DefaultParameters()
	c, _ := group.Commit(rand.Reader, new(saferith.Nat).SetUint64(1))

	_, err := group.Add(c, nil)
	assert.ErrorIs(t, err, ErrNilFields)
	_, err = group.Negate(nil)
	assert.ErrorIs(t, err, ErrNilFields)
	_, err = group.AddOpenings(nil)
	assert.ErrorIs(t, err, ErrNilFields)
}

func TestCommitmentHexRoundTrip(t *testing.T) {
	group := DefaultParameters()
	commitment, opening := group.Commit(rand.Reader, new(saferith.Nat).SetUint64(77))

	restored, err := group.CommitmentFromHex(commitment.Hex())
	require.NoError(t, err)
	assert.True(t, commitment.Equal(restored))

	restoredOpening, err := group.OpeningFromHex(opening.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 1, opening.Randomness().Eq(restoredOpening.Randomness()))
}

func TestCommitmentFromHexRejectsBadInput(t *testing.T) {
	group := DefaultParameters()

	_, err := group.CommitmentFromHex("abcd")
	assert.ErrorIs(t, err, ErrBadEncoding)

	// p itself is outside [0, p).
	pHex := (&Commitment{value: group.P().Nat()}).Hex()
	_, err = group.CommitmentFromHex(pHex)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

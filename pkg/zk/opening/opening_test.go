package zkopening

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
)

func testPublicPrivate(t *testing.T, context string) (Public, Private) {
	t.Helper()
	group := pedersen.DefaultParameters()
	message := new(saferith.Nat).SetUint64(175)
	commitment, opening := group.Commit(rand.Reader, message)
	public := Public{
		Aux:        group,
		Commitment: commitment,
		Context:    []byte(context),
	}
	private := Private{
		Message:    message,
		Randomness: opening.Randomness(),
	}
	return public, private
}

func TestProofVerifies(t *testing.T) {
	public, private := testPublicPrivate(t, "chan-1|3|alice|opening-proof")
	proof := NewProof(private, public)
	assert.True(t, proof.Verify(public))
}

func TestProofContextBinding(t *testing.T) {
	public, private := testPublicPrivate(t, "chan-1|3|alice|opening-proof")
	proof := NewProof(private, public)

	other := public
	other.Context = []byte("chan-1|4|alice|opening-proof")
	assert.False(t, proof.Verify(other), "proof must not verify under another context")
}

func TestProofWrongWitness(t *testing.T) {
	public, private := testPublicPrivate(t, "ctx")
	private.Message = new(saferith.Nat).SetUint64(176)
	proof := NewProof(private, public)
	assert.False(t, proof.Verify(public))
}

func TestProofTamperedResponses(t *testing.T) {
	public, private := testPublicPrivate(t, "ctx")
	proof := NewProof(private, public)
	require.True(t, proof.Verify(public))

	q := public.Aux.Q()
	one := new(saferith.Nat).SetUint64(1)

	tampered := &Proof{
		T:         proof.T,
		ResponseM: new(saferith.Nat).ModAdd(proof.ResponseM, one, q),
		ResponseR: proof.ResponseR,
	}
	assert.False(t, tampered.Verify(public))

	tampered = &Proof{
		T:         new(saferith.Nat).ModMul(proof.T, public.Aux.G(), public.Aux.P()),
		ResponseM: proof.ResponseM,
		ResponseR: proof.ResponseR,
	}
	assert.False(t, tampered.Verify(public))
}

func TestProofNilRejected(t *testing.T) {
	public, private := testPublicPrivate(t, "ctx")
	proof := NewProof(private, public)

	var nilProof *Proof
	assert.False(t, nilProof.Verify(public))
	assert.False(t, (&Proof{}).Verify(public))

	public.Commitment = nil
	assert.False(t, proof.Verify(public))
}

func TestProofHexRoundTrip(t *testing.T) {
	public, private := testPublicPrivate(t, "round-trip")
	proof := NewProof(private, public)

	data, err := cbor.Marshal(proof.Hex())
	require.NoError(t, err)
	var h HexProof
	require.NoError(t, cbor.Unmarshal(data, &h))

	restored, err := ProofFromHex(public.Aux, h)
	require.NoError(t, err)
	assert.True(t, restored.Verify(public), "restored proof must still verify")
}

func TestProofFromHexRejectsBadFields(t *testing.T) {
	public, private := testPublicPrivate(t, "bad-fields")
	h := NewProof(private, public).Hex()

	h.ResponseM = "zz"
	_, err := ProofFromHex(public.Aux, h)
	assert.ErrorIs(t, err, pedersen.ErrBadEncoding)
}

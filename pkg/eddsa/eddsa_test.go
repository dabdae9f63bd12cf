package eddsa

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	sk, err := NewPrivateKey(rand.Reader)
	require.NoError(t, err)

	message := []byte("state digest")
	signature := sk.Sign(message)

	assert.True(t, sk.Public().Verify(message, signature))
	assert.False(t, sk.Public().Verify([]byte("other digest"), signature))

	other, err := NewPrivateKey(rand.Reader)
	require.NoError(t, err)
	assert.False(t, other.Public().Verify(message, signature))
}

func TestPrivateKeyHexRoundTrip(t *testing.T) {
	sk, err := NewPrivateKey(rand.Reader)
	require.NoError(t, err)

	restored, err := PrivateKeyFromHex(sk.Hex())
	require.NoError(t, err)
	assert.True(t, sk.Public().Equal(restored.Public()))

	message := []byte("hello")
	assert.True(t, restored.Public().Verify(message, sk.Sign(message)))
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	sk, err := NewPrivateKey(rand.Reader)
	require.NoError(t, err)

	pk, err := PublicKeyFromHex(sk.Public().Hex())
	require.NoError(t, err)
	assert.True(t, pk.Equal(sk.Public()))
}

func TestSignatureHexRoundTrip(t *testing.T) {
	sk, err := NewPrivateKey(rand.Reader)
	require.NoError(t, err)

	message := []byte("payload")
	signature, err := SignatureFromHex(sk.Sign(message).Hex())
	require.NoError(t, err)
	assert.True(t, sk.Public().Verify(message, signature))
}

func TestBadEncodingsRejected(t *testing.T) {
	_, err := PrivateKeyFromHex("abcd")
	assert.ErrorIs(t, err, ErrBadSeed)

	_, err = PublicKeyFromHex("not-hex")
	assert.ErrorIs(t, err, ErrBadPublicKey)

	_, err = SignatureFromHex("00")
	assert.ErrorIs(t, err, ErrBadSignature)

	var empty PublicKey
	assert.False(t, empty.Verify([]byte("m"), make(Signature, 64)))
}

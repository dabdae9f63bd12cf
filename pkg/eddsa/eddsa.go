// Package eddsa wraps Ed25519 as the channel's signing capability.
//
// Every state update is co-signed by both participants; the channel and
// ledger only need sign/verify over byte messages plus hex encodings of
// seeds, public keys and signatures.
package eddsa

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
)

type Error string

const (
	ErrBadSeed      Error = "seed must be 32 hex-encoded bytes"
	ErrBadPublicKey Error = "public key must be 32 hex-encoded bytes"
	ErrBadSignature Error = "signature must be 64 hex-encoded bytes"
)

func (e Error) Error() string {
	return fmt.Sprintf("eddsa: %s", string(e))
}

// PrivateKey is an Ed25519 signing key for one channel participant.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PublicKey is the corresponding verification key.
type PublicKey struct {
	key ed25519.PublicKey
}

// Signature holds raw Ed25519 signature bytes.
type Signature []byte

// NewPrivateKey generates a signing key using rand.
func NewPrivateKey(rand io.Reader) (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("eddsa: generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// Public returns the verification key derived from the signing key.
func (sk *PrivateKey) Public() PublicKey {
	return PublicKey{key: sk.key.Public().(ed25519.PublicKey)}
}

// Sign signs an arbitrary byte message.
func (sk *PrivateKey) Sign(message []byte) Signature {
	return Signature(ed25519.Sign(sk.key, message))
}

// Hex encodes the private key's seed.
func (sk *PrivateKey) Hex() string {
	return hex.EncodeToString(sk.key.Seed())
}

// PrivateKeyFromHex restores a signing key from its hex-encoded seed.
func PrivateKeyFromHex(value string) (*PrivateKey, error) {
	seed, err := hex.DecodeString(value)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, ErrBadSeed
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// Verify reports whether signature is valid for message under this key.
func (pk PublicKey) Verify(message []byte, signature Signature) bool {
	if len(pk.key) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pk.key, message, signature)
}

// Hex encodes the public key.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk.key)
}

// Equal reports whether both keys hold the same bytes.
func (pk PublicKey) Equal(other PublicKey) bool {
	return pk.key.Equal(other.key)
}

// PublicKeyFromHex restores a verification key from hex.
func PublicKeyFromHex(value string) (PublicKey, error) {
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, ErrBadPublicKey
	}
	return PublicKey{key: ed25519.PublicKey(raw)}, nil
}

// Hex encodes the raw signature bytes.
func (s Signature) Hex() string {
	return hex.EncodeToString(s)
}

// SignatureFromHex restores a signature from hex.
func SignatureFromHex(value string) (Signature, error) {
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return nil, ErrBadSignature
	}
	return Signature(raw), nil
}

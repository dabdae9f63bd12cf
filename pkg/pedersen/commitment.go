package pedersen

import (
	"encoding/hex"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/pedersen-channel/internal/params"
)

// Commitment is a single group element C = gᵐ hʳ (mod p). It is hiding and
// binding for one message mod q, and is never mutated once created.
type Commitment struct {
	value *saferith.Nat
}

// Nat returns the underlying group element.
func (c *Commitment) Nat() *saferith.Nat { return c.value }

// Clone returns an independent copy of the commitment.
func (c *Commitment) Clone() *Commitment {
	return &Commitment{value: new(saferith.Nat).SetNat(c.value)}
}

// Equal reports whether both commitments hold the same group element.
func (c *Commitment) Equal(other *Commitment) bool {
	if c == nil || other == nil || c.value == nil || other.value == nil {
		return false
	}
	return c.value.Eq(other.value) == 1
}

// Bytes returns the fixed-width big-endian encoding of the commitment.
func (c *Commitment) Bytes() []byte {
	buf := make([]byte, params.BytesGroup)
	c.value.FillBytes(buf)
	return buf
}

// Hex returns the fixed-width big-endian hex encoding of the commitment.
func (c *Commitment) Hex() string {
	return hex.EncodeToString(c.Bytes())
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (c *Commitment) WriteTo(w io.Writer) (int64, error) {
	if c == nil || c.value == nil {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write(c.Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (Commitment) Domain() string {
	return "Pedersen Commitment"
}

// CommitmentFromHex restores a commitment from its fixed-width hex encoding,
// rejecting values outside [0, p).
func (p *Parameters) CommitmentFromHex(value string) (*Commitment, error) {
	n, err := natFromHex(value)
	if err != nil {
		return nil, err
	}
	if _, _, lt := n.CmpMod(p.p); lt != 1 {
		return nil, ErrOutOfRange
	}
	return &Commitment{value: n}, nil
}

// Opening is the randomness scalar used to create a commitment. It is paired
// with exactly one commitment and must stay secret until settlement.
type Opening struct {
	randomness *saferith.Nat
}

// NewOpening wraps a randomness scalar as an opening.
func NewOpening(randomness *saferith.Nat) *Opening {
	return &Opening{randomness: randomness}
}

// Randomness returns the opening's scalar.
func (o *Opening) Randomness() *saferith.Nat { return o.randomness }

// Clone returns an independent copy of the opening.
func (o *Opening) Clone() *Opening {
	return &Opening{randomness: new(saferith.Nat).SetNat(o.randomness)}
}

// Hex returns the fixed-width big-endian hex encoding of the opening scalar.
func (o *Opening) Hex() string {
	buf := make([]byte, params.BytesScalar)
	o.randomness.FillBytes(buf)
	return hex.EncodeToString(buf)
}

// OpeningFromHex restores an opening from its fixed-width hex encoding,
// rejecting scalars outside [0, q).
func (p *Parameters) OpeningFromHex(value string) (*Opening, error) {
	n, err := natFromHex(value)
	if err != nil {
		return nil, err
	}
	if _, _, lt := n.CmpMod(p.q); lt != 1 {
		return nil, ErrOutOfRange
	}
	return &Opening{randomness: n}, nil
}

func natFromHex(value string) (*saferith.Nat, error) {
	if len(value) != params.HexGroup {
		return nil, ErrBadEncoding
	}
	buf, err := hex.DecodeString(value)
	if err != nil {
		return nil, ErrBadEncoding
	}
	return new(saferith.Nat).SetBytes(buf), nil
}

package pedersen

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/pedersen-channel/internal/params"
	"github.com/taurusgroup/pedersen-channel/pkg/math/sample"
)

type Error string

const (
	ErrNilFields    Error = "contains nil field"
	ErrNotSafePrime Error = "p must equal 2q+1"
	ErrNotGenerator Error = "generators must have order q modulo p"
	ErrGEqualH      Error = "g cannot be equal to h"
	ErrBadEncoding  Error = "invalid fixed-width hex encoding"
	ErrOutOfRange   Error = "value outside the expected integer domain"
)

func (e Error) Error() string {
	return fmt.Sprintf("pedersen: %s", string(e))
}

// Parameters is a fixed prime order group for Pedersen commitments:
// a safe prime modulus p = 2q+1 and two generators g, h of the order-q
// subgroup whose discrete log relation is unknown to every party.
type Parameters struct {
	p, q *saferith.Modulus
	g, h *saferith.Nat
}

// New returns a new set of Pedersen parameters.
// Assumes ValidateParameters(p, q, g, h) returns nil.
func New(p, q *saferith.Modulus, g, h *saferith.Nat) *Parameters {
	return &Parameters{
		p: p,
		q: q,
		g: g,
		h: h,
	}
}

// ValidateParameters checks p, q, g and h, and returns an error if any of the
// following is true:
// - p, q, g, or h is nil.
// - p ≠ 2q+1.
// - g, h are not in [2, …, p-1], or do not have order q.
// - g = h.
func ValidateParameters(p, q *saferith.Modulus, g, h *saferith.Nat) error {
	if p == nil || q == nil || g == nil || h == nil {
		return ErrNilFields
	}
	// p = 2q+1
	pNat := new(saferith.Nat).SetNat(q.Nat())
	pNat.Add(pNat, q.Nat(), -1)
	pNat.Add(pNat, new(saferith.Nat).SetUint64(1), -1)
	if pNat.Eq(p.Nat()) != 1 {
		return ErrNotSafePrime
	}
	one := new(saferith.Nat).SetUint64(1)
	for _, gen := range []*saferith.Nat{g, h} {
		if _, _, lt := gen.CmpMod(p); lt != 1 {
			return ErrNotGenerator
		}
		if gen.EqZero() == 1 || gen.Eq(one) == 1 {
			return ErrNotGenerator
		}
		// genᑫ ≡ 1 (mod p), and gen ≠ 1, so the order is exactly q.
		genQ := new(saferith.Nat).Exp(gen, q.Nat(), p)
		if genQ.Eq(one) != 1 {
			return ErrNotGenerator
		}
	}
	if g.Eq(h) == 1 {
		return ErrGEqualH
	}
	return nil
}

// P is the safe prime modulus.
func (p *Parameters) P() *saferith.Modulus { return p.p }

// Q is the order of the subgroup generated by G and H, with P = 2Q+1.
func (p *Parameters) Q() *saferith.Modulus { return p.q }

// G is the first generator.
func (p *Parameters) G() *saferith.Nat { return p.g }

// H = Gᵉ (mod P), for a deterministically derived exponent e.
func (p *Parameters) H() *saferith.Nat { return p.h }

// RandomScalar samples a scalar uniformly from [1, q-1] using rand.
func (p *Parameters) RandomScalar(rand io.Reader) *saferith.Nat {
	return sample.Scalar(rand, p.q)
}

// Commit computes gᵐ hʳ (mod p) with fresh randomness r drawn from rand.
//
// The message is reduced mod q, so callers must keep messages non-negative
// and below q; channel balances always are.
func (p *Parameters) Commit(rand io.Reader, message *saferith.Nat) (*Commitment, *Opening) {
	opening := &Opening{randomness: p.RandomScalar(rand)}
	return p.CommitWith(message, opening.randomness), opening
}

// CommitWith computes gᵐ hʳ (mod p) for caller-supplied randomness r.
// Both exponents are reduced mod q.
func (p *Parameters) CommitWith(message, randomness *saferith.Nat) *Commitment {
	m := new(saferith.Nat).Mod(message, p.q)
	r := new(saferith.Nat).Mod(randomness, p.q)
	gm := new(saferith.Nat).Exp(p.g, m, p.p)
	hr := new(saferith.Nat).Exp(p.h, r, p.p)
	return &Commitment{value: gm.ModMul(gm, hr, p.p)}
}

// Verify returns true if commitment ≡ gᵐ hʳ (mod p) under the opening's
// randomness r.
func (p *Parameters) Verify(commitment *Commitment, message *saferith.Nat, opening *Opening) bool {
	if commitment == nil || commitment.value == nil || message == nil || opening == nil || opening.randomness == nil {
		return false
	}
	if _, _, lt := commitment.value.CmpMod(p.p); lt != 1 {
		return false
	}
	expected := p.CommitWith(message, opening.randomness)
	return expected.value.Eq(commitment.value) == 1
}

// Add aggregates commitments homomorphically, multiplying their values mod p.
// The result commits to the sum of the underlying messages mod q.
func (p *Parameters) Add(commitments ...*Commitment) (*Commitment, error) {
	acc := new(saferith.Nat).SetUint64(1)
	for _, c := range commitments {
		if c == nil || c.value == nil {
			return nil, ErrNilFields
		}
		acc.ModMul(acc, c.value, p.p)
	}
	return &Commitment{value: acc}, nil
}

// Negate returns the inverse commitment, representing negation of the message.
func (p *Parameters) Negate(commitment *Commitment) (*Commitment, error) {
	if commitment == nil || commitment.value == nil {
		return nil, ErrNilFields
	}
	inverse := new(saferith.Nat).ModInverse(commitment.value, p.p)
	return &Commitment{value: inverse}, nil
}

// Sub computes lhs - rhs in the commitment group.
func (p *Parameters) Sub(lhs, rhs *Commitment) (*Commitment, error) {
	negated, err := p.Negate(rhs)
	if err != nil {
		return nil, err
	}
	return p.Add(lhs, negated)
}

// AddMessages sums messages mod q, consistently with Add.
func (p *Parameters) AddMessages(messages ...*saferith.Nat) (*saferith.Nat, error) {
	total := new(saferith.Nat).SetUint64(0)
	for _, m := range messages {
		if m == nil {
			return nil, ErrNilFields
		}
		reduced := new(saferith.Nat).Mod(m, p.q)
		total.ModAdd(total, reduced, p.q)
	}
	return total, nil
}

// AddOpenings combines openings when commitments are added together.
func (p *Parameters) AddOpenings(openings ...*Opening) (*Opening, error) {
	total := new(saferith.Nat).SetUint64(0)
	for _, o := range openings {
		if o == nil || o.randomness == nil {
			return nil, ErrNilFields
		}
		total.ModAdd(total, o.randomness, p.q)
	}
	return &Opening{randomness: total}, nil
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (p *Parameters) WriteTo(w io.Writer) (int64, error) {
	if p == nil {
		return 0, io.ErrUnexpectedEOF
	}
	nAll := int64(0)
	buf := make([]byte, params.BytesGroup)
	for _, i := range []*saferith.Nat{p.p.Nat(), p.g, p.h} {
		i.FillBytes(buf)
		n, err := w.Write(buf)
		nAll += int64(n)
		if err != nil {
			return nAll, err
		}
	}
	return nAll, nil
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (Parameters) Domain() string {
	return "Pedersen Group Parameters"
}

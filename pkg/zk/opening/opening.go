package zkopening

import (
	"crypto/rand"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/pedersen-channel/internal/params"
	"github.com/taurusgroup/pedersen-channel/pkg/hash"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
)

const proofDomain = "pedersen-channel/opening-proof/v1"

type Public struct {
	// Aux is the group the commitment lives in.
	Aux *pedersen.Parameters
	// Commitment = gᵐ hʳ (mod p).
	Commitment *pedersen.Commitment
	// Context binds the proof to one (channel, sequence, participant) triple.
	// A proof verifies only under the exact context it was produced for.
	Context []byte
}

type Private struct {
	// Message m committed to.
	Message *saferith.Nat
	// Randomness r from the commitment's opening.
	Randomness *saferith.Nat
}

type Proof struct {
	// T = gʷᵐ hʷʳ (mod p).
	T *saferith.Nat
	// ResponseM = wm + c·m (mod q).
	ResponseM *saferith.Nat
	// ResponseR = wr + c·r (mod q).
	ResponseR *saferith.Nat
}

// NewProof proves knowledge of (m, r) opening public.Commitment, bound to
// public.Context.
func NewProof(private Private, public Public) *Proof {
	group := public.Aux
	q := group.Q()
	p := group.P()

	wm := group.RandomScalar(rand.Reader)
	wr := group.RandomScalar(rand.Reader)
	t := new(saferith.Nat).Exp(group.G(), wm, p)
	hwr := new(saferith.Nat).Exp(group.H(), wr, p)
	t.ModMul(t, hwr, p)

	c := challenge(public, t)

	m := new(saferith.Nat).Mod(private.Message, q)
	responseM := new(saferith.Nat).ModMul(c, m, q)
	responseM.ModAdd(responseM, wm, q)
	responseR := new(saferith.Nat).ModMul(c, private.Randomness, q)
	responseR.ModAdd(responseR, wr, q)

	return &Proof{
		T:         t,
		ResponseM: responseM,
		ResponseR: responseR,
	}
}

// Verify recomputes the challenge from (context, commitment, T) and accepts
// iff gʳᵐ hʳʳ ≡ T·Cᶜ (mod p).
func (proof *Proof) Verify(public Public) bool {
	if proof == nil || proof.T == nil || proof.ResponseM == nil || proof.ResponseR == nil {
		return false
	}
	if public.Aux == nil || public.Commitment == nil {
		return false
	}
	group := public.Aux
	p := group.P()

	if _, _, lt := proof.T.CmpMod(p); lt != 1 {
		return false
	}
	if _, _, lt := proof.ResponseM.CmpMod(group.Q()); lt != 1 {
		return false
	}
	if _, _, lt := proof.ResponseR.CmpMod(group.Q()); lt != 1 {
		return false
	}

	c := challenge(public, proof.T)

	lhs := new(saferith.Nat).Exp(group.G(), proof.ResponseM, p)
	hrr := new(saferith.Nat).Exp(group.H(), proof.ResponseR, p)
	lhs.ModMul(lhs, hrr, p)

	rhs := new(saferith.Nat).Exp(public.Commitment.Nat(), c, p)
	rhs.ModMul(rhs, proof.T, p)

	return lhs.Eq(rhs) == 1
}

// challenge derives c = H(domain ‖ context ‖ commitment ‖ t) reduced mod q.
// A zero reduction falls back to c = 1 so the challenge is always usable;
// the case is negligible but the fallback must be deterministic.
func challenge(public Public, t *saferith.Nat) *saferith.Nat {
	h := hash.New()
	_ = h.WriteAny(
		&hash.BytesWithDomain{TheDomain: proofDomain, Bytes: public.Context},
		public.Commitment,
		t,
	)

	out := make([]byte, params.SecBytes*2)
	if _, err := io.ReadFull(h.Digest(), out); err != nil {
		panic("zkopening: challenge derivation failed: " + err.Error())
	}

	c := new(saferith.Nat).SetBytes(out)
	c.Mod(c, public.Aux.Q())
	if c.EqZero() == 1 {
		c.SetUint64(1)
	}
	return c
}

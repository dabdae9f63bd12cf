package pedersen

import (
	"io"
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/pedersen-channel/internal/params"
	"golang.org/x/crypto/sha3"
)

// modpHex is the 2048-bit MODP group modulus from RFC 3526 (group 14),
// a safe prime p = 2q+1 with q prime.
const modpHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

// hGeneratorDomain fixes the derivation of the second generator. Changing it
// changes h for every deployment, so treat it as part of the wire format.
const hGeneratorDomain = "pedersen-channel/h-generator/v1"

var (
	defaultOnce   sync.Once
	defaultParams *Parameters
)

// DefaultParameters returns the fixed 2048-bit safe prime group.
//
// g = 2 generates the order-q subgroup, since p ≡ 7 (mod 8) makes 2 a
// quadratic residue. h = gᵉ (mod p) for an exponent e derived from a
// domain-separated hash, so everyone can reproduce the same h without
// trusted setup, and no party knows the discrete log of h relative to g.
//
// The returned parameters are shared; callers must not mutate them.
func DefaultParameters() *Parameters {
	defaultOnce.Do(func() {
		pNat, err := new(saferith.Nat).SetHex(modpHex)
		if err != nil {
			panic("pedersen: invalid modp constant: " + err.Error())
		}
		p := saferith.ModulusFromNat(pNat)

		// q = (p-1)/2
		qBig := new(big.Int).Rsh(new(big.Int).Sub(pNat.Big(), big.NewInt(1)), 1)
		q := saferith.ModulusFromNat(new(saferith.Nat).SetBig(qBig, params.BitsScalar))

		g := new(saferith.Nat).SetUint64(2)
		h := new(saferith.Nat).Exp(g, deriveHExponent(q), p)

		defaultParams = &Parameters{p: p, q: q, g: g, h: h}
	})
	return defaultParams
}

// deriveHExponent derives the discrete log of h relative to g from a
// domain-separated XOF, reduced into [1, q-1]. The derivation is fixed, so
// recomputing it always yields the same value.
func deriveHExponent(q *saferith.Modulus) *saferith.Nat {
	xof := sha3.NewCShake128(nil, []byte(hGeneratorDomain))
	buf := make([]byte, params.BytesScalar+params.SecBytes)
	out := new(saferith.Nat)
	for {
		if _, err := io.ReadFull(xof, buf); err != nil {
			panic("pedersen: xof failure: " + err.Error())
		}
		out.SetBytes(buf)
		out.Mod(out, q)
		if out.EqZero() != 1 {
			return out
		}
	}
}

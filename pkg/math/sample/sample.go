package sample

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
)

const maxIterations = 255

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// ModN samples an element of ℤₙ.
func ModN(rand io.Reader, n *saferith.Modulus) *saferith.Nat {
	out := new(saferith.Nat)
	buf := make([]byte, (n.BitLen()+7)/8)
	for {
		mustReadBits(rand, buf)
		out.SetBytes(buf)
		_, _, lt := out.CmpMod(n)
		if lt == 1 {
			break
		}
	}
	return out
}

// Scalar samples a scalar uniformly from [1, q-1].
func Scalar(rand io.Reader, q *saferith.Modulus) *saferith.Nat {
	for i := 0; i < maxIterations; i++ {
		s := ModN(rand, q)
		if s.EqZero() != 1 {
			return s
		}
	}
	panic(ErrMaxIterations)
}

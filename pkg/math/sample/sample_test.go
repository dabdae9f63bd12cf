package sample

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModN(t *testing.T) {
	n := saferith.ModulusFromBytes([]byte{0x0d}) // 13
	for i := 0; i < 100; i++ {
		s := ModN(rand.Reader, n)
		_, _, lt := s.CmpMod(n)
		require.EqualValues(t, 1, lt, "sample must be below the modulus")
	}
}

func TestScalarNonZero(t *testing.T) {
	q := saferith.ModulusFromBytes([]byte{0x02}) // only nonzero residue is 1
	for i := 0; i < 32; i++ {
		s := Scalar(rand.Reader, q)
		assert.EqualValues(t, 0, s.EqZero(), "scalar must never be zero")
	}
}

package params

const (
	SecParam  = 256
	SecBytes  = SecParam / 8
	StatParam = 80

	// BitsGroup is the bit length of the safe prime modulus p.
	BitsGroup  = 2048
	BytesGroup = BitsGroup / 8

	// Scalars are elements of ℤq with q = (p-1)/2, so they occupy the same
	// number of bytes as a group element.
	BitsScalar  = BitsGroup
	BytesScalar = BitsGroup / 8

	// HexGroup is the length of the fixed-width big-endian hex encoding of a
	// group element or scalar.
	HexGroup = 2 * BytesGroup
)

package zkopening

import (
	"encoding/hex"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/pedersen-channel/internal/params"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
)

// HexProof is the transport encoding of a Proof: three fixed-width
// big-endian hex fields.
type HexProof struct {
	T         string `json:"t" cbor:"t"`
	ResponseM string `json:"response_m" cbor:"response_m"`
	ResponseR string `json:"response_r" cbor:"response_r"`
}

// Hex serializes the proof for transport.
func (proof *Proof) Hex() HexProof {
	return HexProof{
		T:         encodeNat(proof.T),
		ResponseM: encodeNat(proof.ResponseM),
		ResponseR: encodeNat(proof.ResponseR),
	}
}

// ProofFromHex restores a proof from its transport encoding, rejecting
// fields outside the group's integer domains.
func ProofFromHex(group *pedersen.Parameters, h HexProof) (*Proof, error) {
	t, err := group.CommitmentFromHex(h.T)
	if err != nil {
		return nil, err
	}
	responseM, err := group.OpeningFromHex(h.ResponseM)
	if err != nil {
		return nil, err
	}
	responseR, err := group.OpeningFromHex(h.ResponseR)
	if err != nil {
		return nil, err
	}
	return &Proof{
		T:         t.Nat(),
		ResponseM: responseM.Randomness(),
		ResponseR: responseR.Randomness(),
	}, nil
}

func encodeNat(n *saferith.Nat) string {
	buf := make([]byte, params.BytesGroup)
	n.FillBytes(buf)
	return hex.EncodeToString(buf)
}

package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	G1CompressedSize = 32
	G2CompressedSize = 64
)

// PoseidonHash is a BN254 scalar in little-endian bytes
type PoseidonHash [32]byte

func (h PoseidonHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h[:]))
}

func (h *PoseidonHash) UnmarshalJSON(data []byte) error {
	return unmarshalFixedHex(data, h[:])
}

type G1Bytes [G1CompressedSize]byte

func (g G1Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(g[:]))
}

func (g *G1Bytes) UnmarshalJSON(data []byte) error {
	return unmarshalFixedHex(data, g[:])
}

type G2Bytes [G2CompressedSize]byte

func (g G2Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(g[:]))
}

func (g *G2Bytes) UnmarshalJSON(data []byte) error {
	return unmarshalFixedHex(data, g[:])
}

// Groth16Proof holds compressed BN254 points
type Groth16Proof struct {
	A G1Bytes `json:"a" cbor:"1,keyasint"`
	B G2Bytes `json:"b" cbor:"2,keyasint"`
	C G1Bytes `json:"c" cbor:"3,keyasint"`
}

// RapidsnarkProof is the json proof printed by snarkjs compatible provers
type RapidsnarkProof struct {
	PiA      [3]string    `json:"pi_a"`
	PiB      [3][2]string `json:"pi_b"`
	PiC      [3]string    `json:"pi_c"`
	Protocol string       `json:"protocol,omitempty"`
	Curve    string       `json:"curve,omitempty"`
}

// SnarkJsVerificationKey is snarkjs' verification_key.json
type SnarkJsVerificationKey struct {
	Protocol string       `json:"protocol"`
	Curve    string       `json:"curve"`
	NPublic  int          `json:"nPublic"`
	Alpha1   [3]string    `json:"vk_alpha_1"`
	Beta2    [3][2]string `json:"vk_beta_2"`
	Gamma2   [3][2]string `json:"vk_gamma_2"`
	Delta2   [3][2]string `json:"vk_delta_2"`
	IC       [][3]string  `json:"IC"`
}

func unmarshalFixedHex(data []byte, dst []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(b))
	}
	copy(dst, b)
	return nil
}

// EngineStats are timings reported by the proving engine
type EngineStats struct {
	ProverTimeMs uint64
}

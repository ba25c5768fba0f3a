package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/zkkeyless/go-keyless-prover/types"
)

// PreparedVerificationKey is a parsed and subgroup-checked Groth16 verification key
type PreparedVerificationKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	IC    []bn254.G1Affine
}

// Groth16Points is a decoded proof
type Groth16Points struct {
	A bn254.G1Affine
	B bn254.G2Affine
	C bn254.G1Affine
}

// LoadVerificationKey reads a snarkjs verification_key.json
func LoadVerificationKey(path string) (*PreparedVerificationKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vk types.SnarkJsVerificationKey
	if err := json.Unmarshal(b, &vk); err != nil {
		return nil, fmt.Errorf("failed to parse verification key %s: %w", path, err)
	}
	return PrepareVerificationKey(&vk)
}

func PrepareVerificationKey(vk *types.SnarkJsVerificationKey) (*PreparedVerificationKey, error) {
	if vk.Protocol != "" && vk.Protocol != "groth16" {
		return nil, fmt.Errorf("unsupported protocol %q", vk.Protocol)
	}
	// the only public input is the public inputs hash
	if len(vk.IC) != 2 {
		return nil, fmt.Errorf("verification key must have exactly 1 public input, has %d", len(vk.IC)-1)
	}
	var (
		pvk PreparedVerificationKey
		err error
	)
	if pvk.Alpha, err = parseG1(vk.Alpha1); err != nil {
		return nil, fmt.Errorf("vk_alpha_1: %w", err)
	}
	if pvk.Beta, err = parseG2(vk.Beta2); err != nil {
		return nil, fmt.Errorf("vk_beta_2: %w", err)
	}
	if pvk.Gamma, err = parseG2(vk.Gamma2); err != nil {
		return nil, fmt.Errorf("vk_gamma_2: %w", err)
	}
	if pvk.Delta, err = parseG2(vk.Delta2); err != nil {
		return nil, fmt.Errorf("vk_delta_2: %w", err)
	}
	for i, ic := range vk.IC {
		p, err := parseG1(ic)
		if err != nil {
			return nil, fmt.Errorf("IC[%d]: %w", i, err)
		}
		pvk.IC = append(pvk.IC, p)
	}
	return &pvk, nil
}

// ParseRapidsnarkProof decodes the prover's json output into points and their compressed encoding
func ParseRapidsnarkProof(proofJSON []byte) (*types.Groth16Proof, error) {
	var rp types.RapidsnarkProof
	if err := json.Unmarshal(proofJSON, &rp); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
	}
	a, err := parseG1(rp.PiA)
	if err != nil {
		return nil, fmt.Errorf("%w: pi_a: %v", types.ErrInvalidProof, err)
	}
	b, err := parseG2(rp.PiB)
	if err != nil {
		return nil, fmt.Errorf("%w: pi_b: %v", types.ErrInvalidProof, err)
	}
	c, err := parseG1(rp.PiC)
	if err != nil {
		return nil, fmt.Errorf("%w: pi_c: %v", types.ErrInvalidProof, err)
	}
	return EncodeGroth16Proof(&Groth16Points{A: a, B: b, C: c}), nil
}

func EncodeGroth16Proof(p *Groth16Points) *types.Groth16Proof {
	return &types.Groth16Proof{
		A: types.G1Bytes(p.A.Bytes()),
		B: types.G2Bytes(p.B.Bytes()),
		C: types.G1Bytes(p.C.Bytes()),
	}
}

// DecodeGroth16Proof decompresses the points, checking curve and subgroup membership
func DecodeGroth16Proof(p *types.Groth16Proof) (*Groth16Points, error) {
	var pts Groth16Points
	if _, err := pts.A.SetBytes(p.A[:]); err != nil {
		return nil, fmt.Errorf("%w: a: %v", types.ErrInvalidProof, err)
	}
	if _, err := pts.B.SetBytes(p.B[:]); err != nil {
		return nil, fmt.Errorf("%w: b: %v", types.ErrInvalidProof, err)
	}
	if _, err := pts.C.SetBytes(p.C[:]); err != nil {
		return nil, fmt.Errorf("%w: c: %v", types.ErrInvalidProof, err)
	}
	return &pts, nil
}

// VerifyGroth16 checks e(A,B) = e(alpha,beta) * e(vk_x,gamma) * e(C,delta) with vk_x = IC0 + pih*IC1
func VerifyGroth16(vk *PreparedVerificationKey, proof *types.Groth16Proof, publicInputsHash fr.Element) error {
	pts, err := DecodeGroth16Proof(proof)
	if err != nil {
		return err
	}
	var term bn254.G1Affine
	term.ScalarMultiplication(&vk.IC[1], FrToBigInt(publicInputsHash))
	var acc bn254.G1Jac
	acc.FromAffine(&vk.IC[0])
	acc.AddMixed(&term)
	var vkX bn254.G1Affine
	vkX.FromJacobian(&acc)

	var negA bn254.G1Affine
	negA.Neg(&pts.A)

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{negA, vk.Alpha, vkX, pts.C},
		[]bn254.G2Affine{pts.B, vk.Beta, vk.Gamma, vk.Delta},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrProofVerification, err)
	}
	if !ok {
		return types.ErrProofVerification
	}
	return nil
}

func parseFp(s string) (fp.Element, error) {
	var e fp.Element
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return e, fmt.Errorf("invalid decimal coordinate %q", s)
	}
	if v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return e, errors.New("coordinate is not in the base field")
	}
	e.SetBigInt(v)
	return e, nil
}

// snarkjs points are projective with z = 1
func parseG1(coords [3]string) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if coords[2] != "1" {
		return p, errors.New("expected an affine point (z = 1)")
	}
	x, err := parseFp(coords[0])
	if err != nil {
		return p, err
	}
	y, err := parseFp(coords[1])
	if err != nil {
		return p, err
	}
	p.X, p.Y = x, y
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return p, errors.New("point is not in G1")
	}
	return p, nil
}

func parseG2(coords [3][2]string) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if coords[2][0] != "1" || coords[2][1] != "0" {
		return p, errors.New("expected an affine point (z = 1)")
	}
	var err error
	if p.X.A0, err = parseFp(coords[0][0]); err != nil {
		return p, err
	}
	if p.X.A1, err = parseFp(coords[0][1]); err != nil {
		return p, err
	}
	if p.Y.A0, err = parseFp(coords[1][0]); err != nil {
		return p, err
	}
	if p.Y.A1, err = parseFp(coords[1][1]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return p, errors.New("point is not in G2")
	}
	return p, nil
}

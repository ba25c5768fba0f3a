package testutil

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/zkkeyless/go-keyless-prover/types"
)

// Groth16Trapdoor is a one public input Groth16 setup whose toxic waste is known, so proofs
// for any public inputs hash can be forged without a circuit.
type Groth16Trapdoor struct {
	alpha, beta, gamma, delta fr.Element
	ic0, ic1                  fr.Element
	g1                        bn254.G1Affine
	g2                        bn254.G2Affine
}

func NewGroth16Trapdoor(t testing.TB) *Groth16Trapdoor {
	t.Helper()
	_, _, g1, g2 := bn254.Generators()
	td := &Groth16Trapdoor{g1: g1, g2: g2}
	for _, e := range []*fr.Element{&td.alpha, &td.beta, &td.gamma, &td.delta, &td.ic0, &td.ic1} {
		if _, err := e.SetRandom(); err != nil {
			t.Fatal(err)
		}
	}
	return td
}

func (td *Groth16Trapdoor) g1Mul(s *fr.Element) bn254.G1Affine {
	var p bn254.G1Affine
	p.ScalarMultiplication(&td.g1, s.BigInt(new(big.Int)))
	return p
}

func (td *Groth16Trapdoor) g2Mul(s *fr.Element) bn254.G2Affine {
	var p bn254.G2Affine
	p.ScalarMultiplication(&td.g2, s.BigInt(new(big.Int)))
	return p
}

// VerificationKey returns the snarkjs verification key
func (td *Groth16Trapdoor) VerificationKey() *types.SnarkJsVerificationKey {
	ic0 := td.g1Mul(&td.ic0)
	ic1 := td.g1Mul(&td.ic1)
	return &types.SnarkJsVerificationKey{
		Protocol: "groth16",
		Curve:    "bn128",
		NPublic:  1,
		Alpha1:   g1Coords(td.g1Mul(&td.alpha)),
		Beta2:    g2Coords(td.g2Mul(&td.beta)),
		Gamma2:   g2Coords(td.g2Mul(&td.gamma)),
		Delta2:   g2Coords(td.g2Mul(&td.delta)),
		IC:       [][3]string{g1Coords(ic0), g1Coords(ic1)},
	}
}

func (td *Groth16Trapdoor) VerificationKeyJSON(t testing.TB) []byte {
	t.Helper()
	b, err := json.Marshal(td.VerificationKey())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// Prove returns a rapidsnark style proof that verifies for publicInputsHash
func (td *Groth16Trapdoor) Prove(t testing.TB, publicInputsHash fr.Element) []byte {
	t.Helper()
	out, err := td.ProveJSON(publicInputsHash)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// ProveJSON is Prove for callers without a testing.TB, such as engine goroutines
func (td *Groth16Trapdoor) ProveJSON(publicInputsHash fr.Element) ([]byte, error) {
	var a, b fr.Element
	if _, err := a.SetRandom(); err != nil {
		return nil, err
	}
	if _, err := b.SetRandom(); err != nil {
		return nil, err
	}
	// c = (a*b - alpha*beta - (ic0 + pih*ic1)*gamma) / delta
	var ab, alphaBeta, x, c, deltaInv fr.Element
	ab.Mul(&a, &b)
	alphaBeta.Mul(&td.alpha, &td.beta)
	x.Mul(&publicInputsHash, &td.ic1).Add(&x, &td.ic0).Mul(&x, &td.gamma)
	c.Sub(&ab, &alphaBeta).Sub(&c, &x)
	deltaInv.Inverse(&td.delta)
	c.Mul(&c, &deltaInv)

	proof := types.RapidsnarkProof{
		PiA:      g1Coords(td.g1Mul(&a)),
		PiB:      g2Coords(td.g2Mul(&b)),
		PiC:      g1Coords(td.g1Mul(&c)),
		Protocol: "groth16",
		Curve:    "bn128",
	}
	return json.Marshal(proof)
}

func fpDecimal(e fp.Element) string {
	return e.BigInt(new(big.Int)).String()
}

func g1Coords(p bn254.G1Affine) [3]string {
	return [3]string{fpDecimal(p.X), fpDecimal(p.Y), "1"}
}

func g2Coords(p bn254.G2Affine) [3][2]string {
	return [3][2]string{
		{fpDecimal(p.X.A0), fpDecimal(p.X.A1)},
		{fpDecimal(p.Y.A0), fpDecimal(p.Y.A1)},
		{"1", "0"},
	}
}

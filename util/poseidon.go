package util

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// MaxPoseidonInputs is the widest Poseidon instance the circuit uses
const MaxPoseidonInputs = 16

// rsa moduli are packed 24 bytes (three 64 bit limbs) per scalar before hashing
const modulusBytesPerScalar = 24

// HashScalars is the circom compatible Poseidon hash over BN254
func HashScalars(inputs []fr.Element) (fr.Element, error) {
	var out fr.Element
	if len(inputs) == 0 || len(inputs) > MaxPoseidonInputs {
		return out, fmt.Errorf("poseidon takes 1 to %d inputs, got %d", MaxPoseidonInputs, len(inputs))
	}
	bis := make([]*big.Int, len(inputs))
	for i := range inputs {
		bis[i] = FrToBigInt(inputs[i])
	}
	h, err := poseidon.Hash(bis)
	if err != nil {
		return out, err
	}
	out.SetBigInt(h)
	return out, nil
}

// PadAndHashBytesWithLen commits to a variable length byte string of at most maxBytes
func PadAndHashBytesWithLen(b []byte, maxBytes int) (fr.Element, error) {
	scalars, err := PadAndPackBytesWithLen(b, maxBytes)
	if err != nil {
		return fr.Element{}, err
	}
	return HashScalars(scalars)
}

func PadAndHashString(s string, maxBytes int) (fr.Element, error) {
	return PadAndHashBytesWithLen([]byte(s), maxBytes)
}

// HashRSAModulus commits to a 2048 bit modulus: little-endian bytes, 24 bytes per scalar, bit length last
func HashRSAModulus(n *big.Int) (fr.Element, error) {
	const modulusBytes = 256
	be := n.Bytes()
	if len(be) > modulusBytes {
		return fr.Element{}, fmt.Errorf("modulus longer than %d bytes", modulusBytes)
	}
	le := make([]byte, modulusBytes)
	for i := range be {
		le[i] = be[len(be)-1-i]
	}
	scalars := make([]fr.Element, 0, modulusBytes/modulusBytesPerScalar+2)
	for i := 0; i < modulusBytes; i += modulusBytesPerScalar {
		end := i + modulusBytesPerScalar
		if end > modulusBytes {
			end = modulusBytes
		}
		scalars = append(scalars, FrFromLEBytesModOrder(le[i:end]))
	}
	scalars = append(scalars, FrFromUint64(modulusBytes))
	return HashScalars(scalars)
}

package util

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/zkkeyless/go-keyless-prover/types"
)

const (
	// BytesPackedPerScalar is how many bytes fit in one BN254 scalar without reduction
	BytesPackedPerScalar = 31
	// LimbBits is the width of the limbs RSA values are split into
	LimbBits = 64
)

// FrFromLEBytesModOrder interprets b as a little-endian integer and reduces it into the field
func FrFromLEBytesModOrder(b []byte) fr.Element {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	var e fr.Element
	e.SetBigInt(new(big.Int).SetBytes(be))
	return e
}

// FrToLEBytes returns the canonical little-endian encoding of e
func FrToLEBytes(e fr.Element) [32]byte {
	be := e.Bytes()
	var le [32]byte
	for i := range be {
		le[31-i] = be[i]
	}
	return le
}

// FrFromCanonicalLEBytes is the strict inverse of FrToLEBytes: values >= r are rejected
func FrFromCanonicalLEBytes(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != fr.Bytes {
		return e, fmt.Errorf("%w: expected %d bytes, got %d", types.ErrNotInField, fr.Bytes, len(b))
	}
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	v := new(big.Int).SetBytes(be)
	if v.Cmp(fr.Modulus()) >= 0 {
		return e, types.ErrNotInField
	}
	e.SetBigInt(v)
	return e, nil
}

func FrFromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

func FrToBigInt(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

// FrToDecimal renders e as its canonical decimal representative in [0, r)
func FrToDecimal(e fr.Element) string {
	return FrToBigInt(e).String()
}

// BigIntTo64BitLimbs splits a non-negative integer into little-endian 64 bit limbs (no leading zero limbs)
func BigIntTo64BitLimbs(n *big.Int) ([]uint64, error) {
	if n == nil || n.Sign() < 0 {
		return nil, errors.New("limbs require a non-negative integer")
	}
	mask := new(big.Int).SetUint64(^uint64(0))
	limbs := make([]uint64, 0, (n.BitLen()+LimbBits-1)/LimbBits)
	rest := new(big.Int).Set(n)
	for rest.Sign() > 0 {
		limbs = append(limbs, new(big.Int).And(rest, mask).Uint64())
		rest.Rsh(rest, LimbBits)
	}
	return limbs, nil
}

// LimbsToBigInt is the inverse of BigIntTo64BitLimbs
func LimbsToBigInt(limbs []uint64) *big.Int {
	n := new(big.Int)
	for i := len(limbs) - 1; i >= 0; i-- {
		n.Lsh(n, LimbBits)
		n.Or(n, new(big.Int).SetUint64(limbs[i]))
	}
	return n
}

// PadLimbs extends limbs with zero limbs up to count
func PadLimbs(limbs []uint64, count int) ([]uint64, error) {
	if len(limbs) > count {
		return nil, fmt.Errorf("%w: %d limbs do not fit in %d", types.ErrInputTooLong, len(limbs), count)
	}
	out := make([]uint64, count)
	copy(out, limbs)
	return out, nil
}

// PadBytes zero pads b up to maxLen
func PadBytes(b []byte, maxLen int) ([]byte, error) {
	if len(b) > maxLen {
		return nil, fmt.Errorf("%w: %d bytes, max %d", types.ErrInputTooLong, len(b), maxLen)
	}
	out := make([]byte, maxLen)
	copy(out, b)
	return out, nil
}

// ScalarsForBytes is the number of scalars needed to pack n bytes
func ScalarsForBytes(n int) int {
	return (n + BytesPackedPerScalar - 1) / BytesPackedPerScalar
}

// PackBytesToScalars packs b into 31 byte little-endian chunks
func PackBytesToScalars(b []byte) []fr.Element {
	out := make([]fr.Element, 0, ScalarsForBytes(len(b)))
	for i := 0; i < len(b); i += BytesPackedPerScalar {
		end := i + BytesPackedPerScalar
		if end > len(b) {
			end = len(b)
		}
		out = append(out, FrFromLEBytesModOrder(b[i:end]))
	}
	return out
}

// PadAndPackBytesToScalars packs b and pads with zero scalars to fit maxBytes
func PadAndPackBytesToScalars(b []byte, maxBytes int) ([]fr.Element, error) {
	if len(b) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", types.ErrInputTooLong, len(b), maxBytes)
	}
	scalars := PackBytesToScalars(b)
	for len(scalars) < ScalarsForBytes(maxBytes) {
		scalars = append(scalars, fr.Element{})
	}
	return scalars, nil
}

// PadAndPackBytesWithLen is PadAndPackBytesToScalars with the byte length appended as a final scalar
func PadAndPackBytesWithLen(b []byte, maxBytes int) ([]fr.Element, error) {
	scalars, err := PadAndPackBytesToScalars(b, maxBytes)
	if err != nil {
		return nil, err
	}
	return append(scalars, FrFromUint64(uint64(len(b)))), nil
}

package types

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitInputSignalsFieldElementsAreCanonical(t *testing.T) {
	var minusOne fr.Element
	minusOne.SetOne()
	minusOne.Neg(&minusOne)
	want := new(big.Int).Sub(fr.Modulus(), big.NewInt(1)).String()

	s := NewCircuitInputSignals().
		AddFr("single", minusOne).
		AddFrs("list", []fr.Element{minusOne, {}})

	v, ok := s.Get("single")
	require.True(t, ok)
	assert.Equal(t, want, v)

	v, ok = s.Get("list")
	require.True(t, ok)
	assert.Equal(t, []string{want, "0"}, v)
}

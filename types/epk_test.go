package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEphemeralPublicKey(t *testing.T) {
	key := bytes.Repeat([]byte{0xab}, 32)
	serialized := append([]byte{0x00, 0x20}, key...)
	epk, err := ParseEphemeralPublicKey(serialized)
	require.NoError(t, err)
	assert.Equal(t, serialized, epk.Bytes())

	ed, err := NewEd25519EphemeralPublicKey(key)
	require.NoError(t, err)
	assert.Equal(t, epk, ed)

	secp := append([]byte{0x01, 0x41}, bytes.Repeat([]byte{0x04}, 65)...)
	_, err = ParseEphemeralPublicKey(secp)
	assert.NoError(t, err)
}

func TestParseEphemeralPublicKeyErrors(t *testing.T) {
	for name, b := range map[string][]byte{
		"empty":         {},
		"unknown tag":   append([]byte{0x02, 0x20}, make([]byte, 32)...),
		"short key":     append([]byte{0x00, 0x20}, make([]byte, 31)...),
		"wrong length":  append([]byte{0x00, 0x21}, make([]byte, 33)...),
		"trailing data": append([]byte{0x00, 0x20}, make([]byte, 33)...),
		"bad uleb":      {0x00, 0x80},
	} {
		_, err := ParseEphemeralPublicKey(b)
		assert.ErrorIs(t, err, ErrBadRequest, name)
	}
}

func TestEphemeralPublicKeyJSON(t *testing.T) {
	epk, err := NewEd25519EphemeralPublicKey(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	b, err := json.Marshal(epk)
	require.NoError(t, err)
	assert.Equal(t, `"`+hex.EncodeToString(epk.Bytes())+`"`, string(b))

	var back EphemeralPublicKey
	require.NoError(t, json.Unmarshal([]byte(`"0x`+hex.EncodeToString(epk.Bytes())+`"`), &back))
	assert.Equal(t, epk, back)

	assert.Error(t, json.Unmarshal([]byte(`"zz"`), &back))
}

func TestEd25519EphemeralSignature(t *testing.T) {
	sig := bytes.Repeat([]byte{9}, 64)
	enc, err := EncodeEd25519EphemeralSignature(sig)
	require.NoError(t, err)
	assert.Equal(t, byte(0), enc[0])
	assert.Equal(t, byte(64), enc[1])

	dec, err := DecodeEd25519EphemeralSignature(enc)
	require.NoError(t, err)
	assert.Equal(t, sig, dec)

	_, err = DecodeEd25519EphemeralSignature(enc[:65])
	assert.ErrorIs(t, err, ErrSignature)
	_, err = EncodeEd25519EphemeralSignature(sig[:10])
	assert.Error(t, err)
}

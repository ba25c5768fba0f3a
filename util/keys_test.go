package util

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/tj/assert"
)

func TestTrainingWheelsKeyFile(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(t, err)

	b, err := MarshalTrainingWheelsKey(priv, "tw-1", false)
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tw.jwk")
	assert.NoError(t, os.WriteFile(path, b, 0600))

	loaded, err := LoadTrainingWheelsKey(path)
	assert.NoError(t, err)
	assert.True(t, priv.Equal(loaded))

	pubJwk, err := MarshalTrainingWheelsKey(priv, "tw-1", true)
	assert.NoError(t, err)
	_, err = ParseTrainingWheelsKey(pubJwk)
	assert.Error(t, err)

	pub, err := ParseTrainingWheelsPublicKey(pubJwk)
	assert.NoError(t, err)
	assert.True(t, pub.Equal(priv.Public()))
}

func TestTrainingWheelsKeyFromHex(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	priv, err := TrainingWheelsKeyFromHex("0x" + hex.EncodeToString(seed))
	assert.NoError(t, err)
	assert.Equal(t, ed25519.NewKeyFromSeed(seed), priv)

	_, err = TrainingWheelsKeyFromHex("abcd")
	assert.Error(t, err)
	_, err = TrainingWheelsKeyFromHex("not hex")
	assert.Error(t, err)
}

func TestParseTrainingWheelsPublicKeyHex(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(t, err)

	parsed, err := ParseTrainingWheelsPublicKey([]byte(hex.EncodeToString(pub) + "\n"))
	assert.NoError(t, err)
	assert.Equal(t, pub, parsed)

	_, err = ParseTrainingWheelsPublicKey([]byte("00ff"))
	assert.Error(t, err)
}

package util

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-jose/go-jose/v3"
)

// TrainingWheelsKeyUse is the "use" of training wheels key files
const TrainingWheelsKeyUse = "sig"

// LoadTrainingWheelsKey reads an OKP/Ed25519 private JWK from disk
func LoadTrainingWheelsKey(path string) (ed25519.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTrainingWheelsKey(b)
}

func ParseTrainingWheelsKey(b []byte) (ed25519.PrivateKey, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(b, &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse training wheels key: %w", err)
	}
	if !jwk.Valid() {
		return nil, errors.New("training wheels key is not a valid jwk")
	}
	priv, ok := jwk.Key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("training wheels key must be an ed25519 private key")
	}
	return priv, nil
}

// TrainingWheelsKeyFromHex builds the key from a hex encoded 32 byte seed (0x prefix optional)
func TrainingWheelsKeyFromHex(s string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(TrimHexPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("training wheels key is not hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("training wheels key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// MarshalTrainingWheelsKey serializes a private key as a JWK. With public set only the public part is written.
func MarshalTrainingWheelsKey(priv ed25519.PrivateKey, kid string, public bool) ([]byte, error) {
	jwk := jose.JSONWebKey{
		Key:       priv,
		KeyID:     kid,
		Algorithm: string(jose.EdDSA),
		Use:       TrainingWheelsKeyUse,
	}
	if public {
		jwk = jwk.Public()
	}
	return json.MarshalIndent(jwk, "", "  ")
}

// ParseTrainingWheelsPublicKey accepts a public JWK or a hex encoded 32 byte key
func ParseTrainingWheelsPublicKey(b []byte) (ed25519.PublicKey, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(b, &jwk); err == nil {
		switch k := jwk.Key.(type) {
		case ed25519.PublicKey:
			return k, nil
		case ed25519.PrivateKey:
			return k.Public().(ed25519.PublicKey), nil
		}
		return nil, errors.New("jwk is not an ed25519 key")
	}
	raw, err := hex.DecodeString(TrimHexPrefix(strings.TrimSpace(string(b))))
	if err != nil {
		return nil, fmt.Errorf("public key is neither a jwk nor hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

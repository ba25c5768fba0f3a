package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// variant tags of the serialized ephemeral key / signature enums
const (
	EphemeralKeyEd25519        byte = 0
	EphemeralKeySecp256r1Ecdsa byte = 1

	ed25519PublicKeyLength   = 32
	secp256r1PublicKeyLength = 65
	ed25519SignatureLength   = 64
)

// EphemeralPublicKey is the serialized session key committed to in the jwt nonce.
// Layout: variant tag, ULEB128 length, key bytes.
type EphemeralPublicKey struct {
	serialized []byte
}

func ParseEphemeralPublicKey(b []byte) (EphemeralPublicKey, error) {
	if len(b) < 2 {
		return EphemeralPublicKey{}, fmt.Errorf("%w: ephemeral public key too short", ErrBadRequest)
	}
	var expected int
	switch b[0] {
	case EphemeralKeyEd25519:
		expected = ed25519PublicKeyLength
	case EphemeralKeySecp256r1Ecdsa:
		expected = secp256r1PublicKeyLength
	default:
		return EphemeralPublicKey{}, fmt.Errorf("%w: unknown ephemeral public key variant %d", ErrBadRequest, b[0])
	}
	l, n, err := readUleb128(b[1:])
	if err != nil {
		return EphemeralPublicKey{}, err
	}
	if l != uint64(expected) || len(b) != 1+n+expected {
		return EphemeralPublicKey{}, fmt.Errorf("%w: invalid ephemeral public key length", ErrBadRequest)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return EphemeralPublicKey{serialized: cp}, nil
}

// NewEd25519EphemeralPublicKey wraps a raw ed25519 public key
func NewEd25519EphemeralPublicKey(pub []byte) (EphemeralPublicKey, error) {
	if len(pub) != ed25519PublicKeyLength {
		return EphemeralPublicKey{}, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrBadRequest, ed25519PublicKeyLength)
	}
	b := append([]byte{EphemeralKeyEd25519, ed25519PublicKeyLength}, pub...)
	return EphemeralPublicKey{serialized: b}, nil
}

// Bytes returns the serialized key (tag and length included)
func (e EphemeralPublicKey) Bytes() []byte {
	return e.serialized
}

func (e EphemeralPublicKey) IsZero() bool {
	return len(e.serialized) == 0
}

func (e EphemeralPublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(e.serialized))
}

func (e *EphemeralPublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("%w: epk is not hex: %v", ErrBadRequest, err)
	}
	parsed, err := ParseEphemeralPublicKey(b)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// EncodeEd25519EphemeralSignature serializes an ed25519 signature with the same enum layout as the keys
func EncodeEd25519EphemeralSignature(sig []byte) ([]byte, error) {
	if len(sig) != ed25519SignatureLength {
		return nil, fmt.Errorf("ed25519 signature must be %d bytes", ed25519SignatureLength)
	}
	return append([]byte{EphemeralKeyEd25519, ed25519SignatureLength}, sig...), nil
}

// DecodeEd25519EphemeralSignature is the inverse of EncodeEd25519EphemeralSignature
func DecodeEd25519EphemeralSignature(b []byte) ([]byte, error) {
	if len(b) != 2+ed25519SignatureLength || b[0] != EphemeralKeyEd25519 || b[1] != ed25519SignatureLength {
		return nil, ErrSignature
	}
	return b[2:], nil
}

func readUleb128(b []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < len(b) && i < 10; i++ {
		v |= uint64(b[i]&0x7f) << (7 * uint(i))
		if b[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: invalid uleb128 length prefix", ErrBadRequest)
}

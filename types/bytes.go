package types

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// HexBytes is a byte string serialized as lowercase hex
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("%w: invalid hex: %v", ErrBadRequest, err)
	}
	*h = b
	return nil
}

// FlexBytes accepts either hex (optionally 0x prefixed) or base64 (standard or url-safe, with or without padding).
// A string that is valid hex is always read as hex.
type FlexBytes []byte

func (f FlexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(f))
}

func (f *FlexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := DecodeHexOrBase64(s)
	if err != nil {
		return err
	}
	*f = b
	return nil
}

// DecodeHexOrBase64 decodes s as hex first and falls back to the base64 alphabets
func DecodeHexOrBase64(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if b, err := hex.DecodeString(trimmed); err == nil {
		return b, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: value is neither hex nor base64", ErrBadRequest)
}

// PepperLength is the size of a pepper in bytes. 31 bytes always fit in one scalar.
const PepperLength = 31

// Pepper is the fixed length secret mixed into the account address. It decodes like FlexBytes.
type Pepper [PepperLength]byte

func (p Pepper) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p[:]))
}

func (p *Pepper) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := DecodeHexOrBase64(s)
	if err != nil {
		return err
	}
	if len(b) != PepperLength {
		return fmt.Errorf("%w: pepper must be %d bytes, got %d", ErrBadRequest, PepperLength, len(b))
	}
	copy(p[:], b)
	return nil
}

package util

import (
	"encoding/base64"
	"strings"
)

// DecodeB64URLNoPad decodes base64url without padding, the encoding of every jwt segment
func DecodeB64URLNoPad(s string) ([]byte, error) {
	return base64.RawURLEncoding.Strict().DecodeString(s)
}

func EncodeB64URLNoPad(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func IsNilOrEmpty(s *string) bool {
	return s == nil || *s == ""
}

// StringOrEmpty dereferences s, returning "" for nil
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TrimHexPrefix removes an optional 0x prefix
func TrimHexPrefix(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
}

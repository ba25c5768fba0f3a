package util

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zkkeyless/go-keyless-prover/types"
)

type jwtHeaderWire struct {
	Kid *string `json:"kid"`
	Alg string  `json:"alg"`
	Typ string  `json:"typ"`
}

// iat is decoded straight into uint64: negative or overflowing values fail instead of wrapping
type jwtPayloadWire struct {
	Iss           *string      `json:"iss"`
	Aud           *string      `json:"aud"`
	Iat           *uint64      `json:"iat"`
	Exp           *json.Number `json:"exp"`
	Nonce         *string      `json:"nonce"`
	Sub           *string      `json:"sub"`
	Email         *string      `json:"email"`
	EmailVerified *bool        `json:"email_verified"`
}

// SplitJWT splits a compact token into exactly three segments
func SplitJWT(compact string) (*types.JwtParts, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", types.ErrMalformedToken, len(parts))
	}
	return &types.JwtParts{Header: parts[0], Payload: parts[1], Signature: parts[2]}, nil
}

// DecodeJWT structurally decodes a compact token. No trust decisions are made here.
func DecodeJWT(compact string) (*types.DecodedJWT, error) {
	parts, err := SplitJWT(compact)
	if err != nil {
		return nil, err
	}
	header, err := DecodeJwtHeader(parts.Header)
	if err != nil {
		return nil, err
	}
	payload, err := DecodeJwtPayload(parts.Payload)
	if err != nil {
		return nil, err
	}
	sig, err := DecodeJwtSignature(parts.Signature)
	if err != nil {
		return nil, err
	}
	return &types.DecodedJWT{
		Header:    *header,
		Payload:   *payload,
		Signature: sig,
		Parts:     *parts,
		Compact:   compact,
	}, nil
}

func decodeSegment(name, segment string) ([]byte, error) {
	b, err := DecodeB64URLNoPad(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64url: %v", types.ErrMalformedToken, name, err)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: %s is not utf-8", types.ErrMalformedToken, name)
	}
	return b, nil
}

func DecodeJwtHeader(segment string) (*types.JwtHeader, error) {
	b, err := decodeSegment("header", segment)
	if err != nil {
		return nil, err
	}
	var w jwtHeaderWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("%w: header: %v", types.ErrMalformedToken, err)
	}
	if w.Kid == nil {
		return nil, fmt.Errorf("%w: header is missing kid", types.ErrMalformedToken)
	}
	return &types.JwtHeader{Kid: *w.Kid, Alg: w.Alg, Typ: w.Typ}, nil
}

func DecodeJwtPayload(segment string) (*types.JwtPayload, error) {
	b, err := decodeSegment("payload", segment)
	if err != nil {
		return nil, err
	}
	var w jwtPayloadWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", types.ErrMalformedToken, err)
	}
	var missing []string
	if w.Iss == nil {
		missing = append(missing, "iss")
	}
	if w.Aud == nil {
		missing = append(missing, "aud")
	}
	if w.Iat == nil {
		missing = append(missing, "iat")
	}
	if w.Nonce == nil {
		missing = append(missing, "nonce")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: payload is missing %s", types.ErrMalformedToken, strings.Join(missing, ", "))
	}
	p := &types.JwtPayload{
		Iss:           *w.Iss,
		Aud:           *w.Aud,
		Iat:           *w.Iat,
		Nonce:         *w.Nonce,
		Sub:           w.Sub,
		Email:         w.Email,
		EmailVerified: w.EmailVerified,
		Raw:           string(b),
	}
	// exp is only consulted by the signature step; an unparsable exp is treated as absent
	if w.Exp != nil {
		if exp, err := strconv.ParseUint(w.Exp.String(), 10, 64); err == nil {
			p.Exp = &exp
		}
	}
	return p, nil
}

// DecodeJwtSignature reads the signature as a big-endian unsigned integer
func DecodeJwtSignature(segment string) (*big.Int, error) {
	b, err := DecodeB64URLNoPad(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not base64url: %v", types.ErrMalformedToken, err)
	}
	return new(big.Int).SetBytes(b), nil
}

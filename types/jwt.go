package types

import "math/big"

// JwtParts are the raw base64url segments of a compact jwt
type JwtParts struct {
	Header    string
	Payload   string
	Signature string
}

// UnsignedUndecoded returns "<header>.<payload>", the bytes covered by the signature
func (p *JwtParts) UnsignedUndecoded() string {
	return p.Header + "." + p.Payload
}

func (p *JwtParts) HeaderUndecodedWithDot() string {
	return p.Header + "."
}

type JwtHeader struct {
	Kid string `json:"kid"`
	Alg string `json:"alg,omitempty"`
	Typ string `json:"typ,omitempty"`
}

type JwtPayload struct {
	Iss           string
	Aud           string
	Iat           uint64
	Exp           *uint64
	Nonce         string
	Sub           *string
	Email         *string
	EmailVerified *bool
	// decoded payload json, kept for circuit field extraction
	Raw string
}

// DecodedJWT is a structurally parsed token. Nothing about it is trusted yet.
type DecodedJWT struct {
	Header    JwtHeader
	Payload   JwtPayload
	Signature *big.Int
	Parts     JwtParts
	Compact   string
}

package types

import (
	"crypto/rsa"
	"math/big"
)

// AcceptedRSAExponent is the only public exponent the keyless relation supports (65537)
const AcceptedRSAExponent = "AQAB"

// IssuerKey is a provider's RSA verification key. Shared read-only once cached.
type IssuerKey struct {
	Issuer string
	KeyID  string
	Alg    string
	// base64url encoded, as published
	E string
	N string

	Modulus  *big.Int
	Exponent int
}

func (k *IssuerKey) PublicKey() *rsa.PublicKey {
	return &rsa.PublicKey{N: new(big.Int).Set(k.Modulus), E: k.Exponent}
}

// KeySet maps key id to key for one issuer
type KeySet map[string]*IssuerKey

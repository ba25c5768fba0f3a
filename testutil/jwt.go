// Package testutil holds fixtures shared by the package tests: RSA issuers, signed tokens and a
// Groth16 setup with a known trapdoor standing in for the proving engine.
package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// TestIssuer is an OIDC provider with a single signing key
type TestIssuer struct {
	Iss  string
	Kid  string
	Priv *rsa.PrivateKey
}

func NewTestIssuer(t testing.TB, iss, kid string) *TestIssuer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return &TestIssuer{Iss: iss, Kid: kid, Priv: priv}
}

// JwkJSON returns the issuer's public key as a JWK
func (ti *TestIssuer) JwkJSON(t testing.TB) json.RawMessage {
	t.Helper()
	return RSAJwkJSON(t, &ti.Priv.PublicKey, ti.Kid)
}

// JwksJSON returns {"keys":[...]} with the issuer's key plus any extra keys
func (ti *TestIssuer) JwksJSON(t testing.TB, extra ...json.RawMessage) []byte {
	t.Helper()
	return JwksJSON(t, append([]json.RawMessage{ti.JwkJSON(t)}, extra...)...)
}

// Sign signs payload with RS256 and the issuer's kid
func (ti *TestIssuer) Sign(t testing.TB, payload map[string]interface{}) string {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return ti.SignRaw(t, b)
}

// SignRaw signs an already serialized payload, useful for payloads json.Marshal can't produce
func (ti *TestIssuer) SignRaw(t testing.TB, payload []byte) string {
	t.Helper()
	hdrs := jws.NewHeaders()
	if err := hdrs.Set(jws.KeyIDKey, ti.Kid); err != nil {
		t.Fatal(err)
	}
	if err := hdrs.Set(jws.TypeKey, "JWT"); err != nil {
		t.Fatal(err)
	}
	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256, ti.Priv, jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		t.Fatal(err)
	}
	return string(signed)
}

// SignWithHeaderAlg produces an RS256 signature under a header that claims alg
func (ti *TestIssuer) SignWithHeaderAlg(t testing.TB, payload map[string]interface{}, alg string) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": alg, "kid": ti.Kid, "typ": "JWT"})
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	signingInput := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(body)
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, ti.Priv, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func RSAJwkJSON(t testing.TB, pub *rsa.PublicKey, kid string) json.RawMessage {
	t.Helper()
	key, err := jwk.FromRaw(pub)
	if err != nil {
		t.Fatal(err)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		t.Fatal(err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(key)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// RSAJwkJSONWithExponent writes a JWK by hand so non-standard exponents can be published
func RSAJwkJSONWithExponent(pub *rsa.PublicKey, kid string, e []byte) json.RawMessage {
	b, _ := json.Marshal(map[string]string{
		"kty": "RSA",
		"kid": kid,
		"alg": "RS256",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(e),
	})
	return b
}

func JwksJSON(t testing.TB, keys ...json.RawMessage) []byte {
	t.Helper()
	b, err := json.Marshal(map[string][]json.RawMessage{"keys": keys})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// UnsignedToken assembles a token from raw header/payload json and arbitrary signature bytes
func UnsignedToken(header, payload string, sig []byte) string {
	return base64.RawURLEncoding.EncodeToString([]byte(header)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(sig)
}

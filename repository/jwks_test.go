package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/zkkeyless/go-keyless-prover/testutil"
	"github.com/zkkeyless/go-keyless-prover/types"
)

var jwksUrl = "https://issuer.example.com/.well-known/jwks.json"

func initMockRepository() *HttpJwksRepository {
	repo := NewHttpJwksRepository(5 * time.Second)
	httpmock.ActivateNonDefault(repo.GetClient().GetClient())
	return repo
}

func TestFetchJwks(t *testing.T) {
	repo := initMockRepository()
	defer httpmock.DeactivateAndReset()

	issuer := testutil.NewTestIssuer(t, "https://issuer.example.com", "kid-1")
	httpmock.RegisterResponder("GET", jwksUrl, httpmock.NewBytesResponder(200, issuer.JwksJSON(t)))

	keys, err := repo.FetchJwks(context.Background(), issuer.Iss, jwksUrl)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, keys, 1)
	key := keys["kid-1"]
	if assert.NotNil(t, key) {
		assert.Equal(t, issuer.Iss, key.Issuer)
		assert.Equal(t, "AQAB", key.E)
		assert.Equal(t, "RS256", key.Alg)
		assert.Equal(t, 0, issuer.Priv.PublicKey.N.Cmp(key.Modulus))
		assert.Equal(t, issuer.Priv.PublicKey.E, key.PublicKey().E)
	}
}

func TestFetchJwksDropsUnsupportedExponent(t *testing.T) {
	repo := initMockRepository()
	defer httpmock.DeactivateAndReset()

	issuer := testutil.NewTestIssuer(t, "https://issuer.example.com", "good")
	other := testutil.NewTestIssuer(t, "https://issuer.example.com", "bad")
	body := issuer.JwksJSON(t,
		testutil.RSAJwkJSONWithExponent(&other.Priv.PublicKey, "bad", []byte{0x03}),
		[]byte(`{"kty":"oct","kid":"sym","k":"c2VjcmV0"}`),
	)
	httpmock.RegisterResponder("GET", jwksUrl, httpmock.NewBytesResponder(200, body))

	keys, err := repo.FetchJwks(context.Background(), issuer.Iss, jwksUrl)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, keys, 1)
	assert.Contains(t, keys, "good")
	assert.NotContains(t, keys, "bad")
	assert.NotContains(t, keys, "sym")
}

func TestFetchJwksIsIdempotent(t *testing.T) {
	repo := initMockRepository()
	defer httpmock.DeactivateAndReset()

	issuer := testutil.NewTestIssuer(t, "https://issuer.example.com", "kid-1")
	httpmock.RegisterResponder("GET", jwksUrl, httpmock.NewBytesResponder(200, issuer.JwksJSON(t)))

	first, err := repo.FetchJwks(context.Background(), issuer.Iss, jwksUrl)
	assert.NoError(t, err)
	second, err := repo.FetchJwks(context.Background(), issuer.Iss, jwksUrl)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestFetchJwksErrors(t *testing.T) {
	repo := initMockRepository()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", jwksUrl, httpmock.NewStringResponder(503, `{"error":"unavailable"}`))
	_, err := repo.FetchJwks(context.Background(), "https://issuer.example.com", jwksUrl)
	assert.ErrorIs(t, err, types.ErrJwksFetch)

	httpmock.RegisterResponder("GET", jwksUrl, httpmock.NewStringResponder(200, `{"not_keys":[]}`))
	_, err = repo.FetchJwks(context.Background(), "https://issuer.example.com", jwksUrl)
	assert.ErrorIs(t, err, types.ErrJwksFetch)

	httpmock.RegisterResponder("GET", jwksUrl, httpmock.NewStringResponder(200, `not json`))
	_, err = repo.FetchJwks(context.Background(), "https://issuer.example.com", jwksUrl)
	assert.ErrorIs(t, err, types.ErrJwksFetch)
}

func TestParseJwksEmptyKeys(t *testing.T) {
	keys, err := ParseJwks("https://issuer.example.com", []byte(`{"keys":[]}`))
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

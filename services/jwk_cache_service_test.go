package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/repository"
	"github.com/zkkeyless/go-keyless-prover/types"
)

func keySetOf(kids ...string) types.KeySet {
	ks := make(types.KeySet, len(kids))
	for _, kid := range kids {
		ks[kid] = &types.IssuerKey{Issuer: testIss, KeyID: kid, Alg: "RS256", E: types.AcceptedRSAExponent}
	}
	return ks
}

func TestJwkCacheLookup(t *testing.T) {
	cache := NewJwkCacheService(&stubJwksRepo{}, nil)

	_, err := cache.Lookup(testIss, "kid-1")
	assert.ErrorIs(t, err, types.ErrUnknownIssuer)

	cache.ReplaceIssuer(testIss, keySetOf("kid-1"))
	key, err := cache.Lookup(testIss, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, "kid-1", key.KeyID)

	_, err = cache.Lookup(testIss, "kid-2")
	assert.ErrorIs(t, err, types.ErrUnknownKid)
}

func TestJwkCacheReplaceIssuer(t *testing.T) {
	cache := NewJwkCacheService(&stubJwksRepo{}, nil)

	keys := keySetOf("kid-1")
	cache.ReplaceIssuer(testIss, keys)
	// later changes to the caller's map are not visible
	keys["kid-2"] = &types.IssuerKey{KeyID: "kid-2"}
	_, err := cache.Lookup(testIss, "kid-2")
	assert.ErrorIs(t, err, types.ErrUnknownKid)

	// replacement drops keys that are no longer published
	cache.ReplaceIssuer(testIss, keySetOf("kid-3"))
	_, err = cache.Lookup(testIss, "kid-1")
	assert.ErrorIs(t, err, types.ErrUnknownKid)
	_, err = cache.Lookup(testIss, "kid-3")
	assert.NoError(t, err)

	cache.ReplaceIssuer("https://b.example.com", keySetOf("x"))
	cache.ReplaceIssuer("https://a.example.com", keySetOf("y"))
	assert.Equal(t, []string{"https://a.example.com", testIss, "https://b.example.com"}, cache.Issuers())
}

func TestJwkCacheRefreshKeepsKeysOnFailure(t *testing.T) {
	repo := &stubJwksRepo{keys: keySetOf("kid-1")}
	provider := global.OidcProvider{Iss: testIss, EndpointUrl: "https://accounts.example.com/certs"}
	cache := NewJwkCacheService(repo, []global.OidcProvider{provider})

	require.NoError(t, cache.Refresh(context.Background(), provider))
	assert.Equal(t, []string{provider.EndpointUrl}, repo.urls)

	repo.set(nil, errors.New("connection refused"))
	err := cache.Refresh(context.Background(), provider)
	assert.Error(t, err)

	key, err := cache.Lookup(testIss, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, "kid-1", key.KeyID)
}

func TestJwkCacheRefreshOverHttp(t *testing.T) {
	repo := repository.NewHttpJwksRepository(time.Second)
	httpmock.ActivateNonDefault(repo.GetClient().GetClient())
	defer httpmock.DeactivateAndReset()

	first := newIssuerForKid(t, "kid-1")
	second := newIssuerForKid(t, "kid-2")
	url := "https://accounts.example.com/certs"
	provider := global.OidcProvider{Iss: testIss, EndpointUrl: url}
	cache := NewJwkCacheService(repo, []global.OidcProvider{provider})

	httpmock.RegisterResponder("GET", url, httpmock.NewBytesResponder(200, first.JwksJSON(t)))
	require.NoError(t, cache.Populate(context.Background()))
	_, err := cache.Lookup(testIss, "kid-1")
	assert.NoError(t, err)

	// same document twice leaves the cache unchanged
	require.NoError(t, cache.Refresh(context.Background(), provider))
	_, err = cache.Lookup(testIss, "kid-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())

	// rotation
	httpmock.RegisterResponder("GET", url, httpmock.NewBytesResponder(200, second.JwksJSON(t)))
	require.NoError(t, cache.Refresh(context.Background(), provider))
	_, err = cache.Lookup(testIss, "kid-1")
	assert.ErrorIs(t, err, types.ErrUnknownKid)
	_, err = cache.Lookup(testIss, "kid-2")
	assert.NoError(t, err)

	// an outage keeps the rotated keys
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(503, "unavailable"))
	assert.Error(t, cache.Refresh(context.Background(), provider))
	_, err = cache.Lookup(testIss, "kid-2")
	assert.NoError(t, err)
}

func TestJwkCachePopulateReportsFailures(t *testing.T) {
	good := &stubJwksRepo{keys: keySetOf("kid-1")}
	providers := []global.OidcProvider{
		{Iss: testIss, EndpointUrl: "https://accounts.example.com/certs"},
		{Iss: "https://down.example.com", EndpointUrl: "https://down.example.com/certs"},
	}
	repo := &routingRepo{
		byUrl: map[string]*stubJwksRepo{
			providers[0].EndpointUrl: good,
			providers[1].EndpointUrl: {err: errors.New("timeout")},
		},
	}
	cache := NewJwkCacheService(repo, providers)

	assert.Equal(t, 1, cache.RefreshAll(context.Background()))
	// one unreachable provider does not block startup
	assert.NoError(t, cache.Populate(context.Background()))
	assert.Equal(t, []string{testIss}, cache.Issuers())

	// the scheduled refresh picks the provider up once it recovers
	repo.byUrl[providers[1].EndpointUrl].set(keySetOf("kid-9"), nil)
	assert.Equal(t, 0, cache.RefreshAll(context.Background()))
	_, err := cache.Lookup("https://down.example.com", "kid-9")
	assert.NoError(t, err)
}

func TestJwkCachePopulateFailsWhenNothingLoads(t *testing.T) {
	providers := []global.OidcProvider{
		{Iss: testIss, EndpointUrl: "https://accounts.example.com/certs"},
		{Iss: "https://down.example.com", EndpointUrl: "https://down.example.com/certs"},
	}
	cache := NewJwkCacheService(&stubJwksRepo{err: errors.New("connection refused")}, providers)

	err := cache.Populate(context.Background())
	assert.ErrorIs(t, err, types.ErrJwksFetch)
	assert.Empty(t, cache.Issuers())

	assert.NoError(t, NewJwkCacheService(&stubJwksRepo{}, nil).Populate(context.Background()))
}

func TestJwkCacheConcurrentRefreshAndLookup(t *testing.T) {
	repo := &stubJwksRepo{keys: keySetOf("shared", "a")}
	provider := global.OidcProvider{Iss: testIss, EndpointUrl: "https://accounts.example.com/certs"}
	cache := NewJwkCacheService(repo, []global.OidcProvider{provider})
	require.NoError(t, cache.Refresh(context.Background(), provider))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%2 == 0 {
					repo.set(keySetOf("shared", "a"), nil)
				} else {
					repo.set(keySetOf("shared", "b"), nil)
				}
				assert.NoError(t, cache.Refresh(context.Background(), provider))
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key, err := cache.Lookup(testIss, "shared")
				if assert.NoError(t, err) {
					assert.Equal(t, "shared", key.KeyID)
				}
			}
		}()
	}
	wg.Wait()
}

func TestJwkCacheScheduleRefresh(t *testing.T) {
	repo := &stubJwksRepo{keys: keySetOf("kid-1")}
	provider := global.OidcProvider{Iss: testIss, EndpointUrl: "https://accounts.example.com/certs"}
	cache := NewJwkCacheService(repo, []global.OidcProvider{provider})

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New()
	cache.ScheduleRefresh(ctx, c, time.Second)
	c.Start()
	defer func() {
		cancel()
		<-c.Stop().Done()
	}()

	assert.Eventually(t, func() bool {
		return repo.callCount() > 0
	}, 5*time.Second, 50*time.Millisecond)
	_, err := cache.Lookup(testIss, "kid-1")
	assert.NoError(t, err)
}

func TestFederatedJwksURL(t *testing.T) {
	tests := []struct {
		iss  string
		want string
	}{
		{"https://my-tenant.us.auth0.com/", "https://my-tenant.us.auth0.com/.well-known/jwks.json"},
		{"https://cognito-idp.us-east-1.amazonaws.com/us-east-1_AbCdEf", "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_AbCdEf/.well-known/jwks.json"},
		{"https://my-tenant.us.auth0.com", ""},
		{"https://my-tenant.eu.auth0.com/", ""},
		{"http://my-tenant.us.auth0.com/", ""},
		{"https://evil.com/.us.auth0.com/", ""},
		{"https://cognito-idp.us-east-1.amazonaws.com/pool/extra", ""},
		{"https://accounts.google.com", ""},
	}
	for _, tc := range tests {
		got, err := FederatedJwksURL(tc.iss)
		if tc.want == "" {
			assert.ErrorIs(t, err, types.ErrNotFederatedIssuer, tc.iss)
			continue
		}
		if assert.NoError(t, err, tc.iss) {
			assert.Equal(t, tc.want, got)
		}
	}
}

// routingRepo dispatches fetches to a stub per endpoint
type routingRepo struct {
	byUrl map[string]*stubJwksRepo
}

func (r *routingRepo) FetchJwks(ctx context.Context, issuer string, jwksUrl string) (types.KeySet, error) {
	stub, ok := r.byUrl[jwksUrl]
	if !ok {
		return nil, types.ErrJwksFetch
	}
	return stub.FetchJwks(ctx, issuer, jwksUrl)
}

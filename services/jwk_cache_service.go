package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/metrics"
	"github.com/zkkeyless/go-keyless-prover/repository"
	"github.com/zkkeyless/go-keyless-prover/types"
)

// KeyLookup resolves an issuer's verification key by key id
type KeyLookup interface {
	Lookup(iss, kid string) (*types.IssuerKey, error)
}

// KeyCache is a KeyLookup whose contents are replaced per issuer
type KeyCache interface {
	KeyLookup
	ReplaceIssuer(iss string, keys types.KeySet)
	Refresh(ctx context.Context, provider global.OidcProvider) error
}

const defaultJwkFetchTimeout = 10 * time.Second

// JwkCacheService mirrors the key sets of the configured OIDC providers.
// Each issuer's KeySet is immutable once stored and replaced as a whole on refresh.
type JwkCacheService struct {
	repo         repository.JwksRepository
	providers    []global.OidcProvider
	fetchTimeout time.Duration

	keys    sync.Map // iss -> types.KeySet
	writers sync.Map // iss -> *sync.Mutex
}

func NewJwkCacheService(repo repository.JwksRepository, providers []global.OidcProvider) *JwkCacheService {
	return &JwkCacheService{
		repo:         repo,
		providers:    providers,
		fetchTimeout: defaultJwkFetchTimeout,
	}
}

func (s *JwkCacheService) Lookup(iss, kid string) (*types.IssuerKey, error) {
	v, ok := s.keys.Load(iss)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownIssuer, iss)
	}
	key, ok := v.(types.KeySet)[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s for issuer %s", types.ErrUnknownKid, kid, iss)
	}
	return key, nil
}

// ReplaceIssuer swaps the issuer's whole key set. Keys missing from the new set stop resolving.
func (s *JwkCacheService) ReplaceIssuer(iss string, keys types.KeySet) {
	cp := make(types.KeySet, len(keys))
	for kid, k := range keys {
		cp[kid] = k
	}
	s.keys.Store(iss, cp)
}

// Issuers returns the issuers currently cached, sorted
func (s *JwkCacheService) Issuers() []string {
	var out []string
	s.keys.Range(func(k, _ interface{}) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

func (s *JwkCacheService) writerFor(iss string) *sync.Mutex {
	m, _ := s.writers.LoadOrStore(iss, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// Refresh fetches one provider's key set and replaces the cached copy.
// On failure the previously cached keys stay in place.
func (s *JwkCacheService) Refresh(ctx context.Context, provider global.OidcProvider) error {
	mu := s.writerFor(provider.Iss)
	mu.Lock()
	defer mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	keys, err := s.repo.FetchJwks(fetchCtx, provider.Iss, provider.EndpointUrl)
	if err != nil {
		metrics.JwkRefreshTotal.WithLabelValues(provider.Iss, "error").Inc()
		return fmt.Errorf("refreshing keys of %s: %w", provider.Iss, err)
	}
	s.ReplaceIssuer(provider.Iss, keys)
	metrics.JwkRefreshTotal.WithLabelValues(provider.Iss, "ok").Inc()
	level.Debug(global.Logger).Log("msg", "jwk set refreshed", "iss", provider.Iss, "keys", len(keys))
	return nil
}

// RefreshAll refreshes every configured provider concurrently, returning the number of failures
func (s *JwkCacheService) RefreshAll(ctx context.Context) int {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	for _, p := range s.providers {
		wg.Add(1)
		go func(p global.OidcProvider) {
			defer wg.Done()
			if err := s.Refresh(ctx, p); err != nil {
				level.Warn(global.Logger).Log("msg", "failed to refresh jwk set", "iss", p.Iss, "url", p.EndpointUrl, "err", err)
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	return failures
}

// Populate loads the providers' keys before the server starts accepting requests.
// Providers that fail are left to the scheduled refresh; an error is returned only if none loaded.
func (s *JwkCacheService) Populate(ctx context.Context) error {
	failures := s.RefreshAll(ctx)
	if failures > 0 {
		level.Error(global.Logger).Log("msg", "some jwk sets failed to load", "failed", failures, "providers", len(s.providers))
	}
	if len(s.providers) > 0 && failures == len(s.providers) {
		return fmt.Errorf("%w: none of %d providers loaded", types.ErrJwksFetch, len(s.providers))
	}
	level.Info(global.Logger).Log("msg", "jwk cache populated", "issuers", len(s.providers)-failures)
	return nil
}

// ScheduleRefresh registers the periodic refresh on c. Jobs stop fetching once ctx is cancelled.
func (s *JwkCacheService) ScheduleRefresh(ctx context.Context, c *cron.Cron, every time.Duration) cron.EntryID {
	return c.Schedule(cron.Every(every), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.RefreshAll(ctx)
	}))
}

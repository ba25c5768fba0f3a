package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/repository"
	"github.com/zkkeyless/go-keyless-prover/testutil"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

const (
	testIss = "https://accounts.example.com"
	testKid = "test-kid"
	testAud = "test-client-id"
	testSub = "113990307082899718775"
)

// stubJwksRepo serves a fixed key set and records what was fetched
type stubJwksRepo struct {
	mu    sync.Mutex
	keys  types.KeySet
	err   error
	calls int
	urls  []string
}

func (r *stubJwksRepo) FetchJwks(ctx context.Context, issuer string, jwksUrl string) (types.KeySet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.urls = append(r.urls, jwksUrl)
	if r.err != nil {
		return nil, r.err
	}
	return r.keys, nil
}

func (r *stubJwksRepo) set(keys types.KeySet, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = keys
	r.err = err
}

func (r *stubJwksRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// proveFixture is a request that passes every training wheels check until a test mutates it
type proveFixture struct {
	issuer    *testutil.TestIssuer
	cc        *types.CircuitConfig
	keys      *JwkCacheService
	federated *stubJwksRepo
	now       time.Time
	claims    map[string]interface{}
	req       *types.RequestInput
}

func newProveFixture(t *testing.T, issuer *testutil.TestIssuer) *proveFixture {
	t.Helper()
	cc := util.DefaultCircuitConfig()

	keySet, err := repository.ParseJwks(issuer.Iss, issuer.JwksJSON(t))
	require.NoError(t, err)
	cache := NewJwkCacheService(&stubJwksRepo{}, nil)
	cache.ReplaceIssuer(issuer.Iss, keySet)

	now := time.Unix(1700000000, 0)
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i + 1)
	}
	epk, err := types.NewEd25519EphemeralPublicKey(pub)
	require.NoError(t, err)

	f := &proveFixture{
		issuer:    issuer,
		cc:        cc,
		keys:      cache,
		federated: &stubJwksRepo{},
		now:       now,
		req: &types.RequestInput{
			Epk:            epk,
			EpkBlinder:     types.FlexBytes{0x2a, 0x01},
			ExpDateSecs:    uint64(now.Unix()) + 3600,
			ExpHorizonSecs: 10000000,
			Pepper:         &types.Pepper{0x01, 0x02, 0x03},
			UidKey:         UidKeySub,
		},
	}
	f.claims = map[string]interface{}{
		"iss":            issuer.Iss,
		"aud":            testAud,
		"sub":            testSub,
		"email":          "alice@example.com",
		"email_verified": true,
		"iat":            now.Unix() - 60,
		"exp":            now.Unix() + 3600,
		"nonce":          f.nonce(t),
	}
	f.sign(t)
	return f
}

// nonce recomputes the commitment for the request's current epk, exp date and blinder
func (f *proveFixture) nonce(t *testing.T) string {
	t.Helper()
	n, err := ComputeNonce(f.req.ExpDateSecs, f.req.Epk, util.FrFromLEBytesModOrder(f.req.EpkBlinder), f.cc)
	require.NoError(t, err)
	return util.FrToDecimal(n)
}

func (f *proveFixture) sign(t *testing.T) {
	t.Helper()
	f.req.JwtB64 = f.issuer.Sign(t, f.claims)
}

func (f *proveFixture) trainingWheels(conf global.ProverConfig) *TrainingWheelsService {
	tw := NewTrainingWheelsService(f.keys, f.federated, f.cc, conf)
	tw.now = func() time.Time { return f.now }
	return tw
}

func (f *proveFixture) verified(t *testing.T) *types.VerifiedInput {
	t.Helper()
	vi, err := f.trainingWheels(global.ProverConfig{}).PreprocessAndValidate(context.Background(), f.req)
	require.NoError(t, err)
	return vi
}

func ptrFr(e fr.Element) *fr.Element {
	return &e
}

func newIssuerForKid(t *testing.T, kid string) *testutil.TestIssuer {
	return testutil.NewTestIssuer(t, testIss, kid)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

// implements JwksRepository over HTTP
type HttpJwksRepository struct {
	client *resty.Client
}

func NewHttpJwksRepository(timeout time.Duration) *HttpJwksRepository {
	cl := resty.New().SetTimeout(timeout)
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "go-keyless-prover/1.0.0")
	return &HttpJwksRepository{client: cl}
}

// returns a resty client
func (r *HttpJwksRepository) GetClient() *resty.Client {
	return r.client
}

type jwksEnvelope struct {
	Keys []json.RawMessage `json:"keys"`
}

// FetchJwks downloads a key set. Keys that aren't RSA or don't use the accepted exponent are dropped with a warning.
func (r *HttpJwksRepository) FetchJwks(ctx context.Context, issuer string, jwksUrl string) (types.KeySet, error) {
	resp, err := r.client.R().SetContext(ctx).Get(jwksUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrJwksFetch, err)
	}
	if hErr := handleError(resp); hErr != nil {
		return nil, hErr
	}
	return ParseJwks(issuer, resp.Body())
}

// ParseJwks parses a {"keys":[...]} document into a KeySet for issuer
func ParseJwks(issuer string, body []byte) (types.KeySet, error) {
	var envelope jwksEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: error while parsing jwk json: %v", types.ErrJwksFetch, err)
	}
	if envelope.Keys == nil {
		return nil, fmt.Errorf("%w: error while parsing jwk json: \"keys\" not found", types.ErrJwksFetch)
	}
	keySet := make(types.KeySet, len(envelope.Keys))
	for _, raw := range envelope.Keys {
		key, err := parseRSAKey(issuer, raw)
		if err != nil {
			level.Warn(global.Logger).Log("msg", "dropping jwk", "iss", issuer, "err", err, "jwk", string(raw))
			continue
		}
		keySet[key.KeyID] = key
	}
	return keySet, nil
}

func parseRSAKey(issuer string, raw json.RawMessage) (*types.IssuerKey, error) {
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(jwk.RSAPublicKey)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %s", key.KeyType())
	}
	if rsaKey.KeyID() == "" {
		return nil, fmt.Errorf("jwk has no kid")
	}
	e := util.EncodeB64URLNoPad(rsaKey.E())
	if e != types.AcceptedRSAExponent {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedExponent, e)
	}
	n := rsaKey.N()
	alg := "RS256"
	if rsaKey.Algorithm() != nil && rsaKey.Algorithm().String() != "" {
		alg = rsaKey.Algorithm().String()
	}
	pub := &types.IssuerKey{
		Issuer:   issuer,
		KeyID:    rsaKey.KeyID(),
		Alg:      alg,
		E:        e,
		N:        util.EncodeB64URLNoPad(n),
		Exponent: 65537,
	}
	pub.Modulus = new(big.Int).SetBytes(n)
	return pub, nil
}

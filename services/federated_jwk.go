package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/go-kit/log/level"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/repository"
	"github.com/zkkeyless/go-keyless-prover/types"
)

type federatedPattern struct {
	re     *regexp.Regexp
	suffix string
}

// issuers whose key endpoint is derived from the issuer string
var federatedPatterns = []federatedPattern{
	// auth0 issuers end with a slash
	{re: regexp.MustCompile(`^https://[a-zA-Z0-9-_]+\.us\.auth0\.com/$`), suffix: ".well-known/jwks.json"},
	{re: regexp.MustCompile(`^https://cognito-idp\.[a-zA-Z0-9-_]+\.amazonaws\.com/[a-zA-Z0-9-_]+$`), suffix: "/.well-known/jwks.json"},
}

// FederatedJwksURL returns the well-known key set URL of an allow-listed issuer
func FederatedJwksURL(iss string) (string, error) {
	for _, p := range federatedPatterns {
		if p.re.MatchString(iss) {
			return iss + p.suffix, nil
		}
	}
	return "", fmt.Errorf("%w: %s", types.ErrNotFederatedIssuer, iss)
}

// FederatedJwk fetches the signing key of jwt from its issuer. Only allow-listed issuers are fetched
// and the result is not cached.
func FederatedJwk(ctx context.Context, repo repository.JwksRepository, jwt *types.DecodedJWT) (*types.IssuerKey, error) {
	iss := jwt.Payload.Iss
	url, err := FederatedJwksURL(iss)
	if err != nil {
		return nil, err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, defaultJwkFetchTimeout)
	defer cancel()

	keys, err := repo.FetchJwks(fetchCtx, iss, url)
	if err != nil {
		level.Warn(global.Logger).Log("msg", "federated jwk fetch failed", "iss", iss, "url", url, "err", err)
		return nil, err
	}
	key, ok := keys[jwt.Header.Kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s for federated issuer %s", types.ErrUnknownKid, jwt.Header.Kid, iss)
	}
	return key, nil
}

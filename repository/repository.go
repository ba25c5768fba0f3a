package repository

import (
	"context"

	"github.com/zkkeyless/go-keyless-prover/types"
)

// JwksRepository fetches an issuer's published key set
type JwksRepository interface {
	// FetchJwks returns the usable RSA keys at jwksUrl, keyed by kid
	FetchJwks(ctx context.Context, issuer string, jwksUrl string) (types.KeySet, error)
}

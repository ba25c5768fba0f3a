package services

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/go-kit/log/level"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/metrics"
	"github.com/zkkeyless/go-keyless-prover/repository"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

const (
	UidKeyEmail = "email"
	UidKeySub   = "sub"

	// accepted clock skew on the jwt exp claim
	jwtExpLeewaySecs = 60
)

// TrainingWheelsService runs the ordered checks deciding whether a request may be proved at all
type TrainingWheelsService struct {
	keys          KeyLookup
	federatedRepo repository.JwksRepository
	circuitConfig *types.CircuitConfig
	conf          global.ProverConfig
	now           func() time.Time
}

func NewTrainingWheelsService(keys KeyLookup, federatedRepo repository.JwksRepository, circuitConfig *types.CircuitConfig, conf global.ProverConfig) *TrainingWheelsService {
	return &TrainingWheelsService{
		keys:          keys,
		federatedRepo: federatedRepo,
		circuitConfig: circuitConfig,
		conf:          conf,
		now:           time.Now,
	}
}

// PreprocessAndValidate returns a VerifiedInput only if every check passes, in order.
// The returned error carries the step that failed (see types.StepOf).
func (tw *TrainingWheelsService) PreprocessAndValidate(ctx context.Context, req *types.RequestInput) (*types.VerifiedInput, error) {
	defer global.Span(ctx, "TrainingWheelChecks")()

	vi, err := tw.validate(ctx, req)
	if err != nil {
		step := types.StepOf(err)
		metrics.TrainingWheelsRejectionsTotal.WithLabelValues(step.String()).Inc()
		level.Warn(global.LoggerFrom(ctx)).Log("msg", "training wheels check failed", "step", step, "kind", types.KindOf(err), "err", err)
		return nil, err
	}
	return vi, nil
}

func (tw *TrainingWheelsService) validate(ctx context.Context, req *types.RequestInput) (*types.VerifiedInput, error) {
	if req.Epk.IsZero() {
		return nil, types.Malformed(types.StepNone, fmt.Errorf("%w: missing epk", types.ErrBadRequest))
	}

	jwt, err := util.DecodeJWT(req.JwtB64)
	if err != nil {
		return nil, types.Malformed(types.StepDecodeJWT, err)
	}

	jwk, err := tw.getJwk(ctx, jwt)
	if err != nil {
		return nil, err
	}

	if err := tw.verifyJwtSignature(ctx, jwt, jwk); err != nil {
		return nil, types.Rejected(types.StepVerifyJWTSignature, err)
	}

	if err := ensureEpkNotExpired(ctx, req.ExpDateSecs, jwt.Payload.Iat, req.ExpHorizonSecs); err != nil {
		return nil, types.Rejected(types.StepEnsureEpkNotExpired, err)
	}

	if tw.conf.EnableJwtIatNotInFutureCheck {
		if err := tw.checkIatNotInFuture(ctx, jwt.Payload.Iat); err != nil {
			return nil, types.Rejected(types.StepCheckIatNotInFuture, err)
		}
	}

	blinder := util.FrFromLEBytesModOrder(req.EpkBlinder)
	if err := tw.checkNonceConsistency(ctx, jwt, req, blinder); err != nil {
		return nil, err
	}

	uidVal, err := ensureUidKeyNotNull(ctx, req.UidKey, &jwt.Payload)
	if err != nil {
		return nil, types.Rejected(types.StepEnsureUidKeyNotNull, err)
	}

	return &types.VerifiedInput{
		Jwt:            jwt,
		Jwk:            jwk,
		Epk:            req.Epk,
		EpkBlinderFr:   blinder,
		ExpDateSecs:    req.ExpDateSecs,
		PepperFr:       util.FrFromLEBytesModOrder(req.Pepper[:]),
		UidKey:         req.UidKey,
		UidVal:         uidVal,
		ExtraField:     req.ExtraField,
		ExpHorizonSecs: req.ExpHorizonSecs,
		IdcAud:         req.IdcAud,
		SkipAudChecks:  req.SkipAudChecks,
	}, nil
}

// getJwk prefers the cached key of a configured provider and falls back to a federated fetch
func (tw *TrainingWheelsService) getJwk(ctx context.Context, jwt *types.DecodedJWT) (*types.IssuerKey, error) {
	defer global.Span(ctx, "GetJWK")()

	key, cacheErr := tw.keys.Lookup(jwt.Payload.Iss, jwt.Header.Kid)
	if cacheErr == nil {
		return key, nil
	}
	if !tw.conf.EnableFederatedJwks {
		return nil, types.Upstream(types.StepGetJWK, fmt.Errorf("%w: %v", types.ErrFederatedJwksDisabled, cacheErr))
	}
	key, err := FederatedJwk(ctx, tw.federatedRepo, jwt)
	if err != nil {
		if errors.Is(err, types.ErrJwksFetch) {
			return nil, types.Upstream(types.StepGetJWK, err)
		}
		return nil, types.Rejected(types.StepGetJWK, err)
	}
	return key, nil
}

func (tw *TrainingWheelsService) verifyJwtSignature(ctx context.Context, jwt *types.DecodedJWT, key *types.IssuerKey) error {
	defer global.Span(ctx, "VerifyJWTSignature")()

	if jwt.Header.Alg != jwa.RS256.String() {
		return fmt.Errorf("%w: unexpected alg %q", types.ErrJwtSignature, jwt.Header.Alg)
	}
	if _, err := jws.Verify([]byte(jwt.Compact), jws.WithKey(jwa.RS256, key.PublicKey())); err != nil {
		return fmt.Errorf("%w: %v", types.ErrJwtSignature, err)
	}
	// exp must be present even when its value isn't checked
	exp := jwt.Payload.Exp
	if exp == nil {
		return fmt.Errorf("%w: missing exp claim", types.ErrJwtExpired)
	}
	if !tw.conf.EnableJwtExpNotInThePastCheck {
		return nil
	}
	now := tw.now().Unix()
	if now > 0 && *exp < uint64(now) && uint64(now)-*exp > jwtExpLeewaySecs {
		return fmt.Errorf("%w: exp %d, now %d", types.ErrJwtExpired, *exp, now)
	}
	return nil
}

// ensureEpkNotExpired requires expDate < iat + horizon without overflowing 64 bits
func ensureEpkNotExpired(ctx context.Context, expDate, iat, horizon uint64) error {
	defer global.Span(ctx, "EnsureEpkNotExpired")()

	sum, carry := bits.Add64(iat, horizon, 0)
	if carry == 0 && expDate >= sum {
		return fmt.Errorf("%w: exp_date %d, iat %d, horizon %d", types.ErrEpkExpired, expDate, iat, horizon)
	}
	return nil
}

func (tw *TrainingWheelsService) checkIatNotInFuture(ctx context.Context, iat uint64) error {
	defer global.Span(ctx, "CheckIatNotInFuture")()

	now := tw.now().Unix()
	if now < 0 || iat > uint64(now) {
		return fmt.Errorf("%w: iat %d, now %d", types.ErrIatInFuture, iat, now)
	}
	return nil
}

func (tw *TrainingWheelsService) checkNonceConsistency(ctx context.Context, jwt *types.DecodedJWT, req *types.RequestInput, blinder fr.Element) error {
	defer global.Span(ctx, "CheckNonceConsistency")()

	nonce, err := ComputeNonce(req.ExpDateSecs, req.Epk, blinder, tw.circuitConfig)
	if err != nil {
		return types.Malformed(types.StepCheckNonceConsistency, err)
	}
	if jwt.Payload.Nonce != util.FrToDecimal(nonce) {
		return types.Rejected(types.StepCheckNonceConsistency, types.ErrNonceMismatch)
	}
	return nil
}

func ensureUidKeyNotNull(ctx context.Context, uidKey string, payload *types.JwtPayload) (string, error) {
	defer global.Span(ctx, "EnsureUidKeyNotNull")()

	switch uidKey {
	case UidKeyEmail:
		if payload.EmailVerified == nil || !*payload.EmailVerified {
			return "", types.ErrEmailNotVerified
		}
		if util.IsNilOrEmpty(payload.Email) {
			return "", types.ErrMissingEmail
		}
		return *payload.Email, nil
	case UidKeySub:
		if util.IsNilOrEmpty(payload.Sub) {
			return "", types.ErrMissingSub
		}
		return *payload.Sub, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnrecognizedUidKey, uidKey)
	}
}

// ComputeNonce is the commitment Poseidon(epk scalars with length, expDate, blinder) the token's nonce must equal
func ComputeNonce(expDate uint64, epk types.EphemeralPublicKey, blinder fr.Element, circuitConfig *types.CircuitConfig) (fr.Element, error) {
	maxEpk, err := circuitConfig.MaxLength("epk")
	if err != nil {
		return fr.Element{}, err
	}
	scalars, err := util.PadAndPackBytesWithLen(epk.Bytes(), maxEpk*util.BytesPackedPerScalar)
	if err != nil {
		return fr.Element{}, fmt.Errorf("epk: %w", err)
	}
	scalars = append(scalars, util.FrFromUint64(expDate), blinder)
	return util.HashScalars(scalars)
}

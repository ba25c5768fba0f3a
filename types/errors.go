package types

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedToken is returned when the compact token can't be split or decoded
	ErrMalformedToken = errors.New("malformed jwt")

	// ErrBadRequest is returned when request fields fail to decode
	ErrBadRequest = errors.New("bad request")

	// ErrUnknownIssuer is returned when no keys are cached for an issuer
	ErrUnknownIssuer = errors.New("unknown issuer")

	// ErrUnknownKid is returned when the issuer is known but the key id isn't
	ErrUnknownKid = errors.New("unknown kid")

	// ErrNotFederatedIssuer is returned when an issuer doesn't match any federated pattern
	ErrNotFederatedIssuer = errors.New("not a federated iss")

	// ErrFederatedJwksDisabled is returned on a cache miss while federated lookup is turned off
	ErrFederatedJwksDisabled = errors.New("federated jwk lookup is disabled")

	// ErrJwksFetch is returned when a key set endpoint can't be reached or parsed
	ErrJwksFetch = errors.New("jwk fetch error")

	// ErrUnsupportedExponent is returned for RSA keys with an exponent other than AQAB
	ErrUnsupportedExponent = errors.New("unsupported rsa exponent")

	ErrJwtSignature       = errors.New("jwt signature verification failed")
	ErrJwtExpired         = errors.New("jwt expired")
	ErrEpkExpired         = errors.New("epk expiry date is not within the expiry horizon")
	ErrIatInFuture        = errors.New("jwt which was issued in the future")
	ErrNonceMismatch      = errors.New("nonce does not match the ephemeral public key commitment")
	ErrEmailNotVerified   = errors.New("email_verified is not true")
	ErrMissingEmail       = errors.New("missing email in jwt payload")
	ErrMissingSub         = errors.New("missing sub in jwt payload")
	ErrUnrecognizedUidKey = errors.New("unrecognized uid_key")

	// ErrInputTooLong is returned when a value doesn't fit the circuit's maximum length
	ErrInputTooLong = errors.New("input exceeds maximum length")

	// ErrNotInField is returned when a value is not a canonical field element
	ErrNotInField = errors.New("value is not a canonical field element")

	// ErrProverWaitAbandoned is returned when the caller goes away before the proving slot frees up
	ErrProverWaitAbandoned = errors.New("gave up waiting for the prover")

	ErrWitnessGeneration = errors.New("witness generation failed")
	ErrProofGeneration   = errors.New("proof generation failed")
	ErrInvalidProof      = errors.New("prover returned a malformed proof")
	ErrProofVerification = errors.New("proof does not verify under the verification key")
	ErrSignature         = errors.New("training wheels signature is invalid")

	// ErrInternal (for unahandled exceptions)
	ErrInternal = errors.New("internal error")
)

// ErrorKind classifies pipeline failures for status mapping
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindMalformedInput
	KindPolicyRejection
	KindUpstreamUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindPolicyRejection:
		return "policy_rejection"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// CheckStep names the training wheels check (or later stage) that failed
type CheckStep int

const (
	StepNone CheckStep = iota
	StepDecodeJWT
	StepGetJWK
	StepVerifyJWTSignature
	StepEnsureEpkNotExpired
	StepCheckIatNotInFuture
	StepCheckNonceConsistency
	StepEnsureUidKeyNotNull
)

var stepNames = map[CheckStep]string{
	StepNone:                  "None",
	StepDecodeJWT:             "DecodeJWT",
	StepGetJWK:                "GetJWK",
	StepVerifyJWTSignature:    "VerifyJWTSignature",
	StepEnsureEpkNotExpired:   "EnsureEpkNotExpired",
	StepCheckIatNotInFuture:   "CheckIatNotInFuture",
	StepCheckNonceConsistency: "CheckNonceConsistency",
	StepEnsureUidKeyNotNull:   "EnsureUidKeyNotNull",
}

func (s CheckStep) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("CheckStep(%d)", int(s))
}

// PipelineError carries the classification of a failed request
type PipelineError struct {
	Kind ErrorKind
	Step CheckStep
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Step == StepNone {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func Malformed(step CheckStep, err error) error {
	return &PipelineError{Kind: KindMalformedInput, Step: step, Err: err}
}

func Rejected(step CheckStep, err error) error {
	return &PipelineError{Kind: KindPolicyRejection, Step: step, Err: err}
}

func Upstream(step CheckStep, err error) error {
	return &PipelineError{Kind: KindUpstreamUnavailable, Step: step, Err: err}
}

func Internal(err error) error {
	return &PipelineError{Kind: KindInternal, Step: StepNone, Err: err}
}

// KindOf returns the classification of err. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// StepOf returns the check step at which err was raised
func StepOf(err error) CheckStep {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Step
	}
	return StepNone
}

package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorClassification(t *testing.T) {
	err := fmt.Errorf("handling request: %w", Rejected(StepCheckNonceConsistency, ErrNonceMismatch))
	assert.Equal(t, KindPolicyRejection, KindOf(err))
	assert.Equal(t, StepCheckNonceConsistency, StepOf(err))
	assert.ErrorIs(t, err, ErrNonceMismatch)
	assert.Contains(t, err.Error(), "CheckNonceConsistency")

	assert.Equal(t, KindMalformedInput, KindOf(Malformed(StepDecodeJWT, ErrMalformedToken)))
	assert.Equal(t, KindUpstreamUnavailable, KindOf(Upstream(StepGetJWK, ErrJwksFetch)))
	assert.Equal(t, KindInternal, KindOf(Internal(ErrWitnessGeneration)))

	plain := errors.New("unclassified")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, StepNone, StepOf(plain))
}

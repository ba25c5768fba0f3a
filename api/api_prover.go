package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/metrics"
	"github.com/zkkeyless/go-keyless-prover/services"
	"github.com/zkkeyless/go-keyless-prover/types"
)

type ProverApi struct {
	trainingWheels *services.TrainingWheelsService
	circuitInputs  *services.CircuitInputService
	prover         *services.ProverService
	attestation    *services.AttestationService
	debugChecks    bool
	validate       *validator.Validate
}

func NewProverApi(trainingWheels *services.TrainingWheelsService, circuitInputs *services.CircuitInputService, prover *services.ProverService, attestation *services.AttestationService, debugChecks bool) *ProverApi {
	return &ProverApi{
		trainingWheels: trainingWheels,
		circuitInputs:  circuitInputs,
		prover:         prover,
		attestation:    attestation,
		debugChecks:    debugChecks,
		validate:       validator.New(),
	}
}

// Prove generates a training wheels signed keyless proof
// @Summary Generate a keyless Groth16 proof
// @Description Validates the OIDC token and ephemeral key commitment, proves the keyless relation and co-signs the proof
// @Tags Prover
// @Accept json
// @Produce json
// @Param request body types.RequestInput true "proof request"
// @Success 200 {object} types.SuccessResponse
// @Failure 400 {object} types.ErrorResponse "malformed or rejected request"
// @Failure 500 {object} types.ErrorResponse "internal error"
// @Router /v0/prove [post]
func (pa *ProverApi) Prove(c *gin.Context) {
	var input types.RequestInput
	bindErr := c.ShouldBindBodyWith(&input, binding.JSON)

	logger := global.LoggerFrom(c.Request.Context())
	if body, ok := c.Get(gin.BodyBytesKey); ok {
		if b, ok := body.([]byte); ok {
			logger = log.With(logger, "req_hash", fmt.Sprintf("%016x", xxhash.Sum64(b)))
		}
	}
	ctx := global.WithLogger(c.Request.Context(), logger)

	if bindErr != nil {
		level.Info(logger).Log("msg", "invalid request body", "err", bindErr)
		metrics.ProveRequestsTotal.WithLabelValues(types.KindMalformedInput.String()).Inc()
		ApiErrorf(c, http.StatusBadRequest, "invalid request body: %s", bindErr)
		return
	}
	if err := pa.validate.Struct(input); err != nil {
		var vErrs validator.ValidationErrors
		msg := err.Error()
		if errors.As(err, &vErrs) {
			msg = ValidatorErrorToUser(vErrs)
		}
		metrics.ProveRequestsTotal.WithLabelValues(types.KindMalformedInput.String()).Inc()
		ApiErrorf(c, http.StatusBadRequest, "%s", msg)
		return
	}

	resp, err := pa.handle(ctx, &input)
	if err != nil {
		code, msg := statusForError(err)
		lvl := level.Info
		if code >= http.StatusInternalServerError {
			lvl = level.Error
		}
		lvl(logger).Log("msg", "prove request failed", "kind", types.KindOf(err), "step", types.StepOf(err), "err", err)
		metrics.ProveRequestsTotal.WithLabelValues(types.KindOf(err).String()).Inc()
		ApiErrorf(c, code, "%s", msg)
		return
	}
	metrics.ProveRequestsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, resp)
}

func (pa *ProverApi) handle(ctx context.Context, input *types.RequestInput) (*types.SuccessResponse, error) {
	verified, err := pa.trainingWheels.PreprocessAndValidate(ctx, input)
	if err != nil {
		return nil, err
	}
	signals, pih, err := pa.circuitInputs.Derive(ctx, verified)
	if err != nil {
		return nil, err
	}
	proof, err := pa.prover.Prove(ctx, signals, pih)
	if err != nil {
		return nil, err
	}

	endSpan := global.Span(ctx, "SignProof")
	sig, err := pa.attestation.Sign(proof, pih)
	endSpan()
	if err != nil {
		return nil, types.Internal(err)
	}
	resp := &types.SuccessResponse{
		Proof:                   *proof,
		PublicInputsHash:        pih,
		TrainingWheelsSignature: sig,
	}

	if pa.debugChecks {
		if err := pa.attestation.Verify(resp, pa.attestation.PublicKey()); err != nil {
			return nil, types.Internal(fmt.Errorf("self check of training wheels signature failed: %w", err))
		}
	}
	return resp, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/metrics"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
	"golang.org/x/sync/semaphore"
)

// WitnessGenerator computes a witness file from the circuit input signals.
// cleanup removes whatever the generator wrote and is safe to call once the proof is done.
type WitnessGenerator interface {
	GenerateWitness(ctx context.Context, signals *types.CircuitInputSignals) (witnessPath string, cleanup func(), err error)
}

// ProvingEngine turns a witness into a snarkjs formatted Groth16 proof. Implementations are not
// safe for concurrent use.
type ProvingEngine interface {
	Prove(ctx context.Context, witnessPath string) (proofJSON []byte, stats types.EngineStats, err error)
}

// ProverService owns the proving engine. At most one witness and proof computation runs at a time.
type ProverService struct {
	witnessGen WitnessGenerator
	engine     ProvingEngine
	vk         *util.PreparedVerificationKey
	slot       *semaphore.Weighted
}

func NewProverService(witnessGen WitnessGenerator, engine ProvingEngine, vk *util.PreparedVerificationKey) *ProverService {
	return &ProverService{
		witnessGen: witnessGen,
		engine:     engine,
		vk:         vk,
		slot:       semaphore.NewWeighted(1),
	}
}

// Prove generates a proof for signals and verifies it against publicInputsHash before returning it.
// ctx only bounds the wait for the proving slot; a computation that has started runs to completion.
func (ps *ProverService) Prove(ctx context.Context, signals *types.CircuitInputSignals, publicInputsHash types.PoseidonHash) (*types.Groth16Proof, error) {
	logger := global.LoggerFrom(ctx)

	waitStart := time.Now()
	if err := ps.slot.Acquire(ctx, 1); err != nil {
		// the client left or timed out; nothing failed on our side
		return nil, types.Upstream(types.StepNone, fmt.Errorf("%w: %w", types.ErrProverWaitAbandoned, err))
	}
	defer ps.slot.Release(1)
	metrics.ObserveSince(metrics.ProverQueueWaitLatency, waitStart)

	// the engine call is not interruptible, so the work below ignores client cancellation
	workCtx := global.WithLogger(context.Background(), logger)

	witnessPath, cleanup, err := ps.generateWitness(workCtx, signals)
	if err != nil {
		return nil, types.Internal(err)
	}
	defer cleanup()

	proofJSON, err := ps.generateProof(workCtx, witnessPath)
	if err != nil {
		return nil, types.Internal(err)
	}

	proof, err := util.ParseRapidsnarkProof(proofJSON)
	if err != nil {
		return nil, types.Internal(err)
	}

	if err := ps.verifyProof(workCtx, proof, publicInputsHash); err != nil {
		level.Error(logger).Log("msg", "generated proof does not verify", "err", err)
		return nil, types.Internal(err)
	}
	return proof, nil
}

func (ps *ProverService) generateWitness(ctx context.Context, signals *types.CircuitInputSignals) (string, func(), error) {
	defer global.Span(ctx, "GenerateWitness")()
	start := time.Now()
	defer metrics.ObserveSince(metrics.WitnessGenerationLatency, start)

	path, cleanup, err := ps.witnessGen.GenerateWitness(ctx, signals)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", types.ErrWitnessGeneration, err)
	}
	if cleanup == nil {
		cleanup = func() {}
	}
	return path, cleanup, nil
}

func (ps *ProverService) generateProof(ctx context.Context, witnessPath string) ([]byte, error) {
	defer global.Span(ctx, "GenerateProof")()

	proofJSON, stats, err := ps.engine.Prove(ctx, witnessPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProofGeneration, err)
	}
	metrics.ProofGenerationLatency.Observe(float64(stats.ProverTimeMs))
	level.Debug(global.LoggerFrom(ctx)).Log("msg", "proof generated", "prover_time_ms", stats.ProverTimeMs)
	return proofJSON, nil
}

func (ps *ProverService) verifyProof(ctx context.Context, proof *types.Groth16Proof, publicInputsHash types.PoseidonHash) error {
	defer global.Span(ctx, "VerifyProof")()
	start := time.Now()
	defer metrics.ObserveSince(metrics.ProofVerificationLatency, start)

	return util.VerifyGroth16(ps.vk, proof, util.FrFromLEBytesModOrder(publicInputsHash[:]))
}

package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkkeyless/go-keyless-prover/testutil"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

func newTestProver(t *testing.T, engine *testutil.FakeEngine) *ProverService {
	t.Helper()
	vk, err := util.PrepareVerificationKey(engine.Trapdoor.VerificationKey())
	require.NoError(t, err)
	return NewProverService(&testutil.FakeWitnessGenerator{Dir: t.TempDir()}, engine, vk)
}

func signalsFor(t *testing.T, seed uint64) (*types.CircuitInputSignals, types.PoseidonHash) {
	t.Helper()
	var pih fr.Element
	pih.SetUint64(seed).Mul(&pih, ptrFr(util.FrFromUint64(0x9e3779b97f4a7c15)))
	signals := types.NewCircuitInputSignals().AddFr("public_inputs_hash", pih)
	return signals, types.PoseidonHash(util.FrToLEBytes(pih))
}

func TestProverServiceProve(t *testing.T) {
	engine := &testutil.FakeEngine{Trapdoor: testutil.NewGroth16Trapdoor(t)}
	ps := newTestProver(t, engine)

	signals, pih := signalsFor(t, 1)
	proof, err := ps.Prove(context.Background(), signals, pih)
	require.NoError(t, err)
	assert.NoError(t, util.VerifyGroth16(ps.vk, proof, util.FrFromLEBytesModOrder(pih[:])))
}

func TestProverServiceFailures(t *testing.T) {
	td := testutil.NewGroth16Trapdoor(t)

	t.Run("proof for another statement", func(t *testing.T) {
		ps := newTestProver(t, &testutil.FakeEngine{Trapdoor: td, WrongStatement: true})
		signals, pih := signalsFor(t, 2)
		_, err := ps.Prove(context.Background(), signals, pih)
		assert.Equal(t, types.KindInternal, types.KindOf(err))
		assert.ErrorIs(t, err, types.ErrProofVerification)
	})

	t.Run("engine failure", func(t *testing.T) {
		ps := newTestProver(t, &testutil.FakeEngine{Trapdoor: td, FailErr: errors.New("out of memory")})
		signals, pih := signalsFor(t, 3)
		_, err := ps.Prove(context.Background(), signals, pih)
		assert.Equal(t, types.KindInternal, types.KindOf(err))
		assert.ErrorIs(t, err, types.ErrProofGeneration)
	})

	t.Run("witness failure", func(t *testing.T) {
		engine := &testutil.FakeEngine{Trapdoor: td}
		ps := newTestProver(t, engine)
		ps.witnessGen = &testutil.FakeWitnessGenerator{FailErr: errors.New("constraint not satisfied")}
		signals, pih := signalsFor(t, 4)
		_, err := ps.Prove(context.Background(), signals, pih)
		assert.Equal(t, types.KindInternal, types.KindOf(err))
		assert.ErrorIs(t, err, types.ErrWitnessGeneration)
		assert.Empty(t, engine.Intervals())
	})

	t.Run("slot released after failure", func(t *testing.T) {
		engine := &testutil.FakeEngine{Trapdoor: td, FailErr: errors.New("boom")}
		ps := newTestProver(t, engine)
		signals, pih := signalsFor(t, 5)
		_, err := ps.Prove(context.Background(), signals, pih)
		require.Error(t, err)

		engine.FailErr = nil
		_, err = ps.Prove(context.Background(), signals, pih)
		assert.NoError(t, err)
	})
}

func TestProverServiceSerializesProofs(t *testing.T) {
	engine := &testutil.FakeEngine{Trapdoor: testutil.NewGroth16Trapdoor(t), Delay: 20 * time.Millisecond}
	ps := newTestProver(t, engine)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			signals, pih := signalsFor(t, uint64(100+i))
			proof, err := ps.Prove(context.Background(), signals, pih)
			if err == nil {
				err = util.VerifyGroth16(ps.vk, proof, util.FrFromLEBytesModOrder(pih[:]))
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, 1, engine.MaxConcurrent())

	intervals := engine.Intervals()
	require.Len(t, intervals, n)
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start.Before(intervals[j].Start) })
	for i := 1; i < len(intervals); i++ {
		assert.False(t, intervals[i].Start.Before(intervals[i-1].End), "engine runs %d and %d overlap", i-1, i)
	}
}

func TestProverServiceWaitHonoursContext(t *testing.T) {
	engine := &testutil.FakeEngine{Trapdoor: testutil.NewGroth16Trapdoor(t), Delay: 300 * time.Millisecond}
	ps := newTestProver(t, engine)

	busy := make(chan error, 1)
	go func() {
		signals, pih := signalsFor(t, 6)
		_, err := ps.Prove(context.Background(), signals, pih)
		busy <- err
	}()
	// the first proof holds the slot once the engine is running
	require.Eventually(t, func() bool {
		return engine.MaxConcurrent() == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	signals, pih := signalsFor(t, 7)
	_, err := ps.Prove(ctx, signals, pih)
	assert.Equal(t, types.KindUpstreamUnavailable, types.KindOf(err))
	assert.ErrorIs(t, err, types.ErrProverWaitAbandoned)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.NoError(t, <-busy)
}

func TestProverServiceRunsToCompletionAfterCancel(t *testing.T) {
	engine := &testutil.FakeEngine{Trapdoor: testutil.NewGroth16Trapdoor(t), Delay: 100 * time.Millisecond}
	ps := newTestProver(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	signals, pih := signalsFor(t, 8)
	proof, err := ps.Prove(ctx, signals, pih)
	require.NoError(t, err)
	assert.NotNil(t, proof)
}

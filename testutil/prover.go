package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/zkkeyless/go-keyless-prover/types"
)

// FakeWitnessGenerator writes only the public inputs hash signal, which is all FakeEngine needs
type FakeWitnessGenerator struct {
	Dir     string
	FailErr error
}

func (g *FakeWitnessGenerator) GenerateWitness(ctx context.Context, signals *types.CircuitInputSignals) (string, func(), error) {
	if g.FailErr != nil {
		return "", nil, g.FailErr
	}
	v, ok := signals.Get("public_inputs_hash")
	if !ok {
		return "", nil, errors.New("missing public_inputs_hash signal")
	}
	f, err := os.CreateTemp(g.Dir, "witness-*.wtns")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.WriteString(fmt.Sprint(v)); err != nil {
		f.Close()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// Interval is the time span of one engine invocation
type Interval struct {
	Start time.Time
	End   time.Time
}

// FakeEngine forges proofs with a trapdoor and records when it ran
type FakeEngine struct {
	Trapdoor *Groth16Trapdoor
	Delay    time.Duration
	FailErr  error
	// proves a statement other than the one in the witness
	WrongStatement bool

	active        int32
	maxConcurrent int32
	mu            sync.Mutex
	intervals     []Interval
}

func (e *FakeEngine) Prove(ctx context.Context, witnessPath string) ([]byte, types.EngineStats, error) {
	n := atomic.AddInt32(&e.active, 1)
	defer atomic.AddInt32(&e.active, -1)
	for {
		m := atomic.LoadInt32(&e.maxConcurrent)
		if n <= m || atomic.CompareAndSwapInt32(&e.maxConcurrent, m, n) {
			break
		}
	}

	start := time.Now()
	defer func() {
		e.mu.Lock()
		e.intervals = append(e.intervals, Interval{Start: start, End: time.Now()})
		e.mu.Unlock()
	}()

	if e.FailErr != nil {
		return nil, types.EngineStats{}, e.FailErr
	}
	raw, err := os.ReadFile(witnessPath)
	if err != nil {
		return nil, types.EngineStats{}, err
	}
	var pih fr.Element
	if _, err := pih.SetString(strings.TrimSpace(string(raw))); err != nil {
		return nil, types.EngineStats{}, err
	}
	if e.WrongStatement {
		pih.Add(&pih, new(fr.Element).SetOne())
	}
	time.Sleep(e.Delay)
	proof, err := e.Trapdoor.ProveJSON(pih)
	return proof, types.EngineStats{ProverTimeMs: uint64(time.Since(start).Milliseconds())}, err
}

// MaxConcurrent is the highest number of overlapping Prove calls seen
func (e *FakeEngine) MaxConcurrent() int {
	return int(atomic.LoadInt32(&e.maxConcurrent))
}

func (e *FakeEngine) Intervals() []Interval {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Interval(nil), e.intervals...)
}

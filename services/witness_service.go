package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-kit/log/level"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/types"
)

// BinaryWitnessGenerator runs a circom native witness generator: `<bin> <input.json> <witness.wtns>`
type BinaryWitnessGenerator struct {
	binaryPath string
	tmpDir     string
}

func NewBinaryWitnessGenerator(binaryPath string) *BinaryWitnessGenerator {
	return &BinaryWitnessGenerator{binaryPath: binaryPath}
}

func (g *BinaryWitnessGenerator) GenerateWitness(ctx context.Context, signals *types.CircuitInputSignals) (string, func(), error) {
	dir, err := os.MkdirTemp(g.tmpDir, "witness-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if rErr := os.RemoveAll(dir); rErr != nil {
			level.Warn(global.Logger).Log("msg", "failed to remove witness dir", "dir", dir, "err", rErr)
		}
	}

	input, err := json.Marshal(signals)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	inputPath := filepath.Join(dir, "input.json")
	if err := os.WriteFile(inputPath, input, 0600); err != nil {
		cleanup()
		return "", nil, err
	}
	witnessPath := filepath.Join(dir, "witness.wtns")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binaryPath, inputPath, witnessPath)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%s: %v: %s", filepath.Base(g.binaryPath), err, bytes.TrimSpace(stderr.Bytes()))
	}
	return witnessPath, cleanup, nil
}

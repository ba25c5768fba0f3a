package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/zkkeyless/go-keyless-prover/types"
)

// RapidsnarkEngine runs a rapidsnark compatible prover: `<bin> <zkey> <witness> <proof.json> <public.json>`
type RapidsnarkEngine struct {
	binaryPath string
	zkeyPath   string
}

func NewRapidsnarkEngine(binaryPath, zkeyPath string) *RapidsnarkEngine {
	return &RapidsnarkEngine{binaryPath: binaryPath, zkeyPath: zkeyPath}
}

func (e *RapidsnarkEngine) Prove(ctx context.Context, witnessPath string) ([]byte, types.EngineStats, error) {
	dir := filepath.Dir(witnessPath)
	proofPath := filepath.Join(dir, "proof.json")
	publicPath := filepath.Join(dir, "public.json")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binaryPath, e.zkeyPath, witnessPath, proofPath, publicPath)
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, types.EngineStats{}, fmt.Errorf("%s: %v: %s", filepath.Base(e.binaryPath), err, bytes.TrimSpace(stderr.Bytes()))
	}
	stats := types.EngineStats{ProverTimeMs: uint64(time.Since(start).Milliseconds())}

	proof, err := os.ReadFile(proofPath)
	if err != nil {
		return nil, stats, err
	}
	return proof, stats, nil
}

// Package orchestrator drives the engine over a sequence of batches.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/engine"
)

type OrchestratorConfig struct {
	// MaxTokens is the batch budget the batches were cut with. Decoding
	// limits are derived from it.
	MaxTokens int
	// BatchTimeout bounds a single engine call. Zero means no limit
	// beyond the caller's context.
	BatchTimeout time.Duration
	Logger       *slog.Logger
}

type OrchestratorResult struct {
	// Outputs holds one token sequence per batch, in batch order.
	Outputs [][]string
	Scores  []float64
}

type Orchestrator struct {
	engine engine.Engine
	config OrchestratorConfig
	logger *slog.Logger
}

func New(eng engine.Engine, config OrchestratorConfig) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine: eng,
		config: config,
		logger: logger,
	}
}

// Execute translates batches strictly in order, one engine call per
// batch, each forced to start with targetTag. The first failing batch
// aborts the whole run; partial output is discarded.
func (o *Orchestrator) Execute(ctx context.Context, batches [][]string, targetTag string) (*OrchestratorResult, error) {
	result := &OrchestratorResult{
		Outputs: make([][]string, 0, len(batches)),
		Scores:  make([]float64, 0, len(batches)),
	}

	opts := engine.OptionsFor(o.config.MaxTokens)
	prefix := [][]string{{targetTag}}

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: batch %d: %w", internal.ErrEngine, i, err)
		}

		start := time.Now()
		res, err := o.translateOne(ctx, batch, prefix, opts)
		if err != nil {
			o.logger.Error("batch failed", "engine", o.engine.Name(), "batch", i, "tokens", len(batch), "error", err)
			return nil, fmt.Errorf("%w: batch %d: %w", internal.ErrEngine, i, err)
		}

		o.logger.Debug("batch translated",
			"engine", o.engine.Name(),
			"batch", i,
			"of", len(batches),
			"in_tokens", len(batch),
			"out_tokens", len(res.Output),
			"elapsed", time.Since(start))

		result.Outputs = append(result.Outputs, res.Output)
		result.Scores = append(result.Scores, res.Score)
	}

	return result, nil
}

func (o *Orchestrator) translateOne(ctx context.Context, batch []string, prefix [][]string, opts engine.Options) (*engine.Result, error) {
	if o.config.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.BatchTimeout)
		defer cancel()
	}

	results, err := o.engine.TranslateBatch(ctx, [][]string{batch}, prefix, opts)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("expected 1 result, got %d", len(results))
	}
	return &results[0], nil
}

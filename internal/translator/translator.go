// Package translator is the entry point for translating a text with a
// loaded model: tag resolution, tokenization, batching, engine calls and
// assembly of the result.
package translator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/assembler"
	"github.com/valpere/metaltran/internal/batcher"
	"github.com/valpere/metaltran/internal/config"
	"github.com/valpere/metaltran/internal/engine"
	"github.com/valpere/metaltran/internal/engine/ct2"
	"github.com/valpere/metaltran/internal/orchestrator"
	"github.com/valpere/metaltran/internal/prefix"
	"github.com/valpere/metaltran/internal/tokenizer"
)

// Result is the detailed outcome of one translation.
type Result struct {
	Text      string        `json:"text"`
	SourceTag string        `json:"source_tag"`
	TargetTag string        `json:"target_tag"`
	Batches   [][]string    `json:"batches"`
	Outputs   []string      `json:"outputs"`
	Scores    []float64     `json:"scores"`
	Latency   time.Duration `json:"latency"`
}

// Translator owns a tokenizer and an engine for one model. It is safe for
// concurrent use; calls are serialised so the engine never sees more than
// one batch at a time.
type Translator struct {
	mu sync.Mutex

	cfg    config.TranslationConfig
	tok    tokenizer.Tokenizer
	eng    engine.Engine
	logger *slog.Logger

	batchTimeout time.Duration
}

type Option func(*Translator)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) { t.logger = logger }
}

// WithBatchTimeout bounds each engine call.
func WithBatchTimeout(d time.Duration) Option {
	return func(t *Translator) { t.batchTimeout = d }
}

// New assembles a Translator from already constructed parts. The
// Translator takes ownership of eng and closes it on Close.
func New(cfg config.TranslationConfig, tok tokenizer.Tokenizer, eng engine.Engine, opts ...Option) *Translator {
	t := &Translator{
		cfg:    cfg,
		tok:    tok,
		eng:    eng,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open validates cfg, loads the SentencePiece model from the model
// directory and starts the configured engine.
func Open(cfg config.Config, opts ...Option) (*Translator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tc, err := cfg.Translation()
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.NewSentencePiece(tc.TokenizerPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internal.ErrTokenization, err)
	}

	var eng engine.Engine
	switch cfg.Engine {
	case config.EngineHTTP:
		eng = engine.NewHTTPEngine(cfg.Service())
	default:
		ct, err := ct2.New(tc.EnginePath(), cfg.Device)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", internal.ErrEngine, err)
		}
		eng = ct
	}

	return New(tc, tok, eng, opts...), nil
}

func (t *Translator) Config() config.TranslationConfig {
	return t.cfg
}

// Translate returns the translation of text from sourceCode to targetCode.
// Empty or whitespace-only text yields "" without touching the engine.
func (t *Translator) Translate(ctx context.Context, text, sourceCode, targetCode string) (string, error) {
	res, err := t.TranslateDetailed(ctx, text, sourceCode, targetCode)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// TranslateDetailed is Translate, also reporting the batches sent and the
// per-batch output.
func (t *Translator) TranslateDetailed(ctx context.Context, text, sourceCode, targetCode string) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return &Result{}, nil
	}
	if sourceCode == "" || targetCode == "" {
		return nil, fmt.Errorf("%w: source and target language codes are required", internal.ErrInvalidRequest)
	}

	tags, err := prefix.Resolve(t.cfg.Family(), sourceCode, targetCode)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tokens, err := t.tok.Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internal.ErrTokenization, err)
	}

	batches := batcher.Partition(tokens, tags.Source, t.cfg.MaxTokens())

	orch := orchestrator.New(t.eng, orchestrator.OrchestratorConfig{
		MaxTokens:    t.cfg.MaxTokens(),
		BatchTimeout: t.batchTimeout,
		Logger:       t.logger,
	})
	out, err := orch.Execute(ctx, batches, tags.Target)
	if err != nil {
		return nil, err
	}

	asm := assembler.New(t.tok, tags.Target)
	res := &Result{
		SourceTag: tags.Source,
		TargetTag: tags.Target,
		Batches:   batches,
		Outputs:   make([]string, 0, len(out.Outputs)),
		Scores:    out.Scores,
	}
	for _, o := range out.Outputs {
		res.Outputs = append(res.Outputs, asm.Segment(o))
	}
	res.Text = asm.Assemble(out.Outputs)
	res.Latency = time.Since(start)

	t.logger.Debug("translated",
		"source", tags.Source,
		"target", tags.Target,
		"tokens", len(tokens),
		"batches", len(batches),
		"latency", res.Latency)

	return res, nil
}

// Close releases the engine. The Translator must not be used afterwards.
func (t *Translator) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eng.Close()
}

package engine

import (
	"context"
	"time"
)

// DefaultBeamSize is the beam width used for every batch.
const DefaultBeamSize = 5

// Options are the decoding parameters sent with each batch.
type Options struct {
	BeamSize          int `json:"beam_size"`
	MaxInputLength    int `json:"max_input_length"`
	MaxDecodingLength int `json:"max_decoding_length"`
	NumHypotheses     int `json:"num_hypotheses"`
}

// OptionsFor derives decoding options from the batch token budget. The
// input limit leaves room for the end-of-sentence token and the decoding
// limit allows the translation to grow to twice the source length.
func OptionsFor(maxTokens int) Options {
	return Options{
		BeamSize:          DefaultBeamSize,
		MaxInputLength:    maxTokens + 1,
		MaxDecodingLength: maxTokens * 2,
		NumHypotheses:     1,
	}
}

// Result is the best hypothesis for one source example.
type Result struct {
	Output []string `json:"output"`
	Score  float64  `json:"score,omitempty"`
}

type ServiceConfig struct {
	BaseURL string        `mapstructure:"engine_url" json:"engine_url"`
	Timeout time.Duration `mapstructure:"engine_timeout" json:"engine_timeout"`
	Device  string        `mapstructure:"device" json:"device"`
}

// Engine translates batches of source tokens. Implementations are not
// required to be safe for concurrent use.
type Engine interface {
	Name() string
	// TranslateBatch returns one Result per source example, in order.
	// targetPrefix[i] is forced as the start of the i-th output.
	TranslateBatch(ctx context.Context, source [][]string, targetPrefix [][]string, opts Options) ([]Result, error)
	Close() error
}

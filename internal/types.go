package internal

import (
	"errors"
	"time"
)

// Error kinds surfaced by a translate call. Callers match them with
// errors.Is; concrete errors wrap one of these with context.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrInvalidRequest = errors.New("invalid request")
	ErrTokenization   = errors.New("tokenization failed")
	ErrEngine         = errors.New("engine failure")
)

type TranslationRequest struct {
	ID         string    `json:"id"`
	SourceText string    `json:"source_text"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Family     string    `json:"family"`
	ModelPath  string    `json:"model_path"`
	MaxTokens  int       `json:"max_tokens"`
	Timestamp  time.Time `json:"timestamp"`
}

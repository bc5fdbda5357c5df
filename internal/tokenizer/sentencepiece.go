package tokenizer

import (
	"fmt"

	sentencepiece "github.com/eliben/go-sentencepiece"
)

var _ Tokenizer = (*SentencePiece)(nil)

// SentencePiece segments text with a SentencePiece model file. The
// processor is pure Go; loading parses the protobuf model once.
type SentencePiece struct {
	proc *sentencepiece.Processor
}

// NewSentencePiece loads the model at path (usually
// <model dir>/sentencepiece.model).
func NewSentencePiece(path string) (*SentencePiece, error) {
	proc, err := sentencepiece.NewProcessorFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %s: %w", path, err)
	}
	return &SentencePiece{proc: proc}, nil
}

func (s *SentencePiece) Tokenize(text string) ([]string, error) {
	tokens := s.proc.Encode(text)
	pieces := make([]string, 0, len(tokens))
	for _, t := range tokens {
		pieces = append(pieces, t.Text)
	}
	return pieces, nil
}

func (s *SentencePiece) Detokenize(tokens []string) string {
	return JoinPieces(tokens)
}

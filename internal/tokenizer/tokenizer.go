// Package tokenizer turns raw text into subword tokens and back.
package tokenizer

import "strings"

// WordBoundary is the SentencePiece meta symbol standing for a space that
// precedes the piece.
const WordBoundary = "▁"

type Tokenizer interface {
	// Tokenize segments text into pieces. Pieces are opaque strings.
	Tokenize(text string) ([]string, error)

	// Detokenize reverses Tokenize: pieces are joined, boundary markers
	// become spaces and the space implied before the first piece is dropped.
	Detokenize(tokens []string) string
}

// JoinPieces is the SentencePiece detokenization rule shared by all
// SentencePiece-based tokenizers. Language tags and other pieces without a
// boundary marker are kept verbatim, so "__es__ ▁Hola" yields "__es__ Hola".
func JoinPieces(tokens []string) string {
	text := strings.ReplaceAll(strings.Join(tokens, ""), WordBoundary, " ")
	return strings.TrimPrefix(text, " ")
}

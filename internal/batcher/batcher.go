// Package batcher partitions a tokenized source text into batches that fit
// the model's token budget. Every batch starts with the source-language tag
// and splits are made at sentence boundaries whenever possible.
package batcher

import "strings"

// wordBoundary is the SentencePiece meta symbol that marks a preceding space.
const wordBoundary = "▁"

// IsSentenceEnd reports whether token closes a sentence. A leading
// SentencePiece word-boundary marker is ignored, so "▁." matches as well.
func IsSentenceEnd(token string) bool {
	switch strings.TrimPrefix(token, wordBoundary) {
	case ".", "?", "!":
		return true
	}
	return false
}

// Partition splits tokens into batches of at most maxTokens tokens, each
// starting with sourceTag. The algorithm is greedy:
//  1. Empty input yields no batches.
//  2. Input that fits beside the tag becomes a single batch.
//  3. Otherwise sentences (runs ending at ".", "?" or "!") are packed into
//     the current batch while they fit, and a new batch is started when the
//     next sentence does not.
//
// A sentence longer than maxTokens-1 tokens is cut into pieces of
// maxTokens-1 tokens, so with maxTokens >= 2 no batch exceeds the budget.
// With maxTokens < 2 there is no room beside the tag: each batch carries a
// single token and is emitted oversized.
//
// Concatenating the batches without their tags always yields tokens.
func Partition(tokens []string, sourceTag string, maxTokens int) [][]string {
	if len(tokens) == 0 {
		return nil
	}

	if len(tokens) <= maxTokens-1 {
		batch := make([]string, 0, len(tokens)+1)
		batch = append(batch, sourceTag)
		return [][]string{append(batch, tokens...)}
	}

	room := maxTokens - 1
	if room < 1 {
		room = 1
	}

	var (
		batches [][]string
		current []string
		pending []string
	)

	place := func(sentence []string) {
		if current != nil && len(current)+len(sentence) <= maxTokens {
			current = append(current, sentence...)
			return
		}
		if current != nil {
			batches = append(batches, current)
		}
		current = make([]string, 0, maxTokens)
		current = append(current, sourceTag)
		current = append(current, sentence...)
	}

	for _, tok := range tokens {
		pending = append(pending, tok)
		if IsSentenceEnd(tok) || len(pending) >= room {
			place(pending)
			pending = nil
		}
	}

	if len(pending) > 0 {
		place(pending)
	}
	if current != nil {
		batches = append(batches, current)
	}

	return batches
}

// Untag returns the batch tokens without the leading source tag.
func Untag(batch []string) []string {
	if len(batch) == 0 {
		return nil
	}
	return batch[1:]
}

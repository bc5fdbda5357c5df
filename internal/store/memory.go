package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// MemoryKey identifies a translation memory entry. The same text translated
// by a different model family or model is a different entry.
type MemoryKey struct {
	SourceText string
	SourceLang string
	TargetLang string
	Family     string
	Model      string
}

func (k MemoryKey) where() sq.Eq {
	return sq.Eq{
		"source_text": normalizeText(k.SourceText),
		"source_lang": k.SourceLang,
		"target_lang": k.TargetLang,
		"family":      k.Family,
		"model":       k.Model,
	}
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID          string
	SourceText  string
	SourceLang  string
	TargetLang  string
	Family      string
	Model       string
	FinalText   string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// MemoryFilter narrows ListMemory. Zero fields match everything.
type MemoryFilter struct {
	SourceLang     string
	TargetLang     string
	Family         string
	IncludeInvalid bool
	Limit          uint64
}

// CacheStats summarises translation memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
}

func (s *Store) GetCachedTranslation(ctx context.Context, key MemoryKey) (string, bool, error) {
	row, err := s.queryRow(ctx, s.sq.Select("final_text", "invalidated").
		From("translation_memory").
		Where(key.where()))
	if err != nil {
		return "", false, err
	}

	var (
		finalText   string
		invalidated bool
	)
	err = row.Scan(&finalText, &invalidated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if invalidated {
		return "", false, nil
	}

	_, err = s.exec(ctx, s.sq.Update("translation_memory").
		Set("usage_count", sq.Expr("usage_count + 1")).
		Set("last_used", time.Now()).
		Where(key.where()))

	return finalText, true, err
}

// SaveToMemory inserts or refreshes an entry. A refreshed entry is valid
// again and its usage count restarts at one.
func (s *Store) SaveToMemory(ctx context.Context, key MemoryKey, finalText string) error {
	now := time.Now()
	_, err := s.exec(ctx, s.sq.Insert("translation_memory").
		Columns("id", "source_text", "source_lang", "target_lang", "family", "model", "final_text", "usage_count", "invalidated", "last_used", "created_at").
		Values(uuid.NewString(), normalizeText(key.SourceText), key.SourceLang, key.TargetLang, key.Family, key.Model, finalText, 1, false, now, now).
		Suffix("ON CONFLICT(source_text, source_lang, target_lang, family, model) DO UPDATE SET final_text = excluded.final_text, usage_count = 1, invalidated = FALSE, last_used = excluded.last_used"))
	return err
}

func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	_, err := s.exec(ctx, s.sq.Update("translation_memory").
		Set("invalidated", true).
		Where(sq.Eq{"id": id}))
	return err
}

// DeleteMemory permanently removes a translation memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.exec(ctx, s.sq.Delete("translation_memory").Where(sq.Eq{"id": id}))
	return err
}

// ClearMemory removes all translation memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, s.sq.Delete("translation_memory"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns matching entries, most recently used first.
func (s *Store) ListMemory(ctx context.Context, f MemoryFilter) ([]MemoryEntry, error) {
	b := s.sq.Select("id", "source_text", "source_lang", "target_lang", "family", "model", "final_text", "usage_count", "invalidated", "last_used").
		From("translation_memory").
		OrderBy("last_used DESC")

	where := sq.Eq{}
	if f.SourceLang != "" {
		where["source_lang"] = f.SourceLang
	}
	if f.TargetLang != "" {
		where["target_lang"] = f.TargetLang
	}
	if f.Family != "" {
		where["family"] = f.Family
	}
	if len(where) > 0 {
		b = b.Where(where)
	}
	if !f.IncludeInvalid {
		b = b.Where("NOT invalidated")
	}
	if f.Limit > 0 {
		b = b.Limit(f.Limit)
	}

	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.SourceLang, &e.TargetLang, &e.Family, &e.Model, &e.FinalText, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the translation memory.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	row, err := s.queryRow(ctx, s.sq.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(usage_count), 0)",
	).From("translation_memory"))
	if err != nil {
		return nil, err
	}

	stats := &CacheStats{}
	if err := row.Scan(&stats.TotalEntries, &stats.ActiveEntries, &stats.InvalidEntries, &stats.TotalUsage); err != nil {
		return nil, err
	}
	return stats, nil
}

// maxFuzzyRunes bounds the texts considered for fuzzy matching; edit
// distance is quadratic in length.
const maxFuzzyRunes = 1000

// FuzzyGetCachedTranslation returns the valid entry for the same languages,
// family and model whose source text is most similar to key.SourceText,
// provided the similarity is at least threshold (0..1). A threshold <= 0
// disables the lookup.
func (s *Store) FuzzyGetCachedTranslation(ctx context.Context, key MemoryKey, threshold float64) (string, bool, error) {
	if threshold <= 0 {
		return "", false, nil
	}

	normalized := normalizeText(key.SourceText)
	if len([]rune(normalized)) > maxFuzzyRunes {
		return "", false, nil
	}

	rows, err := s.query(ctx, s.sq.Select("source_text", "final_text").
		From("translation_memory").
		Where(sq.Eq{
			"source_lang": key.SourceLang,
			"target_lang": key.TargetLang,
			"family":      key.Family,
			"model":       key.Model,
		}).
		Where("NOT invalidated"))
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	var bestFinal string
	bestScore := 0.0

	for rows.Next() {
		var srcText, finalText string
		if err := rows.Scan(&srcText, &finalText); err != nil {
			return "", false, err
		}
		if !lengthAllows(normalized, srcText, threshold) {
			continue
		}
		score := stringSimilarity(normalized, srcText)
		if score >= threshold && score > bestScore {
			bestScore = score
			bestFinal = finalText
		}
	}
	if err := rows.Err(); err != nil {
		return "", false, err
	}

	return bestFinal, bestFinal != "", nil
}

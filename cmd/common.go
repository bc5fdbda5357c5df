/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/chunker"
	"github.com/valpere/metaltran/internal/detector"
	"github.com/valpere/metaltran/internal/langcode"
	"github.com/valpere/metaltran/internal/placeholder"
	"github.com/valpere/metaltran/internal/postprocess"
	"github.com/valpere/metaltran/internal/prefix"
	"github.com/valpere/metaltran/internal/store"
	"github.com/valpere/metaltran/internal/translator"
)

const defaultDBPath = "./data/metaltran.db"

// openTranslator validates the loaded configuration and opens the model.
func openTranslator() (*translator.Translator, error) {
	tr, err := translator.Open(appConfig, translator.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	logger.Debug("model opened",
		"model", appConfig.ModelPath,
		"family", appConfig.Family,
		"engine", appConfig.Engine,
		"max_tokens", appConfig.MaxTokens)
	return tr, nil
}

// openStore returns nil when caching is disabled.
func openStore(dbPath string, disabled bool) (*store.Store, error) {
	if disabled || dbPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// readInput reads a file, or stdin for "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

// writeOutput writes a file, creating its directory, or stdout for "-".
func writeOutput(path, text string) error {
	if path == "-" {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

type languagePair struct {
	source string
	target string
}

// resolveLanguages resolves "auto" by detecting the language of sample and
// optionally maps both codes into the model family's alphabet.
func resolveLanguages(sample, source, target string, normalize bool) (languagePair, error) {
	if source == "auto" {
		det := detector.New()
		detected, ok := det.DetectISO(sample)
		if !ok {
			return languagePair{}, fmt.Errorf("%w: could not detect source language, pass -s", internal.ErrInvalidRequest)
		}
		fmt.Fprintf(os.Stderr, "Detected source language: %s\n", detected)
		source = detected
		// detected codes are ISO 639-1 and always need mapping
		normalize = true
	}

	if !normalize {
		return languagePair{source: source, target: target}, nil
	}

	family, err := prefix.ParseFamily(appConfig.Family)
	if err != nil {
		return languagePair{}, err
	}
	src, err := langcode.Normalize(family, source)
	if err != nil {
		return languagePair{}, err
	}
	tgt, err := langcode.Normalize(family, target)
	if err != nil {
		return languagePair{}, err
	}
	return languagePair{source: src, target: tgt}, nil
}

// cachedTranslator puts the translation memory in front of a Translator
// and logs every model call to the store. db may be nil.
type cachedTranslator struct {
	tr    *translator.Translator
	db    *store.Store
	fuzzy float64
	// raw disables output cleanup.
	raw bool
}

func (c *cachedTranslator) memoryKey(text string, langs languagePair) store.MemoryKey {
	cfg := c.tr.Config()
	return store.MemoryKey{
		SourceText: text,
		SourceLang: langs.source,
		TargetLang: langs.target,
		Family:     cfg.Family().String(),
		Model:      cfg.ModelPath(),
	}
}

// translate returns the translation of text and whether it came from the
// translation memory. The memory holds raw model output; cleanup is applied
// on the way out unless c.raw is set.
func (c *cachedTranslator) translate(ctx context.Context, text string, langs languagePair) (string, bool, error) {
	out, fromCache, err := c.lookupOrTranslate(ctx, text, langs)
	if err != nil {
		return "", false, err
	}
	if !c.raw {
		out = postprocess.Clean(out, postprocess.DefaultMaxRepeat)
	}
	return out, fromCache, nil
}

func (c *cachedTranslator) lookupOrTranslate(ctx context.Context, text string, langs languagePair) (string, bool, error) {
	if strings.TrimSpace(text) == "" {
		return "", false, nil
	}
	if c.db != nil {
		key := c.memoryKey(text, langs)
		if cached, found, err := c.db.GetCachedTranslation(ctx, key); err == nil && found {
			return cached, true, nil
		} else if err != nil {
			logger.Warn("cache lookup failed", "error", err)
		}
		if cached, found, err := c.db.FuzzyGetCachedTranslation(ctx, key, c.fuzzy); err == nil && found {
			return cached, true, nil
		}
	}

	start := time.Now()
	res, err := c.tr.TranslateDetailed(ctx, text, langs.source, langs.target)
	if c.db != nil {
		c.record(ctx, text, langs, res, time.Since(start), err)
	}
	if err != nil {
		return "", false, err
	}
	return res.Text, false, nil
}

func (c *cachedTranslator) record(ctx context.Context, text string, langs languagePair, res *translator.Result, elapsed time.Duration, callErr error) {
	cfg := c.tr.Config()
	reqID := uuid.New().String()
	req := internal.TranslationRequest{
		ID:         reqID,
		SourceText: text,
		SourceLang: langs.source,
		TargetLang: langs.target,
		Family:     cfg.Family().String(),
		ModelPath:  cfg.ModelPath(),
		MaxTokens:  cfg.MaxTokens(),
		Timestamp:  time.Now(),
	}

	var errs []error
	errs = append(errs, c.db.SaveRequest(ctx, req))
	if callErr != nil {
		errs = append(errs, c.db.SaveResult(ctx, reqID, "", 0, elapsed, callErr.Error()))
	} else {
		errs = append(errs,
			c.db.SaveBatchOutputs(ctx, reqID, res.Outputs, res.Scores),
			c.db.SaveResult(ctx, reqID, res.Text, len(res.Batches), res.Latency, ""),
			c.db.SaveToMemory(ctx, c.memoryKey(text, langs), res.Text))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("failed to record translation", "request", reqID, "error", err)
	}
}

type textOptions struct {
	perLine bool
	protect bool
}

// translateText translates every paragraph of text on its own and keeps the
// whitespace between them. fromCache reports whether no paragraph needed
// the model.
func (c *cachedTranslator) translateText(ctx context.Context, text string, langs languagePair, opts textOptions) (string, bool, error) {
	pieces := chunker.Split(text, opts.perLine)
	fromCache, paragraphs := true, 0

	for i, p := range pieces {
		if p.Separator {
			continue
		}

		src := p.Text
		var originals []string
		if opts.protect {
			src, originals = placeholder.Protect(src)
		}

		out, cached, err := c.translate(ctx, src, langs)
		if err != nil {
			return "", false, fmt.Errorf("paragraph %d: %w", i, err)
		}
		fromCache = fromCache && cached
		paragraphs++

		if len(originals) > 0 {
			if missing := placeholder.Missing(out, originals); len(missing) > 0 {
				logger.Warn("model dropped protected spans", "paragraph", i, "missing", len(missing))
			}
			out = placeholder.Restore(out, originals)
		}
		pieces[i].Text = out
	}

	return chunker.Join(pieces), fromCache && paragraphs > 0, nil
}

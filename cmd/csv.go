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
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/config"
	"github.com/valpere/metaltran/internal/store"
)

var (
	csvInputFile  string
	csvOutputFile string
	csvSourceLang string
	csvTargetLang string
	csvColumns    []int
	csvSkipHeader bool
	csvNormalize  bool
	csvProtect    bool

	csvDBPath  string
	csvNoCache bool
	csvResume  string
	csvFuzzy   float64
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Translate columns of a CSV file",
	Long: `Translate one or more columns in a CSV file, one cell at a time.

By default all columns are translated. Use -l to select specific columns
(0-indexed). The flag may be repeated to select multiple columns.

A checkpoint ID is printed at the start of each run. If the job is interrupted,
use --resume with that ID to skip already-translated cells.

Example:
  metaltran translate csv -i data.csv -o out.csv -s en -t uk -l 1 -l 3
  metaltran translate csv -i data.csv -o out.csv -t uk --resume cp_3f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if csvInputFile == csvOutputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		records, err := readCSV(csvInputFile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sample := firstCell(records, csvSkipHeader)
		langs, err := resolveLanguages(sample, csvSourceLang, csvTargetLang, csvNormalize)
		if err != nil {
			return err
		}

		db, err := openStore(csvDBPath, csvNoCache)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		tr, err := openTranslator()
		if err != nil {
			return err
		}
		defer tr.Close()

		checkpointID, completed, err := loadCheckpoint(ctx, db, tr.Config(), langs)
		if err != nil {
			return err
		}

		ct := &cachedTranslator{tr: tr, db: db, fuzzy: csvFuzzy}
		opts := textOptions{protect: csvProtect}

		job := cellJob{skipHeader: csvSkipHeader, done: completed}
		if len(csvColumns) > 0 {
			job.columns = make(map[int]bool, len(csvColumns))
			for _, c := range csvColumns {
				job.columns[c] = true
			}
		}

		translate := func(ctx context.Context, cell string) (string, error) {
			out, _, err := ct.translateText(ctx, cell, langs, opts)
			return out, err
		}
		save := func(row, col int, text string) {
			if checkpointID == "" {
				return
			}
			if err := db.SaveCSVCell(ctx, checkpointID, row, col, text); err != nil {
				logger.Warn("failed to save checkpoint cell", "row", row, "col", col, "error", err)
			}
		}

		out, failed, err := translateCells(ctx, records, job, translate, save)
		if err != nil {
			return fmt.Errorf("%w%s", err, resumeHint(checkpointID))
		}

		if err := writeCSV(csvOutputFile, out); err != nil {
			return err
		}

		// The checkpoint stays open so --resume retries the failed cells.
		if failed > 0 {
			return fmt.Errorf("%w: %d cells failed and were left untranslated in %s%s",
				internal.ErrEngine, failed, csvOutputFile, resumeHint(checkpointID))
		}

		if checkpointID != "" {
			_ = db.CompleteCSVCheckpoint(ctx, checkpointID)
		}

		fmt.Fprintf(os.Stderr, "CSV translated successfully: %s\n", csvOutputFile)
		return nil
	},
}

// cellJob selects the cells of a CSV to translate.
type cellJob struct {
	// columns to translate; nil means every column
	columns    map[int]bool
	skipHeader bool
	// translations of a resumed checkpoint, keyed by store.CellKey
	done map[string]string
}

// translateCells returns a copy of records with the selected non-empty
// cells translated, and the number of cells that failed. A failed cell keeps
// its original text. save is called for every newly translated cell. The
// error is non-nil only when ctx is cancelled.
func translateCells(ctx context.Context, records [][]string, job cellJob,
	translate func(context.Context, string) (string, error), save func(row, col int, text string)) ([][]string, int, error) {
	out := make([][]string, len(records))
	failed := 0

	for rowIdx, row := range records {
		out[rowIdx] = make([]string, len(row))
		copy(out[rowIdx], row)

		if job.skipHeader && rowIdx == 0 {
			continue
		}

		for colIdx, cell := range row {
			if (job.columns != nil && !job.columns[colIdx]) || cell == "" {
				continue
			}

			if translated, done := job.done[store.CellKey(rowIdx, colIdx)]; done {
				out[rowIdx][colIdx] = translated
				continue
			}

			translated, err := translate(ctx, cell)
			if err != nil {
				if ctx.Err() != nil {
					return nil, failed, fmt.Errorf("interrupted at row %d col %d: %w", rowIdx, colIdx, ctx.Err())
				}
				fmt.Fprintf(os.Stderr, "Row %d col %d: %v, keeping original\n", rowIdx, colIdx, err)
				failed++
				continue
			}
			out[rowIdx][colIdx] = translated
			save(rowIdx, colIdx, translated)
		}
	}

	return out, failed, nil
}

func resumeHint(checkpointID string) string {
	if checkpointID == "" {
		return ""
	}
	return ", resume with --resume " + checkpointID
}

// loadCheckpoint resumes the checkpoint named by --resume or starts a new
// one. Without a store there is no checkpoint.
func loadCheckpoint(ctx context.Context, db *store.Store, cfg config.TranslationConfig, langs languagePair) (string, map[string]string, error) {
	if csvResume != "" {
		if db == nil {
			return "", nil, fmt.Errorf("--resume requires --db to be set and --no-cache to be disabled")
		}
		cp, err := db.GetCSVCheckpoint(ctx, csvResume)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp.SourceLang != langs.source || cp.TargetLang != langs.target {
			return "", nil, fmt.Errorf("checkpoint %s is for %s to %s, not %s to %s", cp.ID, cp.SourceLang, cp.TargetLang, langs.source, langs.target)
		}
		if cp.Family != cfg.Family().String() || cp.Model != cfg.ModelPath() {
			return "", nil, fmt.Errorf("checkpoint %s was made with a different model (%s %s)", cp.ID, cp.Family, cp.Model)
		}
		cells, err := db.GetCSVCells(ctx, cp.ID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load checkpoint cells: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Resuming checkpoint %s (%d cells already done)\n", cp.ID, len(cells))
		return cp.ID, cells, nil
	}

	if db == nil {
		return "", nil, nil
	}
	id, err := db.CreateCSVCheckpoint(ctx, store.CSVCheckpoint{
		InputFile:  csvInputFile,
		OutputFile: csvOutputFile,
		SourceLang: langs.source,
		TargetLang: langs.target,
		Family:     cfg.Family().String(),
		Model:      cfg.ModelPath(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create checkpoint: %v\n", err)
		return "", nil, nil
	}
	fmt.Fprintf(os.Stderr, "Checkpoint ID: %s (use --resume %s to resume if interrupted)\n", id, id)
	return id, nil, nil
}

// firstCell returns the first non-empty data cell, used for language
// detection.
func firstCell(records [][]string, skipHeader bool) string {
	for i, row := range records {
		if skipHeader && i == 0 {
			continue
		}
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return cell
			}
		}
	}
	return ""
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}
	return records, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output CSV: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write output CSV: %w", err)
	}
	return nil
}

func init() {
	translateCmd.AddCommand(csvCmd)

	csvCmd.Flags().StringVarP(&csvInputFile, "input", "i", "", "Input CSV file (required)")
	csvCmd.Flags().StringVarP(&csvOutputFile, "output", "o", "", "Output CSV file (required)")
	csvCmd.Flags().StringVarP(&csvSourceLang, "source", "s", "auto", "Source language code, or auto")
	csvCmd.Flags().StringVarP(&csvTargetLang, "target", "t", "", "Target language code (required)")
	csvCmd.Flags().IntSliceVarP(&csvColumns, "column", "l", nil, "Column index to translate (0-indexed, repeatable; default: all columns)")
	csvCmd.Flags().BoolVar(&csvSkipHeader, "header", false, "Keep the first row untranslated")
	csvCmd.Flags().BoolVar(&csvNormalize, "normalize-codes", false, "Map ISO language codes to the model family's codes")
	csvCmd.Flags().BoolVar(&csvProtect, "protect", false, "Keep code, URLs, e-mail addresses and HTML tags untranslated")

	csvCmd.Flags().StringVar(&csvDBPath, "db", defaultDBPath, "Database path for translation memory and checkpoints")
	csvCmd.Flags().BoolVar(&csvNoCache, "no-cache", false, "Disable translation memory cache and checkpoints")
	csvCmd.Flags().StringVar(&csvResume, "resume", "", "Resume from checkpoint ID (printed at start of original run)")
	csvCmd.Flags().Float64Var(&csvFuzzy, "fuzzy", 0, "Reuse cached translations at least this similar (0-1, 0 disables)")

	csvCmd.MarkFlagRequired("input")
	csvCmd.MarkFlagRequired("output")
	csvCmd.MarkFlagRequired("target")
}

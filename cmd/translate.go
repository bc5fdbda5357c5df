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
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/valpere/metaltran/internal/detector"
	"github.com/valpere/metaltran/internal/markdown"
	"github.com/valpere/metaltran/internal/validator"
)

var (
	inputFile  string
	outputFile string
	sourceLang string
	targetLang string

	isMarkdown     bool
	validateOutput bool
	normalizeCodes bool
	perLine        bool
	protectSpans   bool
	rawOutput      bool

	dbPath         string
	noCache        bool
	fuzzyThreshold float64
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a text file",
	Long: `Translate a text file with the configured model.

Language codes are passed to the model as they are given, so they must be
in the model family's alphabet (M2M: en, BART: en_XX, NLLB: eng_Latn).
--normalize-codes converts ordinary ISO codes such as "en" or "pt-BR".
With -s auto the source language is detected and normalized.

Paragraphs (text separated by blank lines) are translated one at a time and
the blank lines between them are kept.

Results are kept in a translation memory keyed by text, languages, model
family and model. Use --no-cache to bypass it.

Example:
  metaltran translate -m ./models/m2m100_418M --family m2m -i in.txt -o out.txt -s en -t es
  echo "Hello world." | metaltran translate --family nllb -t uk --normalize-codes -s auto`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile != "-" && inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		text, err := readInput(inputFile)
		if err != nil {
			return err
		}
		if isMarkdown {
			text = markdown.ToPlainText([]byte(text))
		}

		langs, err := resolveLanguages(text, sourceLang, targetLang, normalizeCodes)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		db, err := openStore(dbPath, noCache)
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

		ct := &cachedTranslator{tr: tr, db: db, fuzzy: fuzzyThreshold, raw: rawOutput}
		translated, fromCache, err := ct.translateText(ctx, text, langs, textOptions{
			perLine: perLine,
			protect: protectSpans,
		})
		if err != nil {
			return err
		}
		if fromCache {
			fmt.Fprintf(os.Stderr, "Using cached translation\n")
		}

		if validateOutput {
			v := validator.New(detector.New())
			if err := v.Check(translated, langs.target); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}

		if err := writeOutput(outputFile, translated); err != nil {
			return err
		}
		if outputFile != "-" {
			fmt.Fprintf(os.Stderr, "Successfully translated %s to %s\n", langs.source, langs.target)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "-", "Input file to translate (- for stdin)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output file (- for stdout)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code, or auto")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")

	translateCmd.Flags().BoolVar(&isMarkdown, "markdown", false, "Treat input as markdown and translate its plain text")
	translateCmd.Flags().BoolVar(&validateOutput, "validate", false, "Warn when the output does not look like the target language")
	translateCmd.Flags().BoolVar(&normalizeCodes, "normalize-codes", false, "Map ISO language codes to the model family's codes")
	translateCmd.Flags().BoolVar(&perLine, "per-line", false, "Translate every line separately instead of every paragraph")
	translateCmd.Flags().BoolVar(&protectSpans, "protect", false, "Keep code, URLs, e-mail addresses and HTML tags untranslated")
	translateCmd.Flags().BoolVar(&rawOutput, "raw", false, "Skip cleanup of special tokens and repetition loops")

	translateCmd.Flags().StringVar(&dbPath, "db", defaultDBPath, "Database path for translation memory")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable translation memory cache")
	translateCmd.Flags().Float64Var(&fuzzyThreshold, "fuzzy", 0, "Reuse cached translations at least this similar (0-1, 0 disables)")

	translateCmd.MarkFlagRequired("target")
}

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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/batcher"
	"github.com/valpere/metaltran/internal/prefix"
	"github.com/valpere/metaltran/internal/tokenizer"
)

var (
	batchesInputFile  string
	batchesSourceLang string
	batchesTargetLang string
	batchesNormalize  bool
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Show how input would be split into engine batches",
	Long: `Tokenize the input and print the batches that would be sent to the
translation engine, without loading the engine.

Example:
  metaltran batches -m ./models/m2m100_418m --family m2m -s en -t uk -i input.txt
  echo "Hello world. How are you?" | metaltran batches -m ./models/nllb --family nllb -s en -t uk --normalize-codes --max-tokens 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(batchesInputFile)
		if err != nil {
			return err
		}

		cfg, err := appConfig.Translation()
		if err != nil {
			return err
		}

		langs, err := resolveLanguages(text, batchesSourceLang, batchesTargetLang, batchesNormalize)
		if err != nil {
			return err
		}
		tags, err := prefix.Resolve(cfg.Family(), langs.source, langs.target)
		if err != nil {
			return err
		}

		tok, err := tokenizer.NewSentencePiece(cfg.TokenizerPath())
		if err != nil {
			return fmt.Errorf("%w: %w", internal.ErrTokenization, err)
		}
		tokens, err := tok.Tokenize(text)
		if err != nil {
			return fmt.Errorf("%w: %w", internal.ErrTokenization, err)
		}

		batches := batcher.Partition(tokens, tags.Source, cfg.MaxTokens())

		fmt.Fprintf(os.Stderr, "%d tokens, %d batches, max %d tokens per batch, target prefix %s\n",
			len(tokens), len(batches), cfg.MaxTokens(), tags.Target)
		for i, b := range batches {
			fmt.Printf("batch %d (%d tokens): %s\n", i, len(b), strings.Join(b, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchesCmd)

	batchesCmd.Flags().StringVarP(&batchesInputFile, "input", "i", "-", "Input file (- for stdin)")
	batchesCmd.Flags().StringVarP(&batchesSourceLang, "source", "s", "auto", "Source language code, or auto")
	batchesCmd.Flags().StringVarP(&batchesTargetLang, "target", "t", "", "Target language code (required)")
	batchesCmd.Flags().BoolVar(&batchesNormalize, "normalize-codes", false, "Map ISO language codes to the model family's codes")

	batchesCmd.MarkFlagRequired("target")
}

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
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/metaltran/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string

	// v and appConfig are populated before any subcommand runs.
	v         *viper.Viper
	appConfig config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "metaltran",
	Short: "Local neural machine translation",
	Long: `A CLI application that translates text with a local multilingual
sequence-to-sequence model (M2M-100, mBART or NLLB) in CTranslate2 format.

The text is tokenized with the model's SentencePiece model, split into
sentence-aligned batches that fit --max-tokens, translated batch by batch
and joined back together.

Settings come from flags, METALTRAN_* environment variables and an optional
config file ($HOME/.metaltran.yaml or ./metaltran.yaml).

Use "metaltran translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		v, err = config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		bindFlags(v, cmd.Root().PersistentFlags())

		appConfig, err = config.Load(v)
		if err != nil {
			return err
		}

		logger = newLogger(appConfig.LogLevel)
		slog.SetDefault(logger)
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("config loaded", "file", used)
		}
		return nil
	},
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"model":          "model_path",
	"family":         "family",
	"max-tokens":     "max_tokens",
	"engine":         "engine",
	"engine-url":     "engine_url",
	"engine-timeout": "engine_timeout",
	"device":         "device",
	"log-level":      "log_level",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.metaltran.yaml or ./metaltran.yaml)")
	pf.StringP("model", "m", "", "Model directory containing sentencepiece.model and model/")
	pf.String("family", "", "Model family: m2m, bart or nllb")
	pf.Int("max-tokens", config.DefaultMaxTokens, "Maximum tokens per batch, source tag included")
	pf.String("engine", config.DefaultEngine, "Engine: ct2 (in process) or http (sidecar)")
	pf.String("engine-url", "", "Base URL of the HTTP engine")
	pf.Duration("engine-timeout", 0, "Per-request timeout of the HTTP engine (default 2m)")
	pf.String("device", config.DefaultDevice, "Device for the ct2 engine: cpu, cuda or auto")
	pf.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
}

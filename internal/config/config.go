// Package config holds the translation settings and loads them from a
// config file, METALTRAN_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/engine"
	"github.com/valpere/metaltran/internal/prefix"
)

const (
	DefaultMaxTokens = 256
	DefaultEngine    = EngineCT2
	DefaultDevice    = "cpu"
	DefaultLogLevel  = "info"

	EngineCT2  = "ct2"
	EngineHTTP = "http"

	EnvPrefix = "METALTRAN"

	tokenizerFile = "sentencepiece.model"
	modelDir      = "model"
)

// TranslationConfig is the validated, immutable description of a model.
// Only New produces one.
type TranslationConfig struct {
	modelPath string
	family    prefix.Family
	maxTokens int
}

// New validates its arguments and returns ErrInvalidConfig on an empty
// model path, an unknown family or a non-positive token budget.
func New(modelPath string, family prefix.Family, maxTokens int) (TranslationConfig, error) {
	if strings.TrimSpace(modelPath) == "" {
		return TranslationConfig{}, fmt.Errorf("%w: model path is empty", internal.ErrInvalidConfig)
	}
	if !family.Valid() {
		return TranslationConfig{}, fmt.Errorf("%w: unknown model family %d", internal.ErrInvalidConfig, int(family))
	}
	if maxTokens <= 0 {
		return TranslationConfig{}, fmt.Errorf("%w: max tokens must be positive, got %d", internal.ErrInvalidConfig, maxTokens)
	}
	return TranslationConfig{modelPath: modelPath, family: family, maxTokens: maxTokens}, nil
}

func (c TranslationConfig) ModelPath() string    { return c.modelPath }
func (c TranslationConfig) Family() prefix.Family { return c.family }
func (c TranslationConfig) MaxTokens() int        { return c.maxTokens }

// TokenizerPath is the SentencePiece model inside the model directory.
func (c TranslationConfig) TokenizerPath() string {
	return filepath.Join(c.modelPath, tokenizerFile)
}

// EnginePath is the CTranslate2 model directory.
func (c TranslationConfig) EnginePath() string {
	return filepath.Join(c.modelPath, modelDir)
}

// Config is everything a process needs to open a translator.
type Config struct {
	ModelPath     string        `mapstructure:"model_path"`
	Family        string        `mapstructure:"family"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Engine        string        `mapstructure:"engine"`
	EngineURL     string        `mapstructure:"engine_url"`
	EngineTimeout time.Duration `mapstructure:"engine_timeout"`
	Device        string        `mapstructure:"device"`
	LogLevel      string        `mapstructure:"log_level"`
}

// Service returns the engine connection settings.
func (c Config) Service() engine.ServiceConfig {
	return engine.ServiceConfig{BaseURL: c.EngineURL, Timeout: c.EngineTimeout, Device: c.Device}
}

// Translation validates the model settings.
func (c Config) Translation() (TranslationConfig, error) {
	family, err := prefix.ParseFamily(c.Family)
	if err != nil {
		return TranslationConfig{}, err
	}
	return New(c.ModelPath, family, c.MaxTokens)
}

// Validate checks every field, not just the model settings.
func (c Config) Validate() error {
	if _, err := c.Translation(); err != nil {
		return err
	}
	switch c.Engine {
	case EngineCT2, EngineHTTP:
	default:
		return fmt.Errorf("%w: unknown engine %q (want %s or %s)", internal.ErrInvalidConfig, c.Engine, EngineCT2, EngineHTTP)
	}
	if c.EngineTimeout < 0 {
		return fmt.Errorf("%w: negative engine timeout", internal.ErrInvalidConfig)
	}
	return nil
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// registered so that Unmarshal picks them up from the environment
	v.SetDefault("model_path", "")
	v.SetDefault("family", "")
	v.SetDefault("max_tokens", DefaultMaxTokens)
	v.SetDefault("engine", DefaultEngine)
	v.SetDefault("engine_url", engine.DefaultHTTPURL)
	v.SetDefault("engine_timeout", engine.DefaultHTTPTimeout)
	v.SetDefault("device", DefaultDevice)
	v.SetDefault("log_level", DefaultLogLevel)
}

// NewViper returns a viper instance with defaults and environment
// variables wired. If cfgFile is empty it looks for .metaltran.yaml in the
// home directory and metaltran.yaml in the working directory; a missing
// file is not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	for _, path := range defaultConfigFiles() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		break
	}
	return v, nil
}

// defaultConfigFiles lists the files tried, in order, when no config file
// is given.
func defaultConfigFiles() []string {
	var files []string
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".metaltran.yaml"))
	}
	return append(files, "metaltran.yaml")
}

// Load decodes v into a Config. The result is not validated.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

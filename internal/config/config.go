// Package config loads the pipeline configuration from a YAML file, with
// NOMTRAN_-prefixed environment variables overriding file values and sane
// defaults underneath both.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Endpoint describes the local LLM endpoint collaborator.
type Endpoint struct {
	URL            string `mapstructure:"url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-request timeout as a duration.
func (e Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Fonts points at the TTF files used for PDF rendering.
type Fonts struct {
	Regular string `mapstructure:"regular"`
	Bold    string `mapstructure:"bold"`
}

// Config is the full pipeline configuration.
type Config struct {
	// InputDir holds the source PDFs, one file per book.
	InputDir string `mapstructure:"input_dir"`
	// CacheDir holds extraction/translation checkpoints and image payloads.
	CacheDir string `mapstructure:"cache_dir"`
	// PostDir holds refined checkpoints.
	PostDir string `mapstructure:"post_dir"`
	// OutDir holds the final rendered books.
	OutDir string `mapstructure:"out_dir"`

	Endpoint Endpoint `mapstructure:"endpoint"`
	Fonts    Fonts    `mapstructure:"fonts"`

	// BatchSize is the number of sentences per translation request.
	BatchSize int `mapstructure:"batch_size"`
	// Workers bounds parallel batch requests; 1 keeps them sequential.
	Workers int `mapstructure:"workers"`
	// ChunkBlocks is the number of blocks per refinement request.
	ChunkBlocks int `mapstructure:"chunk_blocks"`

	// MemoryDB is the translation-memory SQLite path; empty disables it.
	MemoryDB string `mapstructure:"memory_db"`
	// VerifyLanguage re-queues translations that are not in Mongolian.
	VerifyLanguage bool `mapstructure:"verify_language"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from cfgFile (or ./nomtran.yaml when empty).
// A missing config file is fine; defaults and environment cover everything.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("input_dir", "books")
	v.SetDefault("cache_dir", "translation_cache")
	v.SetDefault("post_dir", "post_processing")
	v.SetDefault("out_dir", "final_books")
	v.SetDefault("endpoint.url", "http://localhost:11434")
	v.SetDefault("endpoint.model", "deepseek-v3.2:cloud")
	v.SetDefault("endpoint.timeout_seconds", 300)
	v.SetDefault("batch_size", 30)
	v.SetDefault("workers", 1)
	v.SetDefault("chunk_blocks", 15)
	v.SetDefault("memory_db", "")
	v.SetDefault("verify_language", false)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("NOMTRAN")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("nomtran")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.nomtran")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

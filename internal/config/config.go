// Package config loads and validates the YAML run configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a pipeline run.
type Config struct {
	Search SearchConfig
	HH     HHConfig
	Rates  RatesConfig
	Store  StoreConfig
	Enrich EnrichConfig
}

// SearchConfig describes the vacancy query.
type SearchConfig struct {
	Text           string
	Area           int
	Specialization int
	PerPage        int
	MaxPages       int
}

// HHConfig controls the listing API client.
type HHConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration // per-request timeout
	PageDelay time.Duration // mandatory delay between page requests
}

// RatesConfig controls the exchange-rate lookup.
type RatesConfig struct {
	BaseURL        string
	Timeout        time.Duration
	TargetCurrency string
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string
}

// EnrichConfig controls keyphrase extraction.
type EnrichConfig struct {
	TopN       int
	NgramMax   int
	Workers    int // bounded parallelism for normalize/enrich stages
	Embeddings EmbeddingsConfig
}

// EmbeddingsConfig selects the embedding backend. When disabled, a
// deterministic in-process embedder is used instead of the HTTP API.
type EmbeddingsConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string // expanded from env var by Load
	Model   string
	Timeout time.Duration
}

const (
	defaultHHBaseURL          = "https://api.hh.ru/vacancies"
	defaultRatesBaseURL       = "https://www.cbr.ru/scripts/XML_daily.asp"
	defaultUserAgent          = "vacpipe/1.0"
	defaultEmbeddingsBaseURL  = "https://api.openai.com/v1"
	defaultTargetCurrency     = "RUR"
	defaultPerPage            = 100
	defaultMaxPages           = 20
	defaultTopN               = 20
	defaultNgramMax           = 3
	defaultWorkers            = 1
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Search struct {
		Text           string `yaml:"text"`
		Area           int    `yaml:"area"`
		Specialization int    `yaml:"specialization"`
		PerPage        int    `yaml:"per_page"`
		MaxPages       int    `yaml:"max_pages"`
	} `yaml:"search"`
	HH struct {
		BaseURL   string `yaml:"base_url"`
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
		PageDelay string `yaml:"page_delay"`
	} `yaml:"hh"`
	Rates struct {
		BaseURL        string `yaml:"base_url"`
		Timeout        string `yaml:"timeout"`
		TargetCurrency string `yaml:"target_currency"`
	} `yaml:"rates"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Enrich struct {
		TopN       int `yaml:"top_n"`
		NgramMax   int `yaml:"ngram_max"`
		Workers    int `yaml:"workers"`
		Embeddings struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
			Model   string `yaml:"model"`
			Timeout string `yaml:"timeout"`
		} `yaml:"embeddings"`
	} `yaml:"enrich"`
}

// Load reads and parses the YAML config file at path, applies defaults,
// validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables (api keys, db paths).
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Search: SearchConfig{
			Text:           raw.Search.Text,
			Area:           raw.Search.Area,
			Specialization: raw.Search.Specialization,
			PerPage:        orDefault(raw.Search.PerPage, defaultPerPage),
			MaxPages:       orDefault(raw.Search.MaxPages, defaultMaxPages),
		},
		HH: HHConfig{
			BaseURL:   orDefaultStr(raw.HH.BaseURL, defaultHHBaseURL),
			UserAgent: orDefaultStr(raw.HH.UserAgent, defaultUserAgent),
		},
		Rates: RatesConfig{
			BaseURL:        orDefaultStr(raw.Rates.BaseURL, defaultRatesBaseURL),
			TargetCurrency: orDefaultStr(raw.Rates.TargetCurrency, defaultTargetCurrency),
		},
		Store: StoreConfig{
			Path: orDefaultStr(raw.Store.Path, "vacancies.db"),
		},
		Enrich: EnrichConfig{
			TopN:     orDefault(raw.Enrich.TopN, defaultTopN),
			NgramMax: orDefault(raw.Enrich.NgramMax, defaultNgramMax),
			Workers:  orDefault(raw.Enrich.Workers, defaultWorkers),
			Embeddings: EmbeddingsConfig{
				Enabled: raw.Enrich.Embeddings.Enabled,
				BaseURL: orDefaultStr(raw.Enrich.Embeddings.BaseURL, defaultEmbeddingsBaseURL),
				APIKey:  raw.Enrich.Embeddings.APIKey,
				Model:   raw.Enrich.Embeddings.Model,
			},
		},
	}

	cfg.HH.Timeout, err = parseDuration(raw.HH.Timeout, 30*time.Second, "hh.timeout")
	if err != nil {
		return nil, err
	}
	cfg.HH.PageDelay, err = parseDuration(raw.HH.PageDelay, 500*time.Millisecond, "hh.page_delay")
	if err != nil {
		return nil, err
	}
	cfg.Rates.Timeout, err = parseDuration(raw.Rates.Timeout, 20*time.Second, "rates.timeout")
	if err != nil {
		return nil, err
	}
	cfg.Enrich.Embeddings.Timeout, err = parseDuration(raw.Enrich.Embeddings.Timeout, 30*time.Second, "enrich.embeddings.timeout")
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(raw string, def time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.Search.Text == "" {
		return fmt.Errorf("search.text is required")
	}
	if cfg.Search.PerPage < 1 || cfg.Search.PerPage > 100 {
		return fmt.Errorf("search.per_page must be between 1 and 100, got %d", cfg.Search.PerPage)
	}
	if cfg.Search.MaxPages < 1 {
		return fmt.Errorf("search.max_pages must be positive, got %d", cfg.Search.MaxPages)
	}
	if cfg.HH.PageDelay <= 0 {
		return fmt.Errorf("hh.page_delay must be positive, got %v", cfg.HH.PageDelay)
	}
	if cfg.Enrich.Workers < 1 {
		return fmt.Errorf("enrich.workers must be at least 1, got %d", cfg.Enrich.Workers)
	}
	if cfg.Enrich.Embeddings.Enabled {
		if cfg.Enrich.Embeddings.APIKey == "" {
			return fmt.Errorf("enrich.embeddings.api_key is required when embeddings are enabled")
		}
		if cfg.Enrich.Embeddings.Model == "" {
			return fmt.Errorf("enrich.embeddings.model is required when embeddings are enabled")
		}
	}
	return nil
}

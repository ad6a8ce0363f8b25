// Package config loads scentbox configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML file, a .env
// file, process environment. The YAML file is decoded strictly; unknown keys
// are errors.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/scentbox/internal/model"
)

// Environment variables that override file values.
const (
	EnvToken        = "SCENTBOX_TOKEN"
	EnvRemoteURL    = "SCENTBOX_REMOTE_URL"
	EnvDB           = "SCENTBOX_DB"
	EnvStoreBackend = "SCENTBOX_STORE_BACKEND"
	EnvAddr         = "SCENTBOX_ADDR"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the full configuration.
type Config struct {
	Remote    Remote    `yaml:"remote"`
	Store     Store     `yaml:"store"`
	Survey    Survey    `yaml:"survey"`
	Recommend Recommend `yaml:"recommend"`
	Selection Selection `yaml:"selection"`
	Server    Server    `yaml:"server"`
}

// Remote configures the remote store client. Fixture, when set, serves a
// YAML fixture instead of talking to URL.
type Remote struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Fixture string        `yaml:"fixture"`
	Timeout time.Duration `yaml:"timeout"`
}

// Store selects the persisted store.
type Store struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Survey tunes the survey sync engine.
type Survey struct {
	Questionnaire string        `yaml:"questionnaire"`
	Debounce      time.Duration `yaml:"debounce"`
	Freshness     time.Duration `yaml:"freshness"`
}

// Recommend tunes the recommendation loader.
type Recommend struct {
	TopK int `yaml:"top_k"`
}

// Selection holds the initial box settings.
type Selection struct {
	TargetCount int     `yaml:"target_count"`
	UnitSize    string  `yaml:"unit_size"`
	MinPrice    float64 `yaml:"min_price"`
	MaxPrice    float64 `yaml:"max_price"`
}

// Server configures the loopback HTTP API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Remote: Remote{Timeout: 8 * time.Second},
		Store:  Store{Backend: BackendSQLite, Path: "scentbox.db"},
		Survey: Survey{
			Debounce:  5 * time.Second,
			Freshness: 7 * 24 * time.Hour,
		},
		Recommend: Recommend{TopK: 20},
		Selection: Selection{TargetCount: 4, UnitSize: "5ml"},
		Server:    Server{Addr: "127.0.0.1:8765"},
	}
}

// ValidationError is a configuration value that cannot be used.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Load builds the configuration from path (optional), dotenv (optional)
// and the process environment.
func Load(path, dotenv string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}

	if dotenv != "" {
		if _, err := os.Stat(dotenv); err == nil {
			// Existing process variables win over the file.
			if err := godotenv.Load(dotenv); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", dotenv, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates it. The
// environment is not consulted.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvToken); ok {
		c.Remote.Token = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvRemoteURL); ok {
		c.Remote.URL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDB); ok {
		c.Store.Path = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvStoreBackend); ok {
		c.Store.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvAddr); ok {
		c.Server.Addr = strings.TrimSpace(v)
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendBadger:
		if c.Store.Path == "" {
			return &ValidationError{Field: "store.path", Message: "required for backend " + c.Store.Backend}
		}
	case BackendMemory:
	default:
		return &ValidationError{Field: "store.backend", Message: fmt.Sprintf("unknown backend %q (sqlite|badger|memory)", c.Store.Backend)}
	}
	if c.Remote.Timeout < 0 {
		return &ValidationError{Field: "remote.timeout", Message: "must not be negative"}
	}
	if c.Survey.Debounce < 0 {
		return &ValidationError{Field: "survey.debounce", Message: "must not be negative"}
	}
	if c.Survey.Freshness <= 0 {
		return &ValidationError{Field: "survey.freshness", Message: "must be positive"}
	}
	if c.Recommend.TopK < 1 {
		return &ValidationError{Field: "recommend.top_k", Message: "must be at least 1"}
	}
	if c.Selection.TargetCount != 4 && c.Selection.TargetCount != 8 {
		return &ValidationError{Field: "selection.target_count", Message: "must be 4 or 8"}
	}
	if _, err := model.ParseUnitSize(c.Selection.UnitSize); err != nil {
		return &ValidationError{Field: "selection.unit_size", Message: err.Error()}
	}
	if c.Selection.MinPrice < 0 || c.Selection.MaxPrice < 0 {
		return &ValidationError{Field: "selection", Message: "prices must not be negative"}
	}
	if c.Selection.MaxPrice > 0 && c.Selection.MaxPrice < c.Selection.MinPrice {
		return &ValidationError{Field: "selection.max_price", Message: "must not be below min_price"}
	}
	return nil
}

// HasRemote reports whether a remote store or fixture is configured.
func (c *Config) HasRemote() bool {
	return c.Remote.URL != "" || c.Remote.Fixture != ""
}

// UnitSize returns the parsed selection unit size. Call after Validate.
func (c *Config) UnitSize() model.UnitSize {
	u, _ := model.ParseUnitSize(c.Selection.UnitSize)
	return u
}

// PriceRange returns the initial selection price range.
func (c *Config) PriceRange() model.PriceRange {
	return model.PriceRange{Min: c.Selection.MinPrice, Max: c.Selection.MaxPrice}
}

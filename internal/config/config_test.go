package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scentbox/internal/model"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Survey.Debounce)
	assert.Equal(t, 7*24*time.Hour, cfg.Survey.Freshness)
	assert.Equal(t, model.Unit5ML, cfg.UnitSize())
	assert.False(t, cfg.HasRemote())
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load("testdata/scentbox.yaml", "")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.Remote.URL)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Survey.Debounce)
	assert.Equal(t, 72*time.Hour, cfg.Survey.Freshness)
	assert.Equal(t, 12, cfg.Recommend.TopK)
	assert.Equal(t, 8, cfg.Selection.TargetCount)
	assert.Equal(t, model.Unit10ML, cfg.UnitSize())
	assert.Equal(t, model.PriceRange{Min: 1.5, Max: 6}, cfg.PriceRange())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("remote:\n  uri: http://x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uri")
}

func TestParse_EmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"debounce", func(c *Config) { c.Survey.Debounce = -time.Second }, "survey.debounce"},
		{"freshness", func(c *Config) { c.Survey.Freshness = 0 }, "survey.freshness"},
		{"top_k", func(c *Config) { c.Recommend.TopK = 0 }, "recommend.top_k"},
		{"target", func(c *Config) { c.Selection.TargetCount = 6 }, "selection.target_count"},
		{"unit", func(c *Config) { c.Selection.UnitSize = "7ml" }, "selection.unit_size"},
		{"max below min", func(c *Config) { c.Selection.MinPrice, c.Selection.MaxPrice = 5, 2 }, "selection.max_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	cfg := Default()
	cfg.Store.Backend, cfg.Store.Path = BackendMemory, ""
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvToken:        " tok ",
		EnvRemoteURL:    "http://localhost:9999",
		EnvDB:           "/tmp/x.db",
		EnvStoreBackend: "Memory",
		EnvAddr:         ":0",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "tok", cfg.Remote.Token)
	assert.Equal(t, "http://localhost:9999", cfg.Remote.URL)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ":0", cfg.Server.Addr)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("SCENTBOX_REMOTE_URL=http://from-dotenv\nSCENTBOX_TOKEN=from-dotenv\n"), 0o600))

	// Process environment wins over the file.
	t.Setenv(EnvToken, "from-env")
	// Registers cleanup so the dotenv-set variable does not leak into other tests.
	t.Setenv(EnvRemoteURL, "")
	require.NoError(t, os.Unsetenv(EnvRemoteURL))

	cfg, err := Load("", dotenv)
	require.NoError(t, err)
	assert.Equal(t, "http://from-dotenv", cfg.Remote.URL)
	assert.Equal(t, "from-env", cfg.Remote.Token)
	assert.True(t, cfg.HasRemote())
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

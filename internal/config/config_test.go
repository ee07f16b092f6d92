package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	t.Setenv("GRID_DB_PATH", "/tmp/grid.duckdb")
	t.Setenv("GRID_GRIDS_FILE", "grids.yaml")
	t.Setenv("GRID_LISTEN_ADDR", ":9090")
	t.Setenv("GRID_LOG_LEVEL", "debug")
	t.Setenv("GRID_QUERY_TIMEOUT", "5s")
	t.Setenv("GRID_RATE_LIMIT_RPS", "10")
	t.Setenv("GRID_RATE_LIMIT_BURST", "20")
	t.Setenv("GRID_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/grid.duckdb", cfg.DBPath)
	assert.Equal(t, "grids.yaml", cfg.GridsFile)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("GRID_DB_PATH", "")
	t.Setenv("GRID_LISTEN_ADDR", "")
	t.Setenv("GRID_LOG_LEVEL", "")
	t.Setenv("GRID_QUERY_TIMEOUT", "")
	t.Setenv("GRID_RATE_LIMIT_RPS", "")
	t.Setenv("GRID_RATE_LIMIT_BURST", "")
	t.Setenv("GRID_CORS_ALLOWED_ORIGINS", "")
	t.Setenv("GRID_ENV", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.FacetDebounce)
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	// In-memory database warning surfaces after the logger comes up.
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "GRID_DB_PATH")
}

func TestLoadFromEnv_BadTimeout(t *testing.T) {
	t.Setenv("GRID_QUERY_TIMEOUT", "soon")
	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_ProductionRejectsWildcardCORS(t *testing.T) {
	t.Setenv("GRID_ENV", "production")
	t.Setenv("GRID_CORS_ALLOWED_ORIGINS", "")
	_, err := LoadFromEnv()
	require.Error(t, err)

	t.Setenv("GRID_CORS_ALLOWED_ORIGINS", "https://grid.example")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel().String())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nGRID_DOTENV_A=hello\nGRID_DOTENV_B=\"quoted\"\nmalformed line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("GRID_DOTENV_A", "")
	t.Setenv("GRID_DOTENV_B", "")
	t.Setenv("GRID_DOTENV_C", "already")
	require.NoError(t, os.Setenv("GRID_DOTENV_C", "already"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "hello", os.Getenv("GRID_DOTENV_A"))
	assert.Equal(t, "quoted", os.Getenv("GRID_DOTENV_B"))
	assert.Equal(t, "already", os.Getenv("GRID_DOTENV_C"))

	// Missing file is fine.
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}

package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 300.0, cfg.AdviceHighBalance)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", t.TempDir()+"/ledger.db")
	t.Setenv("ADVICE_HIGH_BALANCE", "500")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 500.0, cfg.AdviceHighBalance)
	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"non-numeric port", func(c *config.Config) { c.Port = "http" }},
		{"port out of range", func(c *config.Config) { c.Port = "70000" }},
		{"unknown backend", func(c *config.Config) { c.StorageBackend = "postgres" }},
		{"empty sqlite path", func(c *config.Config) {
			c.StorageBackend = "sqlite"
			c.SQLiteDBPath = ""
		}},
		{"non-positive threshold", func(c *config.Config) { c.AdviceHighBalance = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Load()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

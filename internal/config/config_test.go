package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"port": 8080, "database": {"host": "localhost"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 1536, cfg.AI.Dimension)
	require.Equal(t, 8000, cfg.AI.MaxInputChars)
	require.Equal(t, 3, cfg.AI.MaxAttempts)
	require.Equal(t, 20, cfg.Search.DefaultLimit)
	require.Equal(t, 3, cfg.Search.OverFetchFactor)
	require.Equal(t, 0.6, cfg.Search.VectorWeight)
	require.Equal(t, 0.4, cfg.Search.LexicalWeight)
	require.Equal(t, 4, cfg.Reindex.Workers)
	require.Equal(t, "*/10 * * * *", cfg.Reindex.SweepCron)
}

func TestLoadKeepsExplicitWeights(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"dsn": "postgres://x"},
		"search": {"vector_weight": 1.0}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1.0, cfg.Search.VectorWeight)
	require.Equal(t, 0.0, cfg.Search.LexicalWeight)
}

func TestLoadRejectsIncomplete(t *testing.T) {
	_, err := Load(writeConfig(t, `{"database": {"host": "localhost"}}`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{"port": 8080}`))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

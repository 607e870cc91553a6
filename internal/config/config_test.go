package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesRecognizedDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2000, cfg.TokenBudgetDefault)
	assert.Equal(t, 1.0, cfg.Traversal.WeightSemantic)
	assert.Equal(t, 0.1, cfg.Traversal.WeightComplexity)
	assert.Equal(t, 1.0, cfg.Traversal.DistanceDecay)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 10000, cfg.Embedding.CacheSize)
	assert.True(t, cfg.Store.WAL)
	assert.Equal(t, 10000, cfg.Store.CachePages)
	assert.Equal(t, "normal", cfg.Store.SynchronousBulk)
}

func TestLoad_AppliesEnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_BUDGET_DEFAULT", "4000")
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("STORE_BACKEND", "postgres")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.TokenBudgetDefault)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, "postgres", cfg.Store.Backend)
}

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Store.Backend = "neo4j"
	cfg.TokenBudgetDefault = 5000

	require.NoError(t, cfg.Save(path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "neo4j", loaded.Store.Backend)
	assert.Equal(t, 5000, loaded.TokenBudgetDefault)
}

func TestExpandPath_ExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "foo"), expandPath("~/foo"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}

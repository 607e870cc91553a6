package main

import (
	"context"
	"fmt"

	"github.com/coderisk-labs/intelcore/internal/config"
	"github.com/coderisk-labs/intelcore/internal/core"
	"github.com/coderisk-labs/intelcore/internal/embedclient"
	"github.com/coderisk-labs/intelcore/internal/store"
)

// openStore constructs the Store backend named by cfg.Store.Backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "sqlite":
		return store.NewSQLiteStore(cfg.Store.SQLitePath, cfg.Store.CachePages, cfg.Store.SynchronousBulk, logger)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Store.PostgresDSN, logger)
	case "neo4j":
		return store.NewNeo4jStore(ctx, cfg.Store.Neo4jURI, cfg.Store.Neo4jUser, cfg.Store.Neo4jPassword, cfg.Store.Neo4jDatabase, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openSidecar opens the bbolt fast-cold-start sidecar, if configured.
func openSidecar(cfg *config.Config) (*store.Sidecar, error) {
	if cfg.Store.SidecarPath == "" {
		return nil, nil
	}
	return store.OpenSidecar(cfg.Store.SidecarPath)
}

// openEmbedder constructs the Embedder named by cfg.Embedding.Provider,
// resolving its API key through the credential priority chain.
func openEmbedder(ctx context.Context, cfg *config.Config) (core.Embedder, error) {
	cm := config.NewCredentialManager()
	apiKey, err := cm.GetProviderAPIKey(cfg.Embedding.Provider)
	if err != nil {
		return nil, err
	}

	switch cfg.Embedding.Provider {
	case "", "openai":
		return embedclient.NewOpenAIEmbedder(apiKey, cfg.Embedding.Dimension, defaultRequestsPerSecond)
	case "gemini":
		return embedclient.NewGeminiEmbedder(ctx, apiKey, cfg.Embedding.Model, cfg.Embedding.Dimension, defaultRequestsPerSecond)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// defaultRequestsPerSecond throttles calls to either embedder provider.
const defaultRequestsPerSecond = 5.0

// openCore wires a CoreContext for projectID using cfg, opening the Store
// and sidecar but leaving the embedder nil (commands that need live
// embedding should call openEmbedder separately).
func openCore(ctx context.Context, cfg *config.Config, projectID string) (*core.CoreContext, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	sidecar, err := openSidecar(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open sidecar: %w", err)
	}
	return core.New(cfg, projectID, st, sidecar, nil, logger), nil
}

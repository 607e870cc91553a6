// Package config implements the intelligence core's layered configuration:
// defaults, then config file, then environment variables, then (for
// secrets) the OS keychain and interactive prompt, via a
// viper+godotenv+yaml layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every tunable named in spec.md §6.
type Config struct {
	Mode string `yaml:"mode"` // "development", "packaged", "ci"

	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Traversal TraversalConfig `yaml:"traversal"`

	TokenBudgetDefault int `yaml:"token_budget_default" mapstructure:"token_budget_default"`
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	Backend          string `yaml:"backend"` // "sqlite", "postgres", "neo4j"
	SQLitePath       string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN      string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	Neo4jURI         string `yaml:"neo4j_uri" mapstructure:"neo4j_uri"`
	Neo4jUser        string `yaml:"neo4j_user" mapstructure:"neo4j_user"`
	Neo4jPassword    string `yaml:"neo4j_password" mapstructure:"neo4j_password"`
	Neo4jDatabase    string `yaml:"neo4j_database" mapstructure:"neo4j_database"`
	SidecarPath      string `yaml:"sidecar_path" mapstructure:"sidecar_path"`
	WAL              bool   `yaml:"wal"`
	CachePages       int    `yaml:"cache_pages" mapstructure:"cache_pages"`
	// SynchronousBulk is one of "off", "normal", "full" — PRAGMA synchronous
	// during bulk load, matching the store.synchronous_bulk key.
	SynchronousBulk string `yaml:"synchronous_bulk" mapstructure:"synchronous_bulk"`
}

// EmbeddingConfig selects and tunes the embedder.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "gemini"
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"`
}

// TraversalConfig carries the gravity-based expansion weights, spec.md §4.3.
type TraversalConfig struct {
	WeightSemantic   float64 `yaml:"weight_semantic" mapstructure:"weight_semantic"`
	WeightComplexity float64 `yaml:"weight_complexity" mapstructure:"weight_complexity"`
	DistanceDecay    float64 `yaml:"distance_decay" mapstructure:"distance_decay"`
}

// Default returns default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Mode: "packaged",
		Store: StoreConfig{
			Backend:         "sqlite",
			SQLitePath:      filepath.Join(homeDir, ".intelcore", "project.db"),
			SidecarPath:     filepath.Join(homeDir, ".intelcore", "project.sidecar"),
			WAL:             true,
			CachePages:      10000,
			SynchronousBulk: "normal",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			Dimension: 768,
			CacheSize: 10000,
		},
		Traversal: TraversalConfig{
			WeightSemantic:   1.0,
			WeightComplexity: 0.1,
			DistanceDecay:    1.0,
		},
		TokenBudgetDefault: 2000,
	}
}

// Load loads configuration from path, falling back to standard locations
// and defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("store", cfg.Store)
	v.SetDefault("embedding", cfg.Embedding)
	v.SetDefault("traversal", cfg.Traversal)
	v.SetDefault("token_budget_default", cfg.TokenBudgetDefault)

	v.SetEnvPrefix("INTELCORE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".intelcore")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".intelcore"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadEnvFiles() {
	envFiles := []string{".env.local", ".env", ".env.example"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".intelcore", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

func applyEnvOverrides(cfg *Config) {
	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Store.PostgresDSN = dsn
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.Store.SQLitePath = expandPath(path)
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Store.Neo4jURI = uri
	}
	if pw := os.Getenv("NEO4J_PASSWORD"); pw != "" {
		cfg.Store.Neo4jPassword = pw
	}
	if cachePages := os.Getenv("STORE_CACHE_PAGES"); cachePages != "" {
		if n, err := strconv.Atoi(cachePages); err == nil {
			cfg.Store.CachePages = n
		}
	}

	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		cfg.Embedding.Provider = provider
	}
	if dim := os.Getenv("EMBEDDING_DIMENSION"); dim != "" {
		if n, err := strconv.Atoi(dim); err == nil {
			cfg.Embedding.Dimension = n
		}
	}
	if size := os.Getenv("EMBEDDING_CACHE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			cfg.Embedding.CacheSize = n
		}
	}

	if budget := os.Getenv("TOKEN_BUDGET_DEFAULT"); budget != "" {
		if n, err := strconv.Atoi(budget); err == nil {
			cfg.TokenBudgetDefault = n
		}
	}

	if mode := os.Getenv("INTELCORE_MODE"); mode != "" {
		cfg.Mode = mode
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes cfg to path as YAML.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("mode", c.Mode)
	v.Set("store", c.Store)
	v.Set("embedding", c.Embedding)
	v.Set("traversal", c.Traversal)
	v.Set("token_budget_default", c.TokenBudgetDefault)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

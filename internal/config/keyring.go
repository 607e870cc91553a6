package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "IntelCore"

	// KeyringUser is the user identifier for credentials
	KeyringUser = "default"

	// KeyringOpenAIKeyItem is the key for the OpenAI API key
	KeyringOpenAIKeyItem = "openai-api-key"

	// KeyringGeminiKeyItem is the key for the Gemini API key
	KeyringGeminiKeyItem = "gemini-api-key"
)

// KeyringManager handles secure embedder credential storage in the OS
// keychain.
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SaveKey stores the API key for the named embedding provider ("openai" or
// "gemini") securely in the OS keychain:
// - macOS: Keychain Access.app → "IntelCore" → "<provider>-api-key"
// - Windows: Credential Manager → "IntelCore"
// - Linux: Secret Service (requires libsecret)
func (km *KeyringManager) SaveKey(provider, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	item, err := keyringItem(provider)
	if err != nil {
		return err
	}

	if err := keyring.Set(KeyringService, item, apiKey); err != nil {
		km.logger.Error("failed to save key to keychain", "provider", provider, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("api key saved to keychain", "provider", provider, "service", KeyringService)
	return nil
}

// GetKey retrieves the API key for the named embedding provider from the
// OS keychain.
func (km *KeyringManager) GetKey(provider string) (string, error) {
	item, err := keyringItem(provider)
	if err != nil {
		return "", err
	}

	apiKey, err := keyring.Get(KeyringService, item)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get key from keychain", "provider", provider, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("api key retrieved from keychain", "provider", provider)
	return apiKey, nil
}

// DeleteKey removes the stored API key for the named provider.
func (km *KeyringManager) DeleteKey(provider string) error {
	item, err := keyringItem(provider)
	if err != nil {
		return err
	}

	if err := keyring.Delete(KeyringService, item); err == keyring.ErrNotFound {
		return nil
	} else if err != nil {
		km.logger.Error("failed to delete key from keychain", "provider", provider, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("api key deleted from keychain", "provider", provider)
	return nil
}

// IsAvailable checks if OS keychain is available. Returns false on
// headless systems (CI/CD) where the keychain isn't reachable.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")

	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}

	return true
}

func keyringItem(provider string) (string, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return KeyringOpenAIKeyItem, nil
	case "gemini":
		return KeyringGeminiKeyItem, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// KeySourceInfo returns information about where an API key is stored
type KeySourceInfo struct {
	Source      string // "keychain", "env", "env_file", "none"
	Secure      bool   // true if stored securely (keychain or env var in CI/CD)
	Recommended string // recommendation if not optimal
}

// GetKeySource determines where the active provider's API key is coming
// from.
func (km *KeyringManager) GetKeySource(cfg *Config) KeySourceInfo {
	envVar := providerEnvVar(cfg.Embedding.Provider)
	if envVar != "" && os.Getenv(envVar) != "" {
		return KeySourceInfo{
			Source:      "env",
			Secure:      true,
			Recommended: "Using environment variable (good for CI/CD)",
		}
	}

	if key, err := km.GetKey(cfg.Embedding.Provider); err == nil && key != "" {
		return KeySourceInfo{
			Source:      "keychain",
			Secure:      true,
			Recommended: "Stored securely in OS keychain",
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		return KeySourceInfo{
			Source:      "env_file",
			Secure:      false,
			Recommended: "Using .env file (OK for CI/CD, consider keychain for local dev)",
		}
	}

	return KeySourceInfo{
		Source:      "none",
		Secure:      false,
		Recommended: "No API key configured. Run: intelcore configure",
	}
}

func providerEnvVar(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// MaskAPIKey masks an API key for display.
// Shows first 7 chars and last 4 chars: "sk-proj...c123"
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", apiKey[:7], apiKey[len(apiKey)-4:])
}

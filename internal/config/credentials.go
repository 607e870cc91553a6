package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/coderisk-labs/intelcore/internal/errors"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// CredentialManager handles embedder credential retrieval with priority
// chain: Environment Variables → Keychain → Config File → Interactive
// Prompt.
type CredentialManager struct {
	mode       DeploymentMode
	keyring    *KeyringManager
	configPath string
}

// Credentials holds the embedder API keys this tool can resolve.
type Credentials struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager() *CredentialManager {
	mode := DetectMode()
	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".config", "intelcore", "config.yaml")

	return &CredentialManager{
		mode:       mode,
		keyring:    NewKeyringManager(),
		configPath: configPath,
	}
}

// GetProviderAPIKey retrieves the API key for provider ("openai" or
// "gemini") using the priority chain.
func (cm *CredentialManager) GetProviderAPIKey(provider string) (string, error) {
	envVar := providerEnvVar(provider)
	if envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key, nil
		}
	}

	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetKey(provider); err == nil && key != "" {
			return key, nil
		}
	}

	if creds, err := cm.loadConfigFile(); err == nil {
		if key := credentialField(creds, provider); key != "" {
			return key, nil
		}
	}

	if cm.mode.AllowsInteractivePrompts() && isInteractive() {
		fmt.Printf("\n%s API Key not found.\n", strings.Title(provider))
		fmt.Println()
		return cm.promptForAPIKey(provider)
	}

	return "", errors.ConfigErrorf(
		"%s not found. Set it via:\n"+
			"  1. Environment variable: export %s=...\n"+
			"  2. Run: intelcore configure (to set up keychain)\n"+
			"  3. Config file: %s", envVar, envVar, cm.configPath)
}

// SaveCredentials saves credentials to keychain (preferred) or config
// file (fallback).
func (cm *CredentialManager) SaveCredentials(creds Credentials) error {
	if cm.keyring.IsAvailable() {
		if creds.OpenAIAPIKey != "" {
			if err := cm.keyring.SaveKey("openai", creds.OpenAIAPIKey); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save OpenAI API key to keychain")
			}
		}
		if creds.GeminiAPIKey != "" {
			if err := cm.keyring.SaveKey("gemini", creds.GeminiAPIKey); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save Gemini API key to keychain")
			}
		}
		return nil
	}

	return cm.saveConfigFile(creds)
}

func credentialField(creds *Credentials, provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return creds.OpenAIAPIKey
	case "gemini":
		return creds.GeminiAPIKey
	default:
		return ""
	}
}

// loadConfigFile loads credentials from config file
func (cm *CredentialManager) loadConfigFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// saveConfigFile saves credentials to config file
func (cm *CredentialManager) saveConfigFile(creds Credentials) error {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return err
	}

	return nil
}

// promptForAPIKey prompts the user for the named provider's API key.
func (cm *CredentialManager) promptForAPIKey(provider string) (string, error) {
	fmt.Printf("Enter %s API Key: ", strings.Title(provider))
	key, err := cm.readSecurely()
	if err != nil {
		return "", err
	}

	if key == "" {
		return "", errors.ConfigError(strings.Title(provider) + " API key is required")
	}

	if provider == "openai" && !strings.HasPrefix(key, "sk-") {
		return "", errors.ValidationError("OpenAI API key should start with 'sk-'")
	}

	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SaveKey(provider, key); err == nil {
			fmt.Println("Saved to keychain")
		}
	} else {
		creds := Credentials{}
		switch provider {
		case "openai":
			creds.OpenAIAPIKey = key
		case "gemini":
			creds.GeminiAPIKey = key
		}
		if err := cm.saveConfigFile(creds); err == nil {
			fmt.Printf("Saved to %s\n", cm.configPath)
		}
	}

	return key, nil
}

// readSecurely reads a password/token from stdin without echoing
func (cm *CredentialManager) readSecurely() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// isInteractive returns true if stdin is a terminal (not piped)
func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// GetMode returns the current deployment mode
func (cm *CredentialManager) GetMode() DeploymentMode {
	return cm.mode
}

// GetConfigPath returns the path to the config file
func (cm *CredentialManager) GetConfigPath() string {
	return cm.configPath
}

// HasCredentials checks if an API key is configured for provider.
func (cm *CredentialManager) HasCredentials(provider string) bool {
	if envVar := providerEnvVar(provider); envVar != "" && os.Getenv(envVar) != "" {
		return true
	}

	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetKey(provider); err == nil && key != "" {
			return true
		}
	}

	if creds, err := cm.loadConfigFile(); err == nil && credentialField(creds, provider) != "" {
		return true
	}

	return false
}

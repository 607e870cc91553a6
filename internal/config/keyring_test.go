package config

import (
	"os"
	"testing"
)

func TestKeyringManager_SaveAndGetKey(t *testing.T) {
	km := NewKeyringManager()

	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	defer km.DeleteKey("openai")

	testKey := "sk-test123456789"

	if err := km.SaveKey("openai", testKey); err != nil {
		t.Fatalf("Failed to save API key: %v", err)
	}

	retrieved, err := km.GetKey("openai")
	if err != nil {
		t.Fatalf("Failed to get API key: %v", err)
	}
	if retrieved != testKey {
		t.Errorf("Expected key %s, got %s", testKey, retrieved)
	}
}

func TestKeyringManager_UnknownProvider(t *testing.T) {
	km := NewKeyringManager()

	if err := km.SaveKey("anthropic", "x"); err == nil {
		t.Error("Expected error for unknown provider")
	}
	if _, err := km.GetKey("anthropic"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestKeyringManager_DeleteKey(t *testing.T) {
	km := NewKeyringManager()

	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	if err := km.SaveKey("gemini", "gem-test-key"); err != nil {
		t.Fatalf("Failed to save key: %v", err)
	}
	if err := km.DeleteKey("gemini"); err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}

	retrieved, err := km.GetKey("gemini")
	if err != nil {
		t.Fatalf("Error getting key after deletion: %v", err)
	}
	if retrieved != "" {
		t.Errorf("Expected empty key after deletion, got %s", retrieved)
	}
}

func TestKeyringManager_GetKey_NotFound(t *testing.T) {
	km := NewKeyringManager()

	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	km.DeleteKey("openai")

	retrieved, err := km.GetKey("openai")
	if err != nil {
		t.Fatalf("Expected no error for non-existent key, got: %v", err)
	}
	if retrieved != "" {
		t.Errorf("Expected empty string for non-existent key, got: %s", retrieved)
	}
}

func TestKeyringManager_IsAvailable(t *testing.T) {
	km := NewKeyringManager()
	available := km.IsAvailable()
	if available {
		t.Log("Keychain is available")
	} else {
		t.Log("Keychain is not available (headless system or missing dependencies)")
	}
}

func TestGetKeySource_EnvironmentVariable(t *testing.T) {
	km := NewKeyringManager()
	cfg := Default()

	testKey := "sk-env-test-123"
	os.Setenv("OPENAI_API_KEY", testKey)
	defer os.Unsetenv("OPENAI_API_KEY")

	sourceInfo := km.GetKeySource(cfg)
	if sourceInfo.Source != "env" {
		t.Errorf("Expected source 'env', got '%s'", sourceInfo.Source)
	}
	if !sourceInfo.Secure {
		t.Error("Expected env var source to be marked as secure")
	}
}

func TestGetKeySource_None(t *testing.T) {
	km := NewKeyringManager()
	cfg := Default()

	os.Unsetenv("OPENAI_API_KEY")

	sourceInfo := km.GetKeySource(cfg)
	if sourceInfo.Source == "env" {
		t.Error("Did not expect env source with no key set")
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Standard API key", "sk-proj-1234567890abcdefg", "sk-proj...defg"},
		{"Empty key", "", "(not set)"},
		{"Short key", "sk-test", "***"},
		{"Exact 12 chars", "sk-test12345", "sk-test...2345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskAPIKey(tt.input)
			if result != tt.expected {
				t.Errorf("MaskAPIKey(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

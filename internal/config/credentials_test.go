package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialManager_GetProviderAPIKey_FromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cm := NewCredentialManager()
	key, err := cm.GetProviderAPIKey("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", key)
}

func TestCredentialManager_GetProviderAPIKey_Gemini(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-from-env")

	cm := NewCredentialManager()
	key, err := cm.GetProviderAPIKey("gemini")
	require.NoError(t, err)
	assert.Equal(t, "gem-from-env", key)
}

func TestCredentialManager_HasCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-present")
	cm := NewCredentialManager()
	assert.True(t, cm.HasCredentials("openai"))
}

func TestCredentialManager_GetMode(t *testing.T) {
	cm := NewCredentialManager()
	assert.NotEmpty(t, cm.GetMode().String())
}

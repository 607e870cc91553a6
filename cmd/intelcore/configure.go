package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderisk-labs/intelcore/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard for an embedding provider API key",
	Long: `Walk through intelcore configuration step by step, with secure
credential storage in the OS keychain where available.

This configures:
1. Embedding provider (openai or gemini)
2. Provider API key (stored in OS keychain by default)
3. Embedding model`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	fmt.Println("intelcore configuration wizard")
	fmt.Println("==============================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	configPath := getConfigPath()
	loadedCfg, err := config.Load(configPath)
	if err != nil {
		loadedCfg = config.Default()
	}

	km := config.NewKeyringManager()
	keychainAvailable := km.IsAvailable()
	if !keychainAvailable {
		fmt.Println("OS keychain not available; an API key entered here will not be stored.")
		fmt.Println()
	}

	fmt.Println("Step 1/3: Embedding provider")
	fmt.Printf("Current: %s\n", loadedCfg.Embedding.Provider)
	fmt.Print("Provider (openai/gemini) or press Enter to keep current: ")
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(response)
	if response == "openai" || response == "gemini" {
		loadedCfg.Embedding.Provider = response
	}
	fmt.Println()

	fmt.Println("Step 2/3: Provider API key")
	sourceInfo := km.GetKeySource(loadedCfg)
	if sourceInfo.Source != "none" {
		fmt.Printf("Current source: %s\n", sourceInfo.Recommended)
		fmt.Print("Keep existing key? (Y/n): ")
		response, _ = reader.ReadString('\n')
		response = strings.TrimSpace(response)
		if response == "" || strings.ToLower(response) == "y" {
			goto step3
		}
	}

	fmt.Printf("Enter your %s API key: ", loadedCfg.Embedding.Provider)
	response, _ = reader.ReadString('\n')
	response = strings.TrimSpace(response)

	if response == "" {
		fmt.Println("no key entered, skipping")
		goto step3
	}

	if keychainAvailable {
		if err := km.SaveKey(loadedCfg.Embedding.Provider, response); err != nil {
			fmt.Printf("failed to save to keychain: %v\n", err)
			fmt.Println("storing in config file is not supported for this provider key; set it via the provider's environment variable instead")
		} else {
			fmt.Println("API key saved to OS keychain (secure)")
			fmt.Printf("   location: %s\n", getKeychainLocation())
		}
	} else {
		fmt.Println("no keychain available; export the provider's API key as an environment variable")
	}

step3:
	fmt.Println()
	fmt.Println("Step 3/3: Embedding model")
	fmt.Printf("Current: %s (dimension %d)\n", loadedCfg.Embedding.Model, loadedCfg.Embedding.Dimension)
	fmt.Print("Model name, or press Enter to keep current: ")
	response, _ = reader.ReadString('\n')
	response = strings.TrimSpace(response)
	if response != "" {
		loadedCfg.Embedding.Model = response
	}
	fmt.Println()

	fmt.Printf("Save to: %s\n", configPath)
	fmt.Print("Confirm? (Y/n): ")
	response, _ = reader.ReadString('\n')
	response = strings.TrimSpace(response)
	if response == "" || strings.ToLower(response) == "y" {
		if err := loadedCfg.Save(configPath); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("configuration saved")
	} else {
		fmt.Println("configuration not saved")
	}

	return nil
}

func getKeychainLocation() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain Access.app -> 'IntelCore'"
	case "windows":
		return "Windows Credential Manager -> 'IntelCore'"
	case "linux":
		return "Linux Secret Service (libsecret)"
	default:
		return "OS keychain"
	}
}

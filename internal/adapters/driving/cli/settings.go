package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// aiValidator pings providers after they are configured. Nil skips the check.
var aiValidator driven.AIConfigValidator

// SetAIValidator sets the validator used by the settings commands.
func SetAIValidator(v driven.AIConfigValidator) {
	aiValidator = v
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, storage and server options.

Without AI providers, indexing still works and search runs keyword-only.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the embedding and LLM providers.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for vector search.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM that extracts category metadata during indexing.`,
	RunE:  runSettingsLLM,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single value",
	Long: `Store a single setting by its dotted key.

Examples:
  admkb settings set storage.backend memory
  admkb settings set chunker.max_chars 6000
  admkb settings set retrieval.keyword_weight 0.7
  admkb settings set server.addr 0.0.0.0:8080`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	if settings.Embedding.IsConfigured() {
		cmd.Printf("  Max input: %d chars\n", settings.Embedding.MaxInputChars)
		cmd.Printf("  Concurrency: %d (%.1f req/s)\n", settings.Embedding.Concurrency, settings.Embedding.RatePerSecond)
	}
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Max chars: %d\n", settings.Chunker.MaxChars)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Weights: keyword %.2f, vector %.2f\n", settings.Retrieval.KeywordWeight, settings.Retrieval.VectorWeight)
	cmd.Printf("  Size: default %d, max %d\n", settings.Retrieval.DefaultSize, settings.Retrieval.MaxSize)
	cmd.Printf("  Sub-query timeout: %s\n", settings.Retrieval.SubqueryTimeout)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Session TTL: %s\n", settings.Session.TTL)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'admkb settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Provider: (none)")
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("admkb Settings Wizard")
	cmd.Println("=====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	cmd.Println("Embeddings enable vector and hybrid search.")
	if confirm(cmd, reader, "Configure an embedding provider?") {
		if err := configureEmbeddingProvider(cmd, reader); err != nil {
			return err
		}
	}
	cmd.Println()

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	cmd.Println("An LLM extracts category metadata while indexing.")
	if confirm(cmd, reader, "Configure an LLM provider?") {
		if err := configureLLMProvider(cmd, reader); err != nil {
			return err
		}
	}
	cmd.Println()

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, raw := args[0], args[1]
	if err := settingsService.Set(key, parseValue(raw)); err != nil {
		return err
	}
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Saved %s, but the configuration is now invalid: %v\n", key, err)
		return nil
	}
	cmd.Printf("Saved %s = %s\n", key, raw)
	return nil
}

// parseValue stores numbers and booleans with their TOML types.
func parseValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	provider, model := chooseProvider(cmd, reader, "Embedding", domain.DefaultEmbeddingModels())

	if err := settingsService.SetEmbeddingProvider(provider, model); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	if err := storeAPIKey(cmd, reader, provider, "embedding.api_key"); err != nil {
		return err
	}

	if aiValidator != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return err
		}
		cmd.Print("Validating configuration... ")
		if err := aiValidator.ValidateEmbedding(&settings.Embedding); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	provider, model := chooseProvider(cmd, reader, "LLM", domain.DefaultLLMModels())

	if err := settingsService.SetLLMProvider(provider, model); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}
	if err := storeAPIKey(cmd, reader, provider, "llm.api_key"); err != nil {
		return err
	}

	if aiValidator != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return err
		}
		cmd.Print("Validating configuration... ")
		if err := aiValidator.ValidateLLM(&settings.LLM); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func chooseProvider(
	cmd *cobra.Command, reader *bufio.Reader, kind string, defaults map[domain.AIProvider]string,
) (domain.AIProvider, string) {
	cmd.Printf("Select %s Provider\n", kind)
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}
	return provider, model
}

// storeAPIKey prompts for a key when the provider needs one. An empty
// answer keeps the stored key or the environment fallback.
func storeAPIKey(cmd *cobra.Command, reader *bufio.Reader, provider domain.AIProvider, key string) error {
	if !provider.RequiresAPIKey() {
		return nil
	}
	cmd.Print("Enter API key (blank to use OPENAI_API_KEY): ")
	apiKey := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	if apiKey == "" {
		return nil
	}
	return settingsService.Set(key, apiKey)
}

func confirm(cmd *cobra.Command, reader *bufio.Reader, question string) bool {
	cmd.Printf("%s [Y/n]: ", question)
	switch strings.ToLower(readLine(reader)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is the terminal, and from
// reader otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

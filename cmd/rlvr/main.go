package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mokulua/rlvr/internal/config"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "rlvr",
		Short: "RLVR - verifiable-reward translation gym and API",
		Long: `RLVR generates candidate translations, scores them against
deterministic grammar metrics and reranks by weighted reward, while an
epsilon-greedy bandit learns which prompt phrasing produces the best
candidates.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		gymCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Printf("  Status:      %s\n", boolStatus(cfg.IsLLMConfigured()))
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host:      %s\n", cfg.Server.Host)
			fmt.Printf("  Port:      %d\n", cfg.Server.Port)
			fmt.Printf("  Lang Dir:  %s\n", cfg.Server.LangDir)
			fmt.Printf("  Epsilon:   %.2f\n", cfg.Server.Epsilon)
			fmt.Println()

			fmt.Println("Gym:")
			fmt.Printf("  Output Dir: %s\n", cfg.Gym.OutputDir)
			fmt.Printf("  K Samples:  %d\n", cfg.Gym.KSamples)
			fmt.Printf("  Generator:  %s\n", cfg.Gym.Generator)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  RLVR_LLM_URL, RLVR_LLM_API_KEY, RLVR_LLM_MODEL, RLVR_LLM_MAX_TOKENS")
			fmt.Println("  RLVR_SERVER_HOST, RLVR_SERVER_PORT, RLVR_LANG_DIR, RLVR_EPSILON")
			fmt.Println("  RLVR_OUTPUT_DIR, RLVR_K_SAMPLES, RLVR_GENERATOR, RLVR_TRACE")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("RLVR %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func boolStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/drewdunne/aireview/internal/config"
)

var version = "0.1.0"

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "aireview",
	Short:         "AI merge request review service",
	Long:          "aireview receives GitLab merge request webhooks, reviews the diff with an LLM and reports back on the merge request.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnv(envFile)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aireview v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (optional)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnv loads path, or the default .env locations when path is empty.
// Variables already set in the environment win.
func loadEnv(path string) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			slog.Warn("could not load env file", "path", path, "error", err)
		}
		return
	}
	_ = godotenv.Load(".env")
	_ = godotenv.Load("/etc/aireview/aireview.env")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported, later files override earlier ones
	serverPort  int
	serverHost  string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "medguard",
	Short:         "Secure clinical intake pipeline",
	Long:          `MedGuard extracts clinical documents, redacts patient identifiers, grades risk, cites hospital protocols and answers questions about the sanitized record.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	rootCmd.AddCommand(serveCmd, processCmd, askCmd, versionCmd)
}

// loadConfig runs the startup sequence (REQUIRED ORDER):
// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
// 2. Apply CLI overrides (highest priority)
// 3. Initialize logger
func loadConfig(cmd *cobra.Command) error {
	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("medguard.toml"); err == nil {
			configFiles = append(configFiles, "medguard.toml")
		} else if _, err := os.Stat("deployments/local/medguard.toml"); err == nil {
			// Fallback: check deployments/local for users running from project root
			configFiles = append(configFiles, "deployments/local/medguard.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		arbor.NewLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		return err
	}

	switch cmd.Name() {
	case "serve":
		common.ApplyFlagOverrides(config, serverPort, serverHost)
	case "process", "ask":
		// stdout carries command output; keep routine logging off it
		if config.Logging.Level != "error" {
			config.Logging.Level = "warn"
		}
	}

	logger = common.InitLogger(config)

	crashDir := "./logs"
	if logFile := common.GetLogFilePath(logger); logFile != "" {
		crashDir = filepath.Dir(logFile)
	}
	common.InstallCrashHandler(crashDir)
	return nil
}

func main() {
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error().Err(err).Msg("Command failed")
		} else {
			os.Stderr.WriteString(err.Error() + "\n")
		}
		os.Exit(1)
	}
}

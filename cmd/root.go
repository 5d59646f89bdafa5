// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"archiver/internal/config"
	"archiver/internal/logger"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagOutput   string
	flagKeys     string
	flagNoEnrich bool
	flagJSON     bool
	flagDebug    bool
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var cfg *config.Config

var log = logger.Get("CLI")

var rootCmd = &cobra.Command{
	Use:   "archiver [url...]",
	Short: "Archive social media posts to local files",
	Long: `Archiver downloads the media behind social media URLs, records each run
in a local database and attaches file metadata read with exiftool.
TikTok URLs are fetched through the tikwm API, everything else through yt-dlp.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              archiveRun,
	SilenceUsage:      true,
}

// Execute runs the root command. Interrupts cancel the running archive.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output results as JSON")

	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Directory to store downloaded media")
	rootCmd.Flags().StringVarP(&flagKeys, "keys", "k", "", "Comma separated metadata groups to keep (empty keeps all)")
	rootCmd.Flags().BoolVar(&flagNoEnrich, "no-enrich", false, "Skip exiftool metadata extraction")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < env < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagOutput != "" {
		cfg.DownloadDir = flagOutput
	}
	if cmd.Flags().Changed("keys") {
		cfg.MetadataKeys = splitKeys(flagKeys)
	}
	if flagNoEnrich {
		cfg.Enrich = false
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Debug {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.INFO)
	}

	return nil
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

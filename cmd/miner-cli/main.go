package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"videominer/internal/app"
	"videominer/internal/config"
	"videominer/internal/logging"
)

var (
	configFile string
	logLevel   string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:           "miner-cli",
	Short:         "Find product videos and extract media from product pages",
	Long:          `Mines short-form videos for a product link, extracts Shopee and Sora media, runs video generation and downloads media to a local job directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (defaults to $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Base directory for download jobs")

	rootCmd.AddCommand(mineCmd, shopeeProductCmd, shopeeVideoCmd, soraCmd, generateCmd, downloadCmd)
}

// setup loads configuration and wires the app. The returned context is
// cancelled on SIGINT or SIGTERM.
func setup() (context.Context, *app.App, zerolog.Logger, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, zerolog.Nop(), nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	// Logs go to stderr so stdout stays machine readable.
	logger := logging.New(os.Stderr, cfg.Log.Level, "pretty")

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Warn().Msg("received interrupt signal, cancelling")
			cancel()
		case <-ctx.Done():
		}
	}()

	a := app.New(ctx, cfg, logger)
	cleanup := func() {
		signal.Stop(sigChan)
		cancel()
		_ = a.Close()
	}
	return ctx, a, logger, cleanup, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func main() {
	// It's okay if .env doesn't exist, environment variables might be set manually.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// TTC Price Export - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ttcexport)
//   ├── exportCmd  (ttcexport export)
//   ├── convertCmd (ttcexport convert)
//   ├── lookupCmd  (ttcexport lookup)
//   ├── loadCmd    (ttcexport load)
//   └── versionCmd (ttcexport version)
//
// CONFIGURATION:
//   Settings come from, in increasing priority:
//   1. Built-in defaults
//   2. The YAML file named by --config
//   3. TTC_* environment variables, optionally loaded from --env-file
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ttc-tools/ttc-price-export/internal/config"
	"github.com/ttc-tools/ttc-price-export/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to an optional .env file.
var envFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ttcexport",
	Short: "TTC Price Export - Convert Tamriel Trade Centre price tables to CSV",
	Long: `TTC Price Export downloads the Tamriel Trade Centre price tables, converts
the Lua data files they contain into flat CSV files and publishes them into
dated and "latest" folders.

Key Features:
  - Regions exported concurrently with retrying downloads
  - Tolerant Lua table reader (comments, trailing commas, bare keys)
  - Optional XLSX and JSON output and MySQL price history

Example Usage:
  ttcexport export                          # Export every configured region
  ttcexport export --region NA --dry-run    # Check the NA table without writing
  ttcexport convert PriceTableNA.lua --out ./csv
  ttcexport lookup ItemLookUpTable_EN.lua --out lookup.csv`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels in-flight downloads.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (defaults apply when it does not exist)",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to a .env file with TTC_* variables",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// loadEnvironment loads the .env file and the configuration, then builds
// the logger every command shares.
func loadEnvironment() (*config.Config, *logger.ZapLogger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, known := logger.New(os.Stderr, cfg.LogLevel, verbose)
	if !known {
		log.Warn("Unknown log level %q, using info", cfg.LogLevel)
	}
	return cfg, log, nil
}

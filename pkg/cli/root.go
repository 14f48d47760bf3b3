package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/netmock/pkg/config"
	"github.com/getmockd/netmock/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	jsonOutput bool
	logLevel   string
	logFormat  string
	logFile    string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// logger is configured by the root command before any subcommand runs.
var (
	logger    = logging.Nop()
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "netmock",
	Short: "netmock records and replays HTTP traffic",
	Long: `netmock records real HTTP interactions into HAR archives and replays them,
so tests and local runs do not depend on live services.

Archives are written by the Go library (package vcr) or by the recording
proxy, and can be inspected and pruned from here. Settings come from flags,
MOCKS_* environment variables, a .env file and netmock.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		file, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		logger, logCloser = logging.Open(logConfig(cmd, file.Log))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		return logCloser.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// logConfig applies the log flags over the config file's log section.
func logConfig(cmd *cobra.Command, fromFile config.LogConfig) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Output = cmd.ErrOrStderr()

	level, format, file := fromFile.Level, fromFile.Format, fromFile.File
	flags := cmd.Flags()
	if flags.Changed("log-level") || level == "" {
		level = logLevel
	}
	if flags.Changed("log-format") || format == "" {
		format = logFormat
	}
	if flags.Changed("log-file") || file == "" {
		file = logFile
	}

	cfg.Level = logging.ParseLevel(level)
	cfg.Format = logging.ParseFormat(format)
	cfg.File = file
	return cfg
}

func currentLogger() *slog.Logger {
	return logging.OrNop(logger)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./"+config.DefaultFileName+" if present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file, rotated by size")
}

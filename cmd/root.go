package cmd

import (
	"context"
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/sheetscope-cli/internal/config"
	"github.com/KaramelBytes/sheetscope-cli/internal/logging"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	cfg     *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "sheetscope",
	Short: "SheetScope - explore spreadsheets from the terminal or over HTTP",
	Long:  "SheetScope loads CSV, TSV, XLSX and XLS files, cleans and classifies their columns, and reports summaries, filtered views and exports.",
}

// Execute runs the root command.
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ~/.sheetscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "⚠ Warning: failed to load config:", err)
		return
	}
	cfg = c
}

// currentConfig returns the loaded config, loading it on first use so
// commands also work when Execute was bypassed (tests).
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	if cfg == nil {
		cfg = &cfgpkg.Global{}
	}
	return cfg
}

func newLogger(format string) zerolog.Logger {
	c := currentConfig()
	level := c.LogLevel
	if debug {
		level = "debug"
	}
	if format == "" {
		format = c.LogFormat
	}
	return logging.New(logging.Options{Level: level, Format: format})
}

// commandContext carries the CLI logger to the session.
func commandContext(cmd *cobra.Command) context.Context {
	return withLogger(cmd, newLogger(""))
}

func withLogger(cmd *cobra.Command, logger zerolog.Logger) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx)
}

// pipelineOptions maps the config onto every pipeline stage. Zero config
// values keep the stage defaults.
func pipelineOptions(c *cfgpkg.Global) session.Options {
	opt := session.DefaultOptions()
	if r := cfgpkg.Rune(c.DecimalSeparator); r != 0 {
		opt.Ingest.DecimalSeparator = r
	}
	if r := cfgpkg.Rune(c.ThousandsSeparator); r != 0 {
		opt.Ingest.ThousandsSeparator = r
	}
	if len(c.NullTokens) > 0 {
		opt.Ingest.NullTokens = c.NullTokens
	}
	if c.MaxUploadMB > 0 {
		opt.Ingest.MaxBytes = int64(c.MaxUploadMB) << 20
	}
	if c.CategoricalMaxDistinct > 0 {
		opt.Clean.MaxDistinct = c.CategoricalMaxDistinct
	}
	if c.CategoricalMaxRatio > 0 {
		opt.Clean.MaxDistinctRatio = c.CategoricalMaxRatio
	}
	if len(c.DateKeywords) > 0 {
		opt.Classify.DateKeywords = c.DateKeywords
	}
	if c.NumericStatsLimit > 0 {
		opt.Summary.NumericLimit = c.NumericStatsLimit
	}
	return opt
}

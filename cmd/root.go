package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/tabstat/internal/config"
	"github.com/KaramelBytes/tabstat/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	logFormat   string
	parallelism int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "tabstat",
	Short: "tabstat: descriptive statistics and analysis for tabular data",
	Long: `tabstat loads CSV, TSV and XLSX files and computes descriptive statistics,
correlations, outliers, trends and group-by aggregates, rendered as Markdown,
JSON or YAML and optionally saved as reports.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabstat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().IntVar(&parallelism, "parallelism", 0, "max concurrent column workers (overrides config, 0 = GOMAXPROCS)")
}

// setup loads configuration and installs the logger on the command context.
func setup(cmd *cobra.Command, args []string) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	// Apply CLI overrides if provided
	f := cmd.Root().PersistentFlags()
	if f.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if f.Changed("parallelism") && parallelism >= 0 {
		cfg.Parallelism = parallelism
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if debug {
		level = slog.LevelDebug
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level, cfg.LogFormat)
	if err != nil {
		return err
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	logger.Debug("config loaded", "file", cfgFile, "reports_dir", cfg.ReportsDir, "parallelism", cfg.Parallelism)
	return nil
}

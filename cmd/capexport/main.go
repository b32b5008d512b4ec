package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/IshaanNene/capexport/internal/config"
)

var (
	cfgFile     string
	verbose     bool
	outputDir   string
	outputType  string
	concurrent  int
	strategy    string
	cacheDir    string
	noCache     bool
	maxPages    int
	maxRetries  int
	delay       string
	baseURL     string
	respectBots bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "capexport",
		Short: "capexport exports a cap catalog as storefront import files",
		Long: `capexport walks a catalog site organized as collections, teams and product
pages, extracts every product and writes one import row per product in the
storefront's bulk-import CSV layout.

Products that share a display name get a distinguishing suffix, either a
Roman numeral (counting) or the words that set their description apart
(content_diff).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(collectionCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

// addExportFlags registers the flags shared by every exporting command.
func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the export files")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "comma-separated sinks: csv, jsonl, mongo, postgres")
	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "number of concurrent product fetches (0 = config default of 64)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "name disambiguation: counting or content_diff")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory for cached product pages")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the product page cache")
	cmd.Flags().IntVar(&maxPages, "max-pages", -1, "stop a listing walk after this many pages (0 = until an empty page)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "max retries per failed request (-1 = use config default of 3)")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between requests per host")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "catalog site root")
	cmd.Flags().BoolVar(&respectBots, "respect-robots", false, "honor robots.txt")
}

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [output-dir]",
		Short: "Export every configured category and collection",
		Long: `Export every category and collection listed in the catalog section of the
config, one file per entry. A failing entry is logged and the remaining
entries still run; the command exits non-zero if any entry failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				outputDir = args[0]
			}
			cfg, logger, err := prepare()
			if err != nil {
				return err
			}
			return runExports(cmd.Context(), cfg, logger, catalogJobs(cfg))
		},
	}
	addExportFlags(cmd)
	return cmd
}

// categoryCmd creates the "category" subcommand.
func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category <label> <directory-page>",
		Short:   "Export one category",
		Long:    "Export every team listed on the category's directory page (<base-url>/pages/<directory-page>) into <label>.csv.",
		Example: "  capexport category NHL nhl-teams -o ./out",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare()
			if err != nil {
				return err
			}
			return runExports(cmd.Context(), cfg, logger, []job{{kind: jobCategory, name: args[0], page: args[1]}})
		},
	}
	addExportFlags(cmd)
	return cmd
}

// collectionCmd creates the "collection" subcommand.
func collectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection <name>",
		Short:   "Export one collection",
		Example: "  capexport collection dad-hats -o ./out",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare()
			if err != nil {
				return err
			}
			return runExports(cmd.Context(), cfg, logger, []job{{kind: jobCollection, name: args[0]}})
		},
	}
	addExportFlags(cmd)
	return cmd
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "capexport %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

// prepare loads, overrides and validates the config and builds the logger.
func prepare() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if err := applyCLIOverrides(cfg); err != nil {
		return nil, nil, err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := config.ValidateURL(cfg.Site.BaseURL); err != nil {
		return nil, nil, fmt.Errorf("invalid site.base_url: %w", err)
	}

	return cfg, setupLogger(cfg.Logging), nil
}

// setupLogger creates a structured logger.
func setupLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) error {
	if outputDir != "" {
		cfg.Storage.OutputDir = outputDir
	}
	if outputType != "" {
		var sinks []string
		for _, t := range strings.Split(outputType, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				sinks = append(sinks, t)
			}
		}
		cfg.Storage.Types = sinks
	}
	if concurrent > 0 {
		cfg.Engine.Concurrency = concurrent
	}
	if strategy != "" {
		cfg.Identity.Strategy = strategy
	}
	if cacheDir != "" {
		cfg.Fetcher.CacheDir = cacheDir
	}
	if noCache {
		cfg.Fetcher.CacheDir = ""
	}
	if maxPages >= 0 {
		cfg.Engine.MaxPages = maxPages
	}
	if maxRetries >= 0 {
		cfg.Engine.MaxRetries = maxRetries
	}
	if delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return fmt.Errorf("invalid --delay %q: %w", delay, err)
		}
		cfg.Engine.PolitenessDelay = d
	}
	if baseURL != "" {
		cfg.Site.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if respectBots {
		cfg.Engine.RespectRobotsTxt = true
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/news-alert-agent/internal/config"
	"github.com/news-alert-agent/internal/dispatch"
	"github.com/news-alert-agent/internal/engine"
	"github.com/news-alert-agent/internal/importer"
	"github.com/news-alert-agent/internal/netdiag"
	"github.com/news-alert-agent/internal/selector"
	"github.com/news-alert-agent/internal/source"
	"github.com/news-alert-agent/internal/storage/csvfile"
	"github.com/news-alert-agent/pkg/logger"
	"github.com/news-alert-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "news-alert",
		Short: "Company news alerting pipeline",
		Long: `Correlates news feed articles against a company roster and trigger
keyword lists, producing deduplicated alerts over flat CSV tables.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(probeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	return nil
}

// buildEngine wires the stores, feed registry and dispatcher for one run.
// Backtest runs write to the separate backtest table tagged with a run type.
func buildEngine(backtest bool) *engine.Engine {
	roster := csvfile.RosterStore{
		CompaniesPath: cfg.Paths.CompaniesCSV,
		TriggersPath:  cfg.Paths.TriggersCSV,
		ProvidersPath: cfg.Paths.ProvidersCSV,
	}

	alerts := csvfile.AlertStore{
		AlertsPath:     cfg.Paths.AlertsCSV,
		CandidatesPath: cfg.Paths.AlertCandidatesCSV,
	}
	if backtest {
		alerts.AlertsPath = cfg.Paths.BacktestOutputCSV
		alerts.RunType = "backtest"
	}

	limiter := ratelimit.NewDefaultLimiter()
	registry := source.NewRegistry(source.Config{
		ArticlesPath: cfg.Paths.ArticlesCSV,
		Selection: selector.Selector{
			Cap:          cfg.Selection.Cap,
			Mode:         selector.ParseMode(cfg.Selection.Mode),
			Seed:         cfg.Selection.Seed,
			UniverseSize: cfg.Selection.UniverseSize,
			PointerPath:  cfg.Paths.RotationState,
		},
		Diagnostics: cfg.Diagnostics.RSS,
	}, limiter, log)

	sink := dispatch.New(dispatch.Config{
		Enabled:         cfg.Alerts.Enabled,
		Channel:         cfg.Alerts.Channel,
		SlackWebhookURL: cfg.Alerts.SlackWebhookURL,
	}, log)

	return engine.New(cfg, roster, alerts, registry, sink, log)
}

func printRunResult(result *engine.RunResult) {
	fmt.Printf("\n=== Run Results ===\n")
	fmt.Printf("Providers:      %d\n", result.ProvidersProcessed)
	fmt.Printf("Items Fetched:  %d\n", result.ItemsFetched)
	fmt.Printf("Candidates:     %d\n", result.CandidateRows)
	fmt.Printf("New Alerts:     %d\n", result.AlertsGenerated)
	fmt.Printf("Dedupe Skipped: %d\n", result.DedupeSkipped)
	fmt.Printf("Sent:           %d\n", result.Sent)
	fmt.Printf("Duration:       %s\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}

// ============ RUN COMMAND ============

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the correlation pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg.Backtest.Enabled = false
			result, err := buildEngine(false).Run(ctx)
			if err != nil {
				return err
			}

			printRunResult(result)
			return nil
		},
	}
}

// ============ BACKTEST COMMAND ============

func backtestCmd() *cobra.Command {
	var companyIDs string
	var lookbackDays int

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the pipeline against historical snapshots for selected companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg.Backtest.Enabled = true
			if companyIDs != "" {
				cfg.Backtest.CompanyIDs = companyIDs
			}
			if lookbackDays > 0 {
				cfg.Backtest.LookbackDays = lookbackDays
			}

			result, err := buildEngine(true).Run(ctx)
			if err != nil {
				return err
			}

			printRunResult(result)
			fmt.Printf("\nBacktest output: %s\n", cfg.Paths.BacktestOutputCSV)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyIDs, "company-ids", "", "Comma-separated company id allow-list")
	cmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "Historical window in days (default from config)")
	return cmd
}

// ============ IMPORT COMMAND ============

func importCmd() *cobra.Command {
	var inputPath string
	var outputPath string
	var reportPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an Orbis company export into the roster CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if outputPath == "" {
				outputPath = cfg.Paths.CompaniesCSV
			}
			if reportPath == "" {
				reportPath = "data/import_dropped.csv"
			}

			summary, err := importer.New(inputPath, outputPath, reportPath, log).Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Import Results ===\n")
			fmt.Printf("Rows In:         %d\n", summary.RowsIn)
			fmt.Printf("Rows Written:    %d\n", summary.RowsWritten)
			fmt.Printf("Rows Dropped:    %d\n", summary.RowsDropped)
			fmt.Printf("Missing Website: %d\n", summary.MissingWebsite)
			fmt.Printf("Missing Revenue: %d\n", summary.MissingRevenue)
			fmt.Printf("\nRoster: %s\nReport: %s\n", outputPath, reportPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Orbis export xlsx file (required)")
	cmd.Flags().StringVar(&outputPath, "out", "", "Roster CSV destination (default from config)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Dropped-rows report CSV")
	cmd.MarkFlagRequired("in")

	return cmd
}

// ============ PROBE COMMAND ============

func probeCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run a DNS/TCP/TLS preflight against a feed host",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			result := netdiag.Preflight(ctx, host)
			fmt.Println(result.Format(host))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "news.google.com", "Host to probe")
	return cmd
}

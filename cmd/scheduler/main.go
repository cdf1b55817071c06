package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/news-alert-agent/internal/config"
	"github.com/news-alert-agent/internal/dispatch"
	"github.com/news-alert-agent/internal/engine"
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
		Use:   "news-alert-scheduler",
		Short: "Background scheduler for the news alerting pipeline",
		Long: `Runs the correlation pipeline on a cron schedule.
This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
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

	log.Info().Msg("Starting news alert scheduler")

	// Start health check server
	go startHealthServer()

	pipeline := buildEngine()

	// Create cron scheduler
	c := cron.New(cron.WithLogger(cronLogger{log}))

	_, err = c.AddFunc(cfg.Scheduler.RunCron, func() {
		ctx := context.Background()
		log.Info().Msg("Running scheduled pipeline pass")

		result, err := pipeline.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled run failed")
			return
		}

		log.Info().
			Int("items", result.ItemsFetched).
			Int("alerts", result.AlertsGenerated).
			Int("sent", result.Sent).
			Msg("Scheduled run completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pipeline job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.RunCron).Msg("Pipeline job scheduled")

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	c.Stop()

	return nil
}

func buildEngine() *engine.Engine {
	roster := csvfile.RosterStore{
		CompaniesPath: cfg.Paths.CompaniesCSV,
		TriggersPath:  cfg.Paths.TriggersCSV,
		ProvidersPath: cfg.Paths.ProvidersCSV,
	}
	alerts := csvfile.AlertStore{
		AlertsPath:     cfg.Paths.AlertsCSV,
		CandidatesPath: cfg.Paths.AlertCandidatesCSV,
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

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer() {
	addr := cfg.Scheduler.HealthAddr
	if addr == "" {
		addr = ":8080"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("News Alert Scheduler"))
	})

	log.Info().Str("addr", addr).Msg("Health check server starting")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}

package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Paths       PathsConfig       `mapstructure:"paths"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Backtest    BacktestConfig    `mapstructure:"backtest"`
	Selection   SelectionConfig   `mapstructure:"selection"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

// PathsConfig holds every flat-file location the pipeline touches
type PathsConfig struct {
	CompaniesCSV       string `mapstructure:"companies_csv"`
	TriggersCSV        string `mapstructure:"triggers_csv"`
	ProvidersCSV       string `mapstructure:"providers_csv"`
	ArticlesCSV        string `mapstructure:"articles_csv"`
	AlertCandidatesCSV string `mapstructure:"alert_candidates_csv"`
	AlertsCSV          string `mapstructure:"alerts_csv"`
	BacktestOutputCSV  string `mapstructure:"backtest_output_csv"`
	RotationState      string `mapstructure:"rotation_state"`
}

// AlertsConfig holds dispatch settings
type AlertsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Channel         string `mapstructure:"channel"`
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
}

// BacktestConfig holds restricted-run settings
type BacktestConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LookbackDays int    `mapstructure:"lookback_days"`
	CompanyIDs   string `mapstructure:"company_ids"`
}

// SelectionConfig controls which companies are queried against
// rate-limited per-company feeds each run
type SelectionConfig struct {
	Cap          int    `mapstructure:"cap"`
	Mode         string `mapstructure:"mode"` // top_revenue, random, rolling, pointer
	Seed         string `mapstructure:"seed"`
	UniverseSize int    `mapstructure:"universe_size"`
}

// DiagnosticsConfig toggles network preflight probing
type DiagnosticsConfig struct {
	RSS bool `mapstructure:"rss"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// SchedulerConfig holds scheduler daemon settings
type SchedulerConfig struct {
	RunCron    string `mapstructure:"run_cron"`
	HealthAddr string `mapstructure:"health_addr"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.AutomaticEnv()

	// Environment names kept compatible with historical deployments.
	v.BindEnv("paths.companies_csv", "COMPANIES_CSV")
	v.BindEnv("paths.triggers_csv", "TRIGGERS_CSV")
	v.BindEnv("paths.providers_csv", "PROVIDERS_CSV")
	v.BindEnv("paths.articles_csv", "ARTICLES_CSV")
	v.BindEnv("paths.alert_candidates_csv", "ALERT_CANDIDATES_CSV")
	v.BindEnv("paths.alerts_csv", "ALERTS_CSV")
	v.BindEnv("paths.backtest_output_csv", "BACKTEST_OUTPUT_CSV")
	v.BindEnv("paths.rotation_state", "GN_ROTATION_STATE_PATH")
	v.BindEnv("alerts.enabled", "ALERTS_ENABLED")
	v.BindEnv("alerts.channel", "ALERT_CHANNEL")
	v.BindEnv("alerts.slack_webhook_url", "SLACK_WEBHOOK_URL")
	v.BindEnv("backtest.enabled", "BACKTEST_ENABLED")
	v.BindEnv("backtest.lookback_days", "BACKTEST_LOOKBACK_DAYS")
	v.BindEnv("backtest.company_ids", "BACKTEST_COMPANY_IDS")
	v.BindEnv("selection.cap", "GN_COMPANY_FEEDS_CAP")
	v.BindEnv("selection.mode", "GN_COMPANY_FEEDS_MODE")
	v.BindEnv("selection.seed", "GN_COMPANY_FEEDS_SEED")
	v.BindEnv("selection.universe_size", "GN_COMPANY_UNIVERSE_SIZE")
	v.BindEnv("diagnostics.rss", "RSS_DIAGNOSTICS")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.companies_csv", "data/companies.csv")
	v.SetDefault("paths.triggers_csv", "data/triggers.csv")
	v.SetDefault("paths.providers_csv", "data/providers.csv")
	v.SetDefault("paths.articles_csv", "data/articles.csv")
	v.SetDefault("paths.alert_candidates_csv", "data/alert_candidates.csv")
	v.SetDefault("paths.alerts_csv", "data/alerts.csv")
	v.SetDefault("paths.backtest_output_csv", "data/alerts_backtest.csv")
	v.SetDefault("paths.rotation_state", "data/gn_rotation_state.json")

	v.SetDefault("alerts.enabled", false)
	v.SetDefault("alerts.channel", "console")
	v.SetDefault("alerts.slack_webhook_url", "")

	v.SetDefault("backtest.enabled", false)
	v.SetDefault("backtest.lookback_days", 14)
	v.SetDefault("backtest.company_ids", "")

	v.SetDefault("selection.cap", 50)
	v.SetDefault("selection.mode", "top_revenue")
	v.SetDefault("selection.seed", "")
	v.SetDefault("selection.universe_size", 0)

	v.SetDefault("diagnostics.rss", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("scheduler.run_cron", "0 7 * * *") // 7am daily
	v.SetDefault("scheduler.health_addr", ":8080")
}

// Validate reports fatal configuration errors. It runs before any I/O; a
// failure here aborts the run.
func (c *Config) Validate() error {
	if c.Alerts.Enabled && c.Alerts.Channel == "slack" && c.Alerts.SlackWebhookURL == "" {
		return fmt.Errorf("alerts enabled with channel slack but slack_webhook_url is empty")
	}
	if c.Selection.Cap < 0 {
		return fmt.Errorf("selection.cap must not be negative")
	}
	return nil
}

package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	OpenFDA    OpenFDAConfig    `yaml:"openfda" mapstructure:"openfda"`
	RxNorm     RxNormConfig     `yaml:"rxnorm" mapstructure:"rxnorm"`
	DailyMed   DailyMedConfig   `yaml:"dailymed" mapstructure:"dailymed"`
	CTGov      CTGovConfig      `yaml:"ctgov" mapstructure:"ctgov"`
	PubMed     PubMedConfig     `yaml:"pubmed" mapstructure:"pubmed"`
	WebRef     WebRefConfig     `yaml:"webref" mapstructure:"webref"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTL    string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// CacheTTLDuration parses the cache TTL, falling back to 7 days.
func (s StoreConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(s.CacheTTL)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// OpenFDAConfig holds api.fda.gov settings. One key and rate budget is
// shared across the NDC, label, event, and enforcement endpoints.
type OpenFDAConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// RxNormConfig holds RxNav/RxNorm API settings.
type RxNormConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DailyMedConfig holds DailyMed SPL API settings.
type DailyMedConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CTGovConfig holds ClinicalTrials.gov API settings.
type CTGovConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PubMedConfig holds NCBI E-utilities settings.
type PubMedConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// WebRefConfig holds the generic web lookup settings.
type WebRefConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EngineConfig configures reconciliation behavior.
type EngineConfig struct {
	// WeightsFile optionally points to a YAML file overriding the
	// cross-reference scoring weights.
	WeightsFile string `yaml:"weights_file" mapstructure:"weights_file"`
	// RequestTimeoutSecs bounds a whole verification request.
	RequestTimeoutSecs int `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures provider health checks and alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinRunsForAlert      int     `yaml:"min_runs_for_alert" mapstructure:"min_runs_for_alert"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "verify.db")
	v.SetDefault("store.cache_ttl", "168h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("openfda.base_url", "https://api.fda.gov")
	v.SetDefault("openfda.timeout_secs", 15)
	v.SetDefault("openfda.rate_per_minute", 240)
	v.SetDefault("rxnorm.base_url", "https://rxnav.nlm.nih.gov/REST")
	v.SetDefault("rxnorm.timeout_secs", 10)
	v.SetDefault("dailymed.base_url", "https://dailymed.nlm.nih.gov/dailymed/services/v2")
	v.SetDefault("dailymed.timeout_secs", 15)
	v.SetDefault("ctgov.base_url", "https://clinicaltrials.gov/api/v2")
	v.SetDefault("ctgov.timeout_secs", 20)
	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.timeout_secs", 20)
	v.SetDefault("webref.base_url", "https://en.wikipedia.org/api/rest_v1")
	v.SetDefault("webref.timeout_secs", 10)
	v.SetDefault("engine.request_timeout_secs", 45)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_runs_for_alert", 10)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_hours", 24)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

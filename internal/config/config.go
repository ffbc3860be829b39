package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Narrative  NarrativeConfig  `yaml:"narrative" mapstructure:"narrative"`
	Policy     PolicyConfig     `yaml:"policy" mapstructure:"policy"`
	Intel      IntelConfig      `yaml:"intel" mapstructure:"intel"`
	Alerts     AlertsConfig     `yaml:"alerts" mapstructure:"alerts"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings (primary narrative provider).
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings (secondary narrative provider).
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// NarrativeConfig tunes narrative generator invocation behavior.
type NarrativeConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// PolicyConfig carries every tunable of the debate and risk-scoring
// policy. Defaults match the values the compliance team signed off on;
// changing them changes verdicts, so they are config rather than code.
type PolicyConfig struct {
	// Risk formula: combined = graph*GraphWeight + semantic*SemanticWeight + drift*DriftWeight.
	GraphWeight    float64 `yaml:"graph_weight" mapstructure:"graph_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" mapstructure:"semantic_weight"`
	DriftWeight    float64 `yaml:"drift_weight" mapstructure:"drift_weight"`

	CriticalThreshold float64 `yaml:"critical_threshold" mapstructure:"critical_threshold"`
	HighThreshold     float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold   float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`

	// Prosecutor risk floors, applied via max-ratchet per triggering tool result.
	FloorHiddenLink   float64 `yaml:"floor_hidden_link" mapstructure:"floor_hidden_link"`
	FloorFraudRing    float64 `yaml:"floor_fraud_ring" mapstructure:"floor_fraud_ring"`
	FloorLayering     float64 `yaml:"floor_layering" mapstructure:"floor_layering"`
	FloorDrift        float64 `yaml:"floor_drift" mapstructure:"floor_drift"`
	FloorRiskFlags    float64 `yaml:"floor_risk_flags" mapstructure:"floor_risk_flags"`
	FloorPriorHistory float64 `yaml:"floor_prior_history" mapstructure:"floor_prior_history"`

	// Skeptic risk reductions per exculpatory tool result.
	ReductionAlibi        float64 `yaml:"reduction_alibi" mapstructure:"reduction_alibi"`
	ReductionPaymentAuth  float64 `yaml:"reduction_payment_auth" mapstructure:"reduction_payment_auth"`
	ReductionCleanProfile float64 `yaml:"reduction_clean_profile" mapstructure:"reduction_clean_profile"`
	ReductionPeerNorms    float64 `yaml:"reduction_peer_norms" mapstructure:"reduction_peer_norms"`
	ReductionCleanMedia   float64 `yaml:"reduction_clean_media" mapstructure:"reduction_clean_media"`
	// PenaltyAdverseMedia is subtracted from the reduction (risk goes UP)
	// when the media scan comes back negative. The skeptic reports
	// unfavorable findings rather than suppressing them.
	PenaltyAdverseMedia float64 `yaml:"penalty_adverse_media" mapstructure:"penalty_adverse_media"`

	// Debate loop bounds.
	MaxRounds           int     `yaml:"max_rounds" mapstructure:"max_rounds"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// IntelConfig configures the evidence services.
type IntelConfig struct {
	FixturePath      string  `yaml:"fixture_path" mapstructure:"fixture_path"`
	MaxHops          int     `yaml:"max_hops" mapstructure:"max_hops"`
	RelevanceCutoff  float64 `yaml:"relevance_cutoff" mapstructure:"relevance_cutoff"`
	ProfileCacheSize int     `yaml:"profile_cache_size" mapstructure:"profile_cache_size"`
}

// AlertsConfig configures the transaction monitoring rules.
type AlertsConfig struct {
	VelocityWindowHours  int     `yaml:"velocity_window_hours" mapstructure:"velocity_window_hours"`
	VelocityMaxCount     int     `yaml:"velocity_max_count" mapstructure:"velocity_max_count"`
	VelocityMaxAmount    float64 `yaml:"velocity_max_amount" mapstructure:"velocity_max_amount"`
	StructuringThreshold float64 `yaml:"structuring_threshold" mapstructure:"structuring_threshold"`
	StructuringMarginPct float64 `yaml:"structuring_margin_percent" mapstructure:"structuring_margin_percent"`
	HighValueThreshold   float64 `yaml:"high_value_threshold" mapstructure:"high_value_threshold"`
	RoundAmountTolerance float64 `yaml:"round_amount_tolerance" mapstructure:"round_amount_tolerance"`
}

// BatchConfig configures concurrent batch investigations.
type BatchConfig struct {
	MaxConcurrentInvestigations int `yaml:"max_concurrent_investigations" mapstructure:"max_concurrent_investigations"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("TRIBUNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "tribunal.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_investigations", 4)

	// Empty defaults register the key names with viper so AutomaticEnv
	// can populate them during Unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("narrative.timeout_secs", 120)
	v.SetDefault("narrative.max_tokens", 8192)
	v.SetDefault("narrative.requests_per_minute", 30)

	v.SetDefault("policy.graph_weight", 0.5)
	v.SetDefault("policy.semantic_weight", 0.3)
	v.SetDefault("policy.drift_weight", 0.2)
	v.SetDefault("policy.critical_threshold", 0.85)
	v.SetDefault("policy.high_threshold", 0.65)
	v.SetDefault("policy.medium_threshold", 0.40)
	v.SetDefault("policy.floor_hidden_link", 0.85)
	v.SetDefault("policy.floor_fraud_ring", 0.90)
	v.SetDefault("policy.floor_layering", 0.85)
	v.SetDefault("policy.floor_drift", 0.70)
	v.SetDefault("policy.floor_risk_flags", 0.70)
	v.SetDefault("policy.floor_prior_history", 0.80)
	v.SetDefault("policy.reduction_alibi", 0.20)
	v.SetDefault("policy.reduction_payment_auth", 0.30)
	v.SetDefault("policy.reduction_clean_profile", 0.10)
	v.SetDefault("policy.reduction_peer_norms", 0.15)
	v.SetDefault("policy.reduction_clean_media", 0.10)
	v.SetDefault("policy.penalty_adverse_media", 0.10)
	v.SetDefault("policy.max_rounds", 3)
	v.SetDefault("policy.confidence_threshold", 0.80)

	v.SetDefault("intel.fixture_path", "testdata/intel.yaml")
	v.SetDefault("intel.max_hops", 3)
	v.SetDefault("intel.relevance_cutoff", 0.7)
	v.SetDefault("intel.profile_cache_size", 256)

	v.SetDefault("alerts.velocity_window_hours", 24)
	v.SetDefault("alerts.velocity_max_count", 10)
	v.SetDefault("alerts.velocity_max_amount", 50000)
	v.SetDefault("alerts.structuring_threshold", 10000)
	v.SetDefault("alerts.structuring_margin_percent", 15)
	v.SetDefault("alerts.high_value_threshold", 25000)
	v.SetDefault("alerts.round_amount_tolerance", 100)

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

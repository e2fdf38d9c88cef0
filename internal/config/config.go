package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Risk     RiskConfig     `yaml:"risk" json:"risk"`
	LogLevel string         `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DatabaseConfig represents PostgreSQL connection configuration
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// AuthConfig represents wallet-auth and JWT configuration
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" json:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" json:"token_ttl" mapstructure:"token_ttl"`
	NonceTTL  time.Duration `yaml:"nonce_ttl" json:"nonce_ttl" mapstructure:"nonce_ttl"`
}

// RiskConfig represents the risk engine configuration.
// The scoring thresholds default to the values the scoring engine was
// calibrated with; they are configurable, not domain-validated constants.
type RiskConfig struct {
	StalenessWindow       time.Duration `yaml:"staleness_window" json:"staleness_window" mapstructure:"staleness_window"`
	SweepInterval         time.Duration `yaml:"sweep_interval" json:"sweep_interval" mapstructure:"sweep_interval"`
	RecomputeTimeout      time.Duration `yaml:"recompute_timeout" json:"recompute_timeout" mapstructure:"recompute_timeout"`
	HistoryDays           int           `yaml:"history_days" json:"history_days" mapstructure:"history_days"`
	VolatilityCeilingPct  float64       `yaml:"volatility_ceiling_pct" json:"volatility_ceiling_pct" mapstructure:"volatility_ceiling_pct"`
	LiquidityAmplePct     float64       `yaml:"liquidity_ample_pct" json:"liquidity_ample_pct" mapstructure:"liquidity_ample_pct"`
	LiquidityThinPct      float64       `yaml:"liquidity_thin_pct" json:"liquidity_thin_pct" mapstructure:"liquidity_thin_pct"`
	NeutralSafetyScore    float64       `yaml:"neutral_safety_score" json:"neutral_safety_score" mapstructure:"neutral_safety_score"`
	NeutralSentimentScore float64       `yaml:"neutral_sentiment_score" json:"neutral_sentiment_score" mapstructure:"neutral_sentiment_score"`
}

// LoadConfig loads configuration from config.yaml (optional) and environment
// variables. Environment variables use underscore-joined upper-case keys, e.g.
// DATABASE_DSN, SERVER_PORT, AUTH_JWT_SECRET; DATABASE_URL, PORT and
// JWT_SECRET are accepted as short aliases.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 30*time.Minute)
	v.SetDefault("auth.nonce_ttl", 5*time.Minute)

	v.SetDefault("risk.staleness_window", 5*time.Minute)
	v.SetDefault("risk.sweep_interval", 5*time.Minute)
	v.SetDefault("risk.recompute_timeout", 10*time.Second)
	v.SetDefault("risk.history_days", 30)
	v.SetDefault("risk.volatility_ceiling_pct", 50.0)
	v.SetDefault("risk.liquidity_ample_pct", 20.0)
	v.SetDefault("risk.liquidity_thin_pct", 1.0)
	v.SetDefault("risk.neutral_safety_score", 50.0)
	v.SetDefault("risk.neutral_sentiment_score", 50.0)

	v.SetDefault("log_level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short env aliases kept from the original deployment
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	// Optional config file alongside the binary
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Risk.LiquidityThinPct >= cfg.Risk.LiquidityAmplePct {
		return nil, fmt.Errorf("liquidity_thin_pct (%v) must be below liquidity_ample_pct (%v)",
			cfg.Risk.LiquidityThinPct, cfg.Risk.LiquidityAmplePct)
	}
	if cfg.Risk.VolatilityCeilingPct <= 0 {
		return nil, fmt.Errorf("volatility_ceiling_pct must be positive")
	}

	return &cfg, nil
}

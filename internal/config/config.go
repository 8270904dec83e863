package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config represents the application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Analytics   AnalyticsConfig  `mapstructure:"analytics"`
	Retention   RetentionConfig  `mapstructure:"retention"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
	Audit       AuditConfig      `mapstructure:"audit"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	PoolSize       int    `mapstructure:"pool_size"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig contains Redis configuration for the dashboard cache
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`
}

// AnalyticsConfig groups the tunable parameters of the analytics engines.
// The defaults mirror the documented operational baselines; deployments
// override them per environment, not per request.
type AnalyticsConfig struct {
	WaitTime WaitTimeConfig `mapstructure:"wait_time"`
	ABC      ABCConfig      `mapstructure:"abc"`
	SPC      SPCConfig      `mapstructure:"spc"`
}

// WaitTimeConfig contains queue wait-time estimator parameters
type WaitTimeConfig struct {
	HighConfidenceUtilization float64 `mapstructure:"high_confidence_utilization"`
	MinHistoricalSamples      int     `mapstructure:"min_historical_samples"`
	PositionBatchSize         int     `mapstructure:"position_batch_size"`
}

// ABCConfig contains inventory ABC classification parameters
type ABCConfig struct {
	ClassABoundary float64 `mapstructure:"class_a_boundary"`
	ClassBBoundary float64 `mapstructure:"class_b_boundary"`
	ServiceLevelA  float64 `mapstructure:"service_level_a"`
	ServiceLevelB  float64 `mapstructure:"service_level_b"`
	ServiceLevelC  float64 `mapstructure:"service_level_c"`
}

// SPCConfig contains statistical process control parameters
type SPCConfig struct {
	SigmaMultiplier        float64 `mapstructure:"sigma_multiplier"`
	OutOfControlViolations int     `mapstructure:"out_of_control_violations"`
	RecentViolations       int     `mapstructure:"recent_violations"`
}

// RetentionConfig contains retention policy execution settings
type RetentionConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	Schedule     string            `mapstructure:"schedule"`
	EntityTables map[string]string `mapstructure:"entity_tables"`
}

// MonitoringConfig contains metrics endpoint settings
type MonitoringConfig struct {
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	MetricsPath   string `mapstructure:"metrics_path"`
}

// AuditConfig contains audit trail settings
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.pool_size", 25)
	viper.SetDefault("database.migrations_path", "migrations")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.dashboard_ttl", "5m")

	// Wait-time estimator defaults
	viper.SetDefault("analytics.wait_time.high_confidence_utilization", 0.7)
	viper.SetDefault("analytics.wait_time.min_historical_samples", 30)
	viper.SetDefault("analytics.wait_time.position_batch_size", 5)

	// ABC classification defaults
	viper.SetDefault("analytics.abc.class_a_boundary", 70.0)
	viper.SetDefault("analytics.abc.class_b_boundary", 90.0)
	viper.SetDefault("analytics.abc.service_level_a", 0.98)
	viper.SetDefault("analytics.abc.service_level_b", 0.90)
	viper.SetDefault("analytics.abc.service_level_c", 0.80)

	// SPC defaults
	viper.SetDefault("analytics.spc.sigma_multiplier", 3.0)
	viper.SetDefault("analytics.spc.out_of_control_violations", 2)
	viper.SetDefault("analytics.spc.recent_violations", 10)

	// Retention defaults
	viper.SetDefault("retention.enabled", true)
	viper.SetDefault("retention.schedule", "0 2 * * *")

	// Monitoring defaults
	viper.SetDefault("monitoring.enable_metrics", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Audit defaults
	viper.SetDefault("audit.enabled", true)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Analytics.WaitTime.HighConfidenceUtilization <= 0 || c.Analytics.WaitTime.HighConfidenceUtilization >= 1 {
		return fmt.Errorf("high confidence utilization must be in (0,1): %f", c.Analytics.WaitTime.HighConfidenceUtilization)
	}

	if c.Analytics.WaitTime.PositionBatchSize < 1 {
		return fmt.Errorf("position batch size must be at least 1: %d", c.Analytics.WaitTime.PositionBatchSize)
	}

	if c.Analytics.ABC.ClassABoundary <= 0 || c.Analytics.ABC.ClassABoundary >= c.Analytics.ABC.ClassBBoundary {
		return fmt.Errorf("ABC boundaries must satisfy 0 < A < B: A=%f B=%f",
			c.Analytics.ABC.ClassABoundary, c.Analytics.ABC.ClassBBoundary)
	}

	if c.Analytics.ABC.ClassBBoundary >= 100 {
		return fmt.Errorf("ABC class B boundary must be below 100: %f", c.Analytics.ABC.ClassBBoundary)
	}

	if c.Analytics.SPC.SigmaMultiplier <= 0 {
		return fmt.Errorf("sigma multiplier must be positive: %f", c.Analytics.SPC.SigmaMultiplier)
	}

	if c.Analytics.SPC.OutOfControlViolations < 1 {
		return fmt.Errorf("out-of-control violation threshold must be at least 1: %d", c.Analytics.SPC.OutOfControlViolations)
	}

	if c.Retention.Enabled && c.Retention.Schedule == "" {
		return fmt.Errorf("retention schedule is required when retention is enabled")
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis connection address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// InitLogger initializes the logger based on configuration
func (c *Config) InitLogger() (*zap.Logger, error) {
	var cfg zap.Config

	if c.Environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

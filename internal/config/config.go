package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"umkm-map/internal/grouping"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Clustering ClusteringConfig `yaml:"clustering" mapstructure:"clustering"`
	Upload     UploadConfig     `yaml:"upload" mapstructure:"upload"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int    `yaml:"port" mapstructure:"port"`
	Mode          string `yaml:"mode" mapstructure:"mode"`
	SessionSecret string `yaml:"session_secret" mapstructure:"session_secret"`
	CookieName    string `yaml:"cookie_name" mapstructure:"cookie_name"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ClusteringConfig configures k-means and the cluster count the UI offers.
type ClusteringConfig struct {
	Seed          uint64  `yaml:"seed" mapstructure:"seed"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Runs          int     `yaml:"runs" mapstructure:"runs"`
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`
	MinK          int     `yaml:"min_k" mapstructure:"min_k"`
	MaxK          int     `yaml:"max_k" mapstructure:"max_k"`
	DefaultK      int     `yaml:"default_k" mapstructure:"default_k"`
}

// Options converts the config into grouping engine options.
func (c ClusteringConfig) Options() grouping.Options {
	return grouping.Options{
		Seed:          c.Seed,
		MaxIterations: c.MaxIterations,
		Runs:          c.Runs,
		Tolerance:     c.Tolerance,
	}
}

// UploadConfig limits file uploads.
type UploadConfig struct {
	MaxBytes  int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
	PerMinute int   `yaml:"per_minute" mapstructure:"per_minute"`
}

// SessionConfig configures in-memory session lifetime.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL returns the idle lifetime of a session.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("UMKMMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 9595)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.session_secret", "umkm-map-dev-secret-change-me")
	v.SetDefault("server.cookie_name", "umkm-session")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("clustering.seed", grouping.DefaultSeed)
	v.SetDefault("clustering.max_iterations", grouping.DefaultMaxIterations)
	v.SetDefault("clustering.runs", grouping.DefaultRuns)
	v.SetDefault("clustering.tolerance", grouping.DefaultTolerance)
	v.SetDefault("clustering.min_k", 2)
	v.SetDefault("clustering.max_k", 8)
	v.SetDefault("clustering.default_k", 3)
	v.SetDefault("upload.max_bytes", 5<<20)
	v.SetDefault("upload.per_minute", 30)
	v.SetDefault("session.ttl_minutes", 120)

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	k := c.Clustering
	if k.MinK < grouping.MinK {
		return eris.Errorf("config: clustering.min_k must be at least %d", grouping.MinK)
	}
	if k.MaxK < k.MinK {
		return eris.New("config: clustering.max_k must not be below min_k")
	}
	if k.DefaultK < k.MinK || k.DefaultK > k.MaxK {
		return eris.New("config: clustering.default_k must be within [min_k, max_k]")
	}
	if c.Upload.MaxBytes <= 0 {
		return eris.New("config: upload.max_bytes must be positive")
	}
	return nil
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

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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	DLQ       DLQConfig       `yaml:"dlq" mapstructure:"dlq"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backends.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`

	// CacheDriver selects where the geocode/place caches live: "postgres"
	// (shared with the raw store) or "sqlite" for local runs.
	CacheDriver string `yaml:"cache_driver" mapstructure:"cache_driver"`
	CachePath   string `yaml:"cache_path" mapstructure:"cache_path"`

	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// SyncConfig tunes the batched sync engine.
type SyncConfig struct {
	PageSize  int `yaml:"page_size" mapstructure:"page_size"`
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// GeocodeConfig configures the geocoding cascade.
type GeocodeConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Cap          int    `yaml:"cap" mapstructure:"cap"`
	DelayMillis  int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	CacheTTLDays int    `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// PlacesConfig configures the places cascade.
type PlacesConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	RadiusKM        float64 `yaml:"radius_km" mapstructure:"radius_km"`
	PerGroupResults int     `yaml:"per_group_results" mapstructure:"per_group_results"`
	PrewarmDelayMs  int     `yaml:"prewarm_delay_ms" mapstructure:"prewarm_delay_ms"`
}

// SchedulerConfig sets the run cadence.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"interval_minutes" mapstructure:"interval_minutes"`
	BufferSeconds   int `yaml:"buffer_seconds" mapstructure:"buffer_seconds"`
}

// ServerConfig configures the operator status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// DLQConfig configures the dead-letter directory.
type DLQConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
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
	v.SetEnvPrefix("LISTINGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.cache_driver", "postgres")
	v.SetDefault("store.cache_path", "listing-cache.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("sync.page_size", 500)
	v.SetDefault("sync.batch_size", 250)
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.cap", 30)
	v.SetDefault("geocode.delay_ms", 150)
	v.SetDefault("geocode.cache_ttl_days", 0)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.radius_km", 15)
	v.SetDefault("places.per_group_results", 20)
	v.SetDefault("places.prewarm_delay_ms", 200)
	v.SetDefault("scheduler.interval_minutes", 5)
	v.SetDefault("scheduler.buffer_seconds", 90)
	v.SetDefault("server.port", 8080)
	v.SetDefault("dlq.dir", "dlq")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
	cfg.clamp()

	return &cfg, nil
}

// clamp keeps the tunables inside safe ranges no matter what the environment
// hands us.
func (c *Config) clamp() {
	c.Sync.PageSize = clampInt(c.Sync.PageSize, 50, 5000)
	c.Sync.BatchSize = clampInt(c.Sync.BatchSize, 10, 1000)
	c.Geocode.Cap = clampInt(c.Geocode.Cap, 1, 500)
	c.Geocode.DelayMillis = clampInt(c.Geocode.DelayMillis, 100, 5000)
	c.Places.PerGroupResults = clampInt(c.Places.PerGroupResults, 1, 20)
	if c.Places.RadiusKM <= 0 || c.Places.RadiusKM > 50 {
		c.Places.RadiusKM = 15
	}
	c.Scheduler.IntervalMinutes = clampInt(c.Scheduler.IntervalMinutes, 1, 24*60)
	c.Scheduler.BufferSeconds = clampInt(c.Scheduler.BufferSeconds, 10, 3600)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Validate checks that the settings a command depends on are present. mode
// names the command family: "sync", "geocode", "places", or "schedule".
func (c *Config) Validate(mode string) error {
	var problems []string

	needDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	needCache := func() {
		switch c.Store.CacheDriver {
		case "postgres":
			needDB()
		case "sqlite":
			if c.Store.CachePath == "" {
				problems = append(problems, "store.cache_path is required for the sqlite cache driver")
			}
		default:
			problems = append(problems, "store.cache_driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "sync":
		needDB()
	case "geocode":
		needDB()
		needCache()
		if c.Geocode.Key == "" {
			problems = append(problems, "geocode.key is required")
		}
	case "places":
		needCache()
		if c.Places.Key == "" {
			problems = append(problems, "places.key is required")
		}
	case "schedule":
		needDB()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
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

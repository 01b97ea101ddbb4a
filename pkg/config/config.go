package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	xutil "Symbiotic/pkg/util"
)

var timeframes = []string{"1m", "5m", "15m", "1h", "1d"}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"20s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		HealthTimeout   time.Duration `yaml:"health_timeout" default:"3s"`
		BodyLimit       int64         `yaml:"body_limit" default:"65536"`
		WSBuffer        int           `yaml:"ws_buffer" default:"4"`
		CORS            bool          `yaml:"cors" default:"true"`
		// CORSOrigins empty allows any origin.
		CORSOrigins []string `yaml:"cors_origins"`
		// WSOrigins lists origins allowed to open websockets; empty means same-origin only.
		WSOrigins []string `yaml:"ws_origins"`
	} `yaml:"server"`
	Source struct {
		// Backend is "postgrest" (Supabase REST) or "postgres" (direct SQL).
		Backend     string        `yaml:"backend" default:"postgrest"`
		SupabaseURL string        `yaml:"supabase_url"`
		SupabaseKey string        `yaml:"supabase_key"`
		DatabaseURL string        `yaml:"database_url"`
		Timeout     time.Duration `yaml:"timeout" default:"10s"`
		Attempts    int           `yaml:"attempts" default:"2"`
		MaxConns    int           `yaml:"max_conns" default:"10"`
		ConnMaxLife time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	} `yaml:"source"`
	Cache struct {
		// Backend is "memory", "redis" or "layered".
		Backend       string        `yaml:"backend" default:"memory"`
		TTL           time.Duration `yaml:"ttl" default:"30s"`
		StaleAge      time.Duration `yaml:"stale_age" default:"15m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m"`
		Redis         struct {
			Addr         string        `yaml:"addr" default:"localhost:6379"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"symbiotic"`
			PoolSize     int           `yaml:"pool_size" default:"10"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"5s"`
		} `yaml:"redis"`
		Breaker struct {
			MaxFailures uint32        `yaml:"max_failures" default:"3"`
			OpenTimeout time.Duration `yaml:"open_timeout" default:"30s"`
		} `yaml:"breaker"`
	} `yaml:"cache"`
	Refresh struct {
		Interval  time.Duration `yaml:"interval" default:"60s"`
		Timeout   time.Duration `yaml:"timeout" default:"15s"`
		RateBurst float64       `yaml:"rate_burst" default:"5"`
		RatePerS  float64       `yaml:"rate_per_second" default:"0.2"`
	} `yaml:"refresh"`
	Correlation struct {
		Historical bool   `yaml:"historical"`
		N          int    `yaml:"n" default:"200"`
		Timeframe  string `yaml:"timeframe" default:"1h"`
		Seed       int64  `yaml:"seed"`
	} `yaml:"correlation"`
	Kafka struct {
		Enabled           bool     `yaml:"enabled"`
		Brokers           []string `yaml:"brokers"`
		SnapshotTopic     string   `yaml:"snapshot_topic" default:"dashboard.snapshots"`
		InvalidationTopic string   `yaml:"invalidation_topic" default:"dashboard.invalidate"`
		RequiredAcks      int      `yaml:"required_acks" default:"1"`
		Compression       string   `yaml:"compression" default:"snappy"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"16"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"20ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"5s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"symbiotic-dashboard"`
			Workers    int           `yaml:"workers" default:"2"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			// HandleTimeout bounds one handler attempt.
			HandleTimeout time.Duration `yaml:"handle_timeout" default:"10s"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"symbiotic"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecTime time.Duration `yaml:"max_execution_time" default:"30s"`
		InitSchema  bool          `yaml:"init_schema"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads a YAML file over the defaults. An empty path yields pure defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return c, nil
}

// LoadWithEnv loads config, applies environment overrides and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SUPABASE_URL"); v != "" {
		c.Source.SupabaseURL = v
	}
	if v := getenv("SUPABASE_KEY"); v != "" {
		c.Source.SupabaseKey = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Source.DatabaseURL = v
		if getenv("SUPABASE_URL") == "" {
			c.Source.Backend = "postgres"
		}
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		if c.Cache.Backend == "memory" {
			c.Cache.Backend = "layered"
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = xutil.SplitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.Correlation.Historical = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source.Backend {
	case "postgrest":
		if c.Source.SupabaseURL == "" || c.Source.SupabaseKey == "" {
			errs = append(errs, errors.New("source.supabase_url and source.supabase_key are required for the postgrest backend"))
		}
	case "postgres":
		if c.Source.DatabaseURL == "" {
			errs = append(errs, errors.New("source.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.backend must be 'postgrest' or 'postgres', got '%s'", c.Source.Backend))
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory, redis or layered, got '%s'", c.Cache.Backend))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Refresh.Interval < time.Second {
		errs = append(errs, errors.New("refresh.interval must be at least 1s"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers cannot be empty when kafka is enabled"))
	}
	if c.Correlation.Historical && c.ClickHouse.Host == "" {
		errs = append(errs, errors.New("clickhouse.host is required for historical correlation"))
	}
	if !slices.Contains(timeframes, c.Correlation.Timeframe) {
		errs = append(errs, fmt.Errorf("correlation.timeframe not supported: '%s'", c.Correlation.Timeframe))
	}
	return errors.Join(errs...)
}

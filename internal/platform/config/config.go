// Package config loads runtime configuration from LABELFORGE_* environment
// variables. Command-line flags override individual fields after FromEnv.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Store drivers for lineage overrides.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the full runtime configuration.
type Config struct {
	Log     Log
	Store   Store
	Redis   RedisConfig
	Render  Render
	Lineage Lineage
	Server  Server
}

// Log controls the slog handler.
type Log struct {
	Level  string
	Format string
}

// Store selects the lineage override backend.
type Store struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Render controls label generation.
type Render struct {
	Workers        int
	ChunkTimeout   time.Duration
	Template       string
	TemplatePath   string
	FontSchemePath string
}

// Lineage tunes the persistence adapter.
type Lineage struct {
	MinConfidence    float64
	FailureThreshold int
	SuccessThreshold int
	BreakerCooldown  time.Duration
	WriteQueueSize   int
	OperationTimeout time.Duration
}

// Server captures the admin HTTP server configuration.
type Server struct {
	Addr       string
	AdminToken string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Log: Log{
			Level:  envString("LABELFORGE_LOG_LEVEL", "info"),
			Format: envString("LABELFORGE_LOG_FORMAT", "text"),
		},
		Store: Store{
			Driver:      envString("LABELFORGE_STORE", DriverSQLite),
			SQLitePath:  envString("LABELFORGE_SQLITE_PATH", "labelforge.db"),
			PostgresDSN: os.Getenv("LABELFORGE_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("LABELFORGE_REDIS_URL"),
			PoolSize:     envInt("LABELFORGE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("LABELFORGE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("LABELFORGE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("LABELFORGE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("LABELFORGE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Render: Render{
			Workers:        envInt("LABELFORGE_WORKERS", runtime.NumCPU()),
			ChunkTimeout:   envDuration("LABELFORGE_CHUNK_TIMEOUT", 30*time.Second),
			Template:       envString("LABELFORGE_TEMPLATE", "vertical"),
			TemplatePath:   os.Getenv("LABELFORGE_TEMPLATE_PATH"),
			FontSchemePath: os.Getenv("LABELFORGE_FONT_SCHEME"),
		},
		Lineage: Lineage{
			MinConfidence:    envFloat("LABELFORGE_LINEAGE_MIN_CONFIDENCE", 0.5),
			FailureThreshold: envInt("LABELFORGE_LINEAGE_BREAKER_FAILURES", 3),
			SuccessThreshold: envInt("LABELFORGE_LINEAGE_BREAKER_SUCCESSES", 2),
			BreakerCooldown:  envDuration("LABELFORGE_LINEAGE_BREAKER_COOLDOWN", 15*time.Second),
			WriteQueueSize:   envInt("LABELFORGE_LINEAGE_WRITE_QUEUE", 64),
			OperationTimeout: envDuration("LABELFORGE_LINEAGE_TIMEOUT", 2*time.Second),
		},
		Server: Server{
			Addr:       envString("LABELFORGE_ADDR", ":8080"),
			AdminToken: os.Getenv("LABELFORGE_ADMIN_TOKEN"),
		},
	}
}

// Validate fails fast on settings no component can work with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite store requires LABELFORGE_SQLITE_PATH")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("postgres store requires LABELFORGE_POSTGRES_DSN")
		}
	case DriverRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis store requires LABELFORGE_REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Render.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Render.Workers)
	}
	if c.Render.ChunkTimeout < 0 {
		return fmt.Errorf("chunk timeout must not be negative")
	}
	if c.Lineage.MinConfidence < 0 || c.Lineage.MinConfidence > 1 {
		return fmt.Errorf("lineage min confidence must be within [0,1], got %v", c.Lineage.MinConfidence)
	}
	if c.Lineage.WriteQueueSize <= 0 {
		return fmt.Errorf("lineage write queue must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

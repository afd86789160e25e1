package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverTables = "tables"
	DriverMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port        string
	Debug       bool
	LogFormat   string
	EnablePprof bool

	Store  Store
	Cache  Cache
	Events Events

	// Client
	APIURL string
}

// Store selects and addresses the task document store.
type Store struct {
	Driver string

	// Mongo
	Host           string
	Port           int
	Database       string
	Collection     string
	ConnectTimeout time.Duration

	// Azure storage
	ConnectionString string
	Table            string
}

// Cache configures the optional Redis read cache.
type Cache struct {
	RedisConnectionString string
	TTL                   time.Duration
}

// Enabled reports whether a Redis connection was configured.
func (c Cache) Enabled() bool { return c.RedisConnectionString != "" }

// Events configures the optional task event queue.
type Events struct {
	ConnectionString string
	Queue            string
	Workers          int
	Buffer           int
	Timeout          time.Duration
	HandoffTimeout   time.Duration
}

// Enabled reports whether task events should be published.
func (e Events) Enabled() bool { return e.Queue != "" }

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	p := parser{}
	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		Debug:       p.bool("DEBUG", false),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "text")),
		EnablePprof: p.bool("ENABLE_PPROF", false),

		Store: Store{
			Driver:           strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             p.int("DB_PORT", 27017),
			Database:         getEnv("DB_NAME", "taskmanager"),
			Collection:       getEnv("TASKS_COLLECTION", "tasks"),
			ConnectTimeout:   p.duration("DB_CONNECT_TIMEOUT", 10*time.Second),
			ConnectionString: os.Getenv("STORAGE_CONNECTION_STRING"),
			Table:            getEnv("TASKS_TABLE", "tasks"),
		},

		Cache: Cache{
			RedisConnectionString: os.Getenv("REDIS_CONNECTION_STRING"),
			TTL:                   p.duration("CACHE_TTL", 5*time.Minute),
		},

		Events: Events{
			ConnectionString: os.Getenv("STORAGE_CONNECTION_STRING"),
			Queue:            os.Getenv("TASK_EVENTS_QUEUE"),
			Workers:          p.int("PUBLISH_WORKERS", 4),
			Buffer:           p.int("PUBLISH_BUFFER", 256),
			Timeout:          p.duration("PUBLISH_TIMEOUT", 30*time.Second),
			HandoffTimeout:   p.duration("PUBLISH_HANDOFF_TIMEOUT", 15*time.Millisecond),
		},

		APIURL: strings.TrimRight(getEnv("TASKS_API_URL", "http://localhost:3001/api"), "/"),
	}

	if err := errors.Join(append(p.errs, cfg.validate()...)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	switch c.Store.Driver {
	case DriverMongo, DriverMemory:
	case DriverTables:
		if c.Store.ConnectionString == "" {
			errs = append(errs, errors.New("STORAGE_CONNECTION_STRING is required for the tables driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Events.Enabled() && c.Events.ConnectionString == "" {
		errs = append(errs, errors.New("STORAGE_CONNECTION_STRING is required when TASK_EVENTS_QUEUE is set"))
	}
	if c.Store.Port <= 0 {
		errs = append(errs, errors.New("invalid DB_PORT: must be greater than zero"))
	}
	if c.Events.Workers <= 0 {
		errs = append(errs, errors.New("invalid PUBLISH_WORKERS: must be greater than zero"))
	}
	if c.Events.Buffer < 0 {
		errs = append(errs, errors.New("invalid PUBLISH_BUFFER: must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("invalid CACHE_TTL: must not be negative"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat))
	}
	return errs
}

// MongoURI returns the connection string for the mongo driver. DB_HOST may
// already hold a complete URI.
func (s Store) MongoURI() string {
	if strings.HasPrefix(s.Host, "mongodb://") || strings.HasPrefix(s.Host, "mongodb+srv://") {
		return s.Host
	}
	return fmt.Sprintf("mongodb://%s:%d", s.Host, s.Port)
}

// ListenAddr returns the address the API server binds to.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed values and remembers malformed ones.
type parser struct {
	errs []error
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return i
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return b
}

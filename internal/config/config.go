// Package config assembles runtime settings from, in increasing precedence,
// built-in defaults, an optional YAML file, a .env file and WAYPOINT_*
// environment variables. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WAYPOINT_"

// Config is the full runtime configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Flows  FlowsConfig  `yaml:"flows"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Events EventsConfig `yaml:"events"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type FlowsConfig struct {
	Dir   string `yaml:"dir" validate:"required"`
	Watch bool   `yaml:"watch"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory file redis sqlite postgres"`

	Dir         string        `yaml:"dir" validate:"required_if=Backend file"`
	RedisURL    string        `yaml:"redis_url" validate:"required_if=Backend redis"`
	RedisPrefix string        `yaml:"redis_prefix"`
	SQLitePath  string        `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	PostgresDSN string        `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	TTL         time.Duration `yaml:"ttl" validate:"gte=0"`

	// EncryptionKey enables encryption at rest: 32 bytes, hex or base64 encoded.
	EncryptionKey string `yaml:"encryption_key"`

	// RedactKeys are regular expressions; matching answer and variable keys
	// are masked before they reach the backend.
	RedactKeys []string `yaml:"redact_keys"`

	// DistributedLock coordinates replicas through Redis. Requires RedisURL.
	DistributedLock bool `yaml:"distributed_lock"`
}

// EventsConfig configures the completion publisher. Empty AMQPURL disables it.
type EventsConfig struct {
	AMQPURL    string `yaml:"amqp_url"`
	Exchange   string `yaml:"exchange" validate:"required_with=AMQPURL"`
	RoutingKey string `yaml:"routing_key"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Flows: FlowsConfig{Dir: "flows"},
		Server: ServerConfig{
			Addr:            ":8000",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Backend:     "memory",
			Dir:         ".waypoint/sessions",
			RedisPrefix: "waypoint:session:",
			SQLitePath:  ".waypoint/sessions.db",
		},
		Events: EventsConfig{
			Exchange:   "waypoint.events",
			RoutingKey: "session.completed",
		},
	}
}

// Load builds the configuration. path may be empty; an explicitly named file
// must exist. envFile is loaded when present and silently skipped otherwise.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
// Variables already set in the process environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("FLOWS_DIR", &c.Flows.Dir)
	boolean("FLOWS_WATCH", &c.Flows.Watch)

	// Hosting platforms hand out the port through PORT.
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	str("ADDR", &c.Server.Addr)
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("STORE", &c.Store.Backend)
	str("STORE_DIR", &c.Store.Dir)
	str("REDIS_URL", &c.Store.RedisURL)
	str("REDIS_PREFIX", &c.Store.RedisPrefix)
	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("POSTGRES_DSN", &c.Store.PostgresDSN)
	duration("SESSION_TTL", &c.Store.TTL)
	str("ENCRYPTION_KEY", &c.Store.EncryptionKey)
	if v, ok := lookup(EnvPrefix + "REDACT_KEYS"); ok {
		c.Store.RedactKeys = splitList(v)
	}
	boolean("DISTRIBUTED_LOCK", &c.Store.DistributedLock)

	str("AMQP_URL", &c.Events.AMQPURL)
	str("AMQP_EXCHANGE", &c.Events.Exchange)
	str("AMQP_ROUTING_KEY", &c.Events.RoutingKey)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.DistributedLock && c.Store.RedisURL == "" {
		return errors.New("invalid config: store.distributed_lock requires store.redis_url")
	}
	return nil
}

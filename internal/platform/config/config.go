// Package config holds the environment-driven settings shared by the processes.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.temporal.io/sdk/client"
)

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Postgres configures the event store and read model database.
type Postgres struct {
	DSN string `env:"POSTGRES_DSN"`
}

// Redis configures the snapshot cache. An empty address disables it.
type Redis struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"SNAPSHOT_CACHE_TTL" envDefault:"10m"`
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

// Kafka configures the outbound event forwarder. No brokers disables it.
type Kafka struct {
	Brokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic    string   `env:"KAFKA_TOPIC" envDefault:"aggregate-events"`
	ClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"cqrs-platform"`
}

// Enabled reports whether any broker is configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Partner configures the outbound event webhook. An empty base URL disables it.
type Partner struct {
	BaseURL    string        `env:"PARTNER_BASE_URL"`
	Timeout    time.Duration `env:"PARTNER_TIMEOUT" envDefault:"5s"`
	EventTypes []string      `env:"PARTNER_EVENT_TYPES" envSeparator:","`
}

// Enabled reports whether a partner endpoint is configured.
func (p Partner) Enabled() bool { return strings.TrimSpace(p.BaseURL) != "" }

// Auth configures bearer token verification on the API. Without a secret the
// API trusts the X-Roles and X-User-ID headers.
type Auth struct {
	JWTSecret string        `env:"AUTH_JWT_SECRET"`
	Issuer    string        `env:"AUTH_JWT_ISSUER"`
	Audience  string        `env:"AUTH_JWT_AUDIENCE"`
	Leeway    time.Duration `env:"AUTH_JWT_LEEWAY" envDefault:"30s"`
}

// Enabled reports whether a signing secret is configured.
func (a Auth) Enabled() bool { return strings.TrimSpace(a.JWTSecret) != "" }

// Temporal configures the durable execution client.
type Temporal struct {
	Address   string `env:"TEMPORAL_ADDRESS"`
	Namespace string `env:"TEMPORAL_NAMESPACE"`
	TaskQueue string `env:"TEMPORAL_TASK_QUEUE" envDefault:"aggregate-commands"`
	Disabled  bool   `env:"TEMPORAL_DISABLED"`
}

// HostPort returns the configured address or the SDK default.
func (t Temporal) HostPort() string {
	if strings.TrimSpace(t.Address) == "" {
		return client.DefaultHostPort
	}
	return t.Address
}

// NamespaceOrDefault returns the configured namespace or the SDK default.
func (t Temporal) NamespaceOrDefault() string {
	if strings.TrimSpace(t.Namespace) == "" {
		return client.DefaultNamespace
	}
	return t.Namespace
}

// CommandLoop tunes the per-aggregate command loop.
type CommandLoop struct {
	IdleTimeout    time.Duration `env:"COMMAND_IDLE_TIMEOUT" envDefault:"1s"`
	CommandsPerRun int           `env:"COMMANDS_PER_RUN" envDefault:"500"`
	SnapshotEvery  int64         `env:"SNAPSHOT_EVERY" envDefault:"50"`
}

// Validate checks the loop settings.
func (c CommandLoop) Validate() error {
	var errs []error
	if c.IdleTimeout <= 0 {
		errs = append(errs, errors.New("COMMAND_IDLE_TIMEOUT must be positive"))
	}
	if c.CommandsPerRun <= 0 {
		errs = append(errs, errors.New("COMMANDS_PER_RUN must be a positive integer"))
	}
	if c.SnapshotEvery < 0 {
		errs = append(errs, errors.New("SNAPSHOT_EVERY must not be negative"))
	}
	return errors.Join(errs...)
}

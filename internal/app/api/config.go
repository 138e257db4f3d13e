package api

import (
	"github.com/Apurer/go-cqrs-platform/internal/app/bootstrap"
	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Postgres config.Postgres
	Redis    config.Redis
	Kafka    config.Kafka
	Partner  config.Partner
	Temporal config.Temporal
	Auth     config.Auth
	Loop     config.CommandLoop
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Loop.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Settings returns the shared runtime inputs.
func (c Config) Settings() bootstrap.Settings {
	return bootstrap.Settings{Postgres: c.Postgres, Redis: c.Redis, Kafka: c.Kafka, Partner: c.Partner, Loop: c.Loop}
}

package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the demo server's runtime configuration, loaded entirely from
// environment variables. It exists to exercise the library with something
// other than hardcoded constants; a real deployment would carry a lot more
// (TLS, discovery addresses, persistence DSNs) that has no place in this
// demo.
type Config struct {
	ListenAddr     string        `env:"LANDSERVER_ADDR" envDefault:":8080"`
	TickRate       time.Duration `env:"LANDSERVER_TICK_RATE" envDefault:"100ms"`
	IdleTimeout    time.Duration `env:"LANDSERVER_IDLE_TIMEOUT" envDefault:"30s"`
	MetricsEnabled bool          `env:"LANDSERVER_METRICS_ENABLED" envDefault:"true"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
)

// config is read from the environment, after loading .env when present.
// Command line flags take precedence.
type config struct {
	SettingsFile string        `env:"CFDDNS_SETTINGS_FILE"`
	APIURL       string        `env:"CFDDNS_API_URL" envDefault:"https://api.cloudflare.com/client/v4"`
	IPServiceURL string        `env:"CFDDNS_IP_SERVICE_URL" envDefault:"https://api64.ipify.org"`
	Timeout      time.Duration `env:"CFDDNS_TIMEOUT" envDefault:"10s"`
	Debug        bool          `env:"CFDDNS_DEBUG" envDefault:"false"`
	MetricsFile  string        `env:"CFDDNS_METRICS_FILE"`

	// any non-empty value disables color, see https://no-color.org
	NoColor string `env:"NO_COLOR"`
}

func loadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func loadConfig() (config, error) {
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("error reading configuration from environment: %w", err)
	}
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("CFDDNS_TIMEOUT must be positive; got %s", cfg.Timeout)
	}
	return cfg, nil
}

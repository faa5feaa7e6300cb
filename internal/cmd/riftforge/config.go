// Package riftforge parses riftforge command configuration and runs the
// profile, transfer and result subcommands against the local store.
package riftforge

import (
	"github.com/louisbranch/riftforge/internal/forge/service"
	entrypoint "github.com/louisbranch/riftforge/internal/platform/cmd"
	"github.com/louisbranch/riftforge/internal/platform/otel"
)

// Config holds riftforge command configuration.
type Config struct {
	DBPath           string `env:"RIFTFORGE_DB_PATH" envDefault:"data/riftforge.db"`
	MaxProfiles      int    `env:"RIFTFORGE_MAX_PROFILES"`
	Locale           string `env:"RIFTFORGE_LOCALE" envDefault:"en-US"`
	StampAppVersion  bool   `env:"RIFTFORGE_STAMP_APP_VERSION" envDefault:"true"`
	StrictInvariants bool   `env:"RIFTFORGE_STRICT_INVARIANTS"`

	Telemetry otel.Settings
}

// ParseConfig loads a Config from the process environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfigFrom loads a Config from environ.
func ParseConfigFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigFrom(&cfg, environ); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) serviceConfig() service.Config {
	return service.Config{
		DBPath:           c.DBPath,
		MaxProfiles:      c.MaxProfiles,
		Locale:           c.Locale,
		StampAppVersion:  c.StampAppVersion,
		StrictInvariants: c.StrictInvariants,
	}
}

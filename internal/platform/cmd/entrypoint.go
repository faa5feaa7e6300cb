// Package cmd holds startup helpers shared by riftforge commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/riftforge/internal/platform/config"
	"github.com/louisbranch/riftforge/internal/platform/otel"
	"github.com/louisbranch/riftforge/internal/platform/timeouts"
)

// ServiceRiftforge names the riftforge command in telemetry and logs.
const ServiceRiftforge = "riftforge"

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseConfigFrom loads defaults into cfg from environ.
func ParseConfigFrom[T any](cfg *T, environ map[string]string) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnvFrom(cfg, environ)
}

// RunWithTelemetry configures tracing and executes run. Pending spans are
// flushed within settings.ShutdownTimeout, or timeouts.OTelShutdown when unset.
func RunWithTelemetry(ctx context.Context, service string, settings otel.Settings, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service, settings)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(settings))
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}

func shutdownTimeout(settings otel.Settings) time.Duration {
	if settings.ShutdownTimeout <= 0 {
		return timeouts.OTelShutdown
	}
	return settings.ShutdownTimeout
}

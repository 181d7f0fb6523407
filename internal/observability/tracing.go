package observability

import (
	"context"
	"strings"

	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/rugby-live/internal/config"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

// startTracing installs the global OpenTelemetry providers. Spans from
// otelhttp, otelsqlx, the usecases and the dispatcher are exported through it.
// The returned func flushes and is safe to call when tracing is off.
func startTracing(cfg config.Config, logger *logging.Logger) func(context.Context) error {
	if !cfg.UptraceEnabled || strings.TrimSpace(cfg.UptraceDSN) == "" {
		logger.Info("uptrace disabled", "enabled", cfg.UptraceEnabled)
		return func(context.Context) error { return nil }
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(resourceAttributes(cfg)...),
	)

	logger.Info("uptrace enabled",
		"service_name", cfg.ServiceName,
		"service_version", cfg.ServiceVersion,
		"live_source", cfg.LiveSource,
	)
	return uptrace.Shutdown
}

// resourceAttributes tags every span with how this instance is wired, so
// traces from mqtt-fed and postgres-fed deployments can be told apart.
func resourceAttributes(cfg config.Config) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("rugby.live_source", cfg.LiveSource),
		attribute.String("rugby.storage_driver", cfg.StorageDriver),
		attribute.Bool("rugby.push_enabled", cfg.PushEnabled),
	}
}

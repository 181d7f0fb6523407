package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/grafana/pyroscope-go"

	"github.com/riskibarqy/rugby-live/internal/config"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

// Stack holds whatever telemetry the config turned on: uptrace export,
// continuous profiling and a private pprof listener.
type Stack struct {
	logger        *logging.Logger
	flushTraces   func(context.Context) error
	profiler      *pyroscope.Profiler
	debugServer   *http.Server
	debugListener string
}

// Start brings up every enabled component. On error, components already
// started are shut down before returning.
func Start(cfg config.Config, logger *logging.Logger) (*Stack, error) {
	s := &Stack{logger: logger.Named("observability")}

	s.flushTraces = startTracing(cfg, s.logger)

	profiler, err := startProfiler(cfg, s.logger)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	s.profiler = profiler

	srv, addr, err := startDebugServer(cfg, s.logger)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return nil, fmt.Errorf("start pprof: %w", err)
	}
	s.debugServer, s.debugListener = srv, addr

	return s, nil
}

// DebugAddr is the bound pprof address, empty when pprof is off.
func (s *Stack) DebugAddr() string {
	return s.debugListener
}

// Shutdown stops pprof, then the profiler, then flushes pending spans.
func (s *Stack) Shutdown(ctx context.Context) error {
	var errs []error
	if s.debugServer != nil {
		if err := s.debugServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop pprof: %w", err))
		}
	}
	if s.profiler != nil {
		if err := s.profiler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop pyroscope: %w", err))
		}
	}
	if s.flushTraces != nil {
		if err := s.flushTraces(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush uptrace: %w", err))
		}
	}
	return errors.Join(errs...)
}

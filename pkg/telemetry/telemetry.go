package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mercator-hq/stylecheck/pkg/config"
	"mercator-hq/stylecheck/pkg/telemetry/health"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
	"mercator-hq/stylecheck/pkg/telemetry/metrics"
	"mercator-hq/stylecheck/pkg/telemetry/tracing"
)

// shutdownTimeout bounds the graceful stop of the HTTP listener.
const shutdownTimeout = 5 * time.Second

// Telemetry holds the logger, metrics collector, tracer and health checker.
type Telemetry struct {
	cfg     *config.TelemetryConfig
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
	info    health.VersionInfo
}

// New builds every telemetry component from cfg. Logs and stdout spans are
// written to w.
func New(cfg *config.TelemetryConfig, w io.Writer, info health.VersionInfo) (*Telemetry, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Logging, w))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing, w)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	tracer.InstallGlobal()

	return &Telemetry{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
		info:    info,
	}, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Metrics returns the metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Handler returns the HTTP handler serving metrics and health endpoints.
func (t *Telemetry) Handler() http.Handler {
	mux := http.NewServeMux()
	if t.cfg.Metrics.Enabled {
		mux.Handle(t.cfg.Metrics.Path, t.metrics.Handler())
	}
	if t.cfg.Health.Enabled {
		health.Mount(mux, t.health, t.cfg.Health, t.info)
	}
	return mux
}

// Serve listens on ListenAddress until ctx is done. It returns nil right
// away when no address is configured.
func (t *Telemetry) Serve(ctx context.Context) error {
	if t.cfg.ListenAddress == "" {
		return nil
	}

	ln, err := net.Listen("tcp", t.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.cfg.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	t.logger.Info("telemetry listener started", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}

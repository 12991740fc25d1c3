package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/ethpandaops/parcelsight/pkg/api"
	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/observability"
	"github.com/ethpandaops/parcelsight/pkg/publisher"
	"github.com/ethpandaops/parcelsight/pkg/scheduler"
	r "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server runs the long-lived parcelsight process: metrics, health and pprof endpoints, the
// HTTP API and the scheduled batch recompute.
type Server struct {
	log    logrus.FieldLogger
	config *Config
	engine *engine.Engine

	redis     *r.Client
	publisher *publisher.Publisher
	api       api.Service
	scheduler scheduler.Service

	pprofServer  *http.Server
	healthServer *http.Server
}

// NewServer creates a new server instance around an already built engine
func NewServer(log logrus.FieldLogger, config *Config, e *engine.Engine) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		log:    log.WithField("component", "server"),
		config: config,
		engine: e,
		api:    api.NewService(&config.API, e, config.Engine.Factors.CorrelationThreshold, log),
	}

	if config.NeedsRedis() {
		client, err := config.Redis.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}

		s.redis = client
	}

	if config.Publisher.Enabled {
		p, err := publisher.NewPublisher(log, &config.Publisher, s.redis, &config.Redis)
		if err != nil {
			return nil, err
		}

		s.publisher = p
	}

	if config.Scheduler.Enabled {
		elector := scheduler.NewLeaderElector(
			log,
			s.redis,
			config.Redis.PrefixKey("scheduler:leader"),
			config.Scheduler.LeaseTTL,
			config.Scheduler.RenewInterval,
		)

		svc, err := scheduler.NewService(log, &config.Scheduler, s.RunBatch, elector)
		if err != nil {
			return nil, err
		}

		s.scheduler = svc
	}

	return s, nil
}

// RunBatch runs one scheduled batch and publishes its report when the sink is enabled.
func (s *Server) RunBatch(ctx context.Context) error {
	report, err := s.engine.Run(ctx, engine.TriggerSchedule)
	if err != nil {
		return err
	}

	if report.Failed() {
		s.log.WithFields(logrus.Fields{
			"run_id":   report.RunID,
			"failures": len(report.Failures),
		}).Warn("Scheduled batch completed with failures")
	}

	if s.publisher == nil {
		return nil
	}

	return s.publisher.PublishReport(ctx, report)
}

// Start starts every component and blocks until ctx is cancelled or a signal is received.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	s.log.WithFields(logrus.Fields{
		"has_redis":     s.redis != nil,
		"has_publisher": s.publisher != nil,
		"has_scheduler": s.scheduler != nil,
		"api_enabled":   s.config.API.Enabled,
	}).Debug("Server component states")

	observability.StartMetricsServer(s.log, s.config.MetricsAddr)

	if s.config.PProfAddr != nil {
		s.pprofServer = &http.Server{
			Addr:              *s.config.PProfAddr,
			ReadHeaderTimeout: 120 * time.Second,
		}

		g.Go(func() error {
			s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

			return listen(s.pprofServer)
		})
	}

	if s.config.HealthCheckAddr != nil {
		s.healthServer = &http.Server{
			Addr:              *s.config.HealthCheckAddr,
			ReadHeaderTimeout: 120 * time.Second,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
		}

		g.Go(func() error {
			s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

			return listen(s.healthServer)
		})
	}

	if err := s.api.Start(ctx); err != nil {
		return fmt.Errorf("failed to start api: %w", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	s.log.Info("Server started")

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		return s.stop()
	})

	return g.Wait()
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) stop() error {
	// Use a fresh context for cleanup since the server context is cancelled
	cleanupCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	if s.scheduler != nil {
		if err := s.scheduler.Stop(); err != nil {
			s.log.WithError(err).Error("failed to stop scheduler")
		}
	}

	if err := s.api.Stop(); err != nil {
		s.log.WithError(err).Error("failed to stop API server")
	}

	if s.redis != nil {
		s.log.Info("Closing Redis connection...")

		if err := s.redis.Close(); err != nil {
			s.log.WithError(err).Error("failed to close redis")
		}
	}

	if s.pprofServer != nil {
		if err := s.pprofServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown pprof server")
		}
	}

	if s.healthServer != nil {
		if err := s.healthServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown health server")
		}
	}

	if err := observability.StopMetricsServer(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop metrics server")
	}

	s.log.Info("Server stopped gracefully")

	return nil
}

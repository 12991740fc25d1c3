package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"
)

// Service defines the API service interface
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app       *fiber.App
	server    *http.Server
	config    *Config
	analytics Analytics
	threshold float64
	log       logrus.FieldLogger
}

// NewService creates a new API service. threshold is reported alongside limiting factors.
func NewService(cfg *Config, analytics Analytics, threshold float64, log logrus.FieldLogger) Service {
	return &service{
		config:    cfg,
		analytics: analytics,
		threshold: threshold,
		log:       log.WithField("service", "api"),
	}
}

// NewApp builds the Fiber app serving the API under /api/v1
func NewApp(analytics Analytics, threshold float64, log logrus.FieldLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "parcelsight API",
	})

	setupMiddleware(app, log)

	h := &handlers{analytics: analytics, threshold: threshold, log: log}
	h.register(app.Group("/api/v1"))

	return app
}

// Start starts the API server in the background
func (s *service) Start(_ context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API service is disabled")
		return nil
	}

	s.app = NewApp(s.analytics, s.threshold, s.log)

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           adaptor.FiberApp(s.app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting API server")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("API server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server
func (s *service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethpandaops/parcelsight/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Service defines the public interface for the worker service
type Service interface {
	// Start initializes and starts the worker service
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker service
	Stop() error
}

type service struct {
	config   *Config
	log      logrus.FieldLogger
	redisOpt asynq.RedisClientOpt
	queue    string
	handler  *tasks.TaskHandler

	mu     sync.Mutex
	server *asynq.Server
}

// NewService creates a worker consuming parcel analysis tasks from queue
func NewService(log logrus.FieldLogger, cfg *Config, redisOpt asynq.RedisClientOpt, queue string, handler *tasks.TaskHandler) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &service{
		log:      log.WithField("service", "worker"),
		config:   cfg,
		redisOpt: redisOpt,
		queue:    queue,
		handler:  handler,
	}, nil
}

// Start starts the Asynq server in the background
func (s *service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srv := asynq.NewServer(s.redisOpt, asynq.Config{
		Concurrency:     s.config.Concurrency,
		Queues:          map[string]int{s.queue: 1},
		ShutdownTimeout: s.config.ShutdownTimeout,
		Logger:          &asynqLogger{log: s.log},
	})

	mux := asynq.NewServeMux()
	for taskType, handlerFunc := range s.handler.Routes() {
		mux.HandleFunc(taskType, handlerFunc)
	}

	s.log.WithFields(logrus.Fields{
		"queue":       s.queue,
		"concurrency": s.config.Concurrency,
	}).Info("Starting worker service")

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	s.server = srv

	return nil
}

// Stop gracefully shuts down the worker, waiting for active tasks up to the shutdown timeout
func (s *service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}

	s.log.Info("Worker service stopped")

	return nil
}

// asynqLogger routes Asynq's logs through logrus
type asynqLogger struct {
	log logrus.FieldLogger
}

func (l *asynqLogger) Debug(args ...any) { l.log.Debug(args...) }
func (l *asynqLogger) Info(args ...any)  { l.log.Info(args...) }
func (l *asynqLogger) Warn(args ...any)  { l.log.Warn(args...) }
func (l *asynqLogger) Error(args ...any) { l.log.Error(args...) }
func (l *asynqLogger) Fatal(args ...any) { l.log.Fatal(args...) }

var _ Service = (*service)(nil)

package api

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"greencircuit/internal/auth"
	"greencircuit/internal/store"
	"greencircuit/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker

	// Limiter guards mutating endpoints; nil disables limiting.
	Limiter *rate.Limiter
	// MaxPasses caps the solver's 2-opt sweeps (0 = solver default).
	MaxPasses int
}

// NewServer creates a Server. If DATABASE_URL is unset, uses the in-memory store.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.MigrateDir("db/migrations")
		}
		s = sp
	}
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	passes := 0
	if v := os.Getenv("MAX_TWO_OPT_PASSES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			passes = n
		}
	}
	return &Server{
		Store:     s,
		Pub:       webhooks.NewPublisher(s),
		Auth:      auth.NewVerifierFromEnv(),
		Broker:    broker,
		Limiter:   newLimiterFromEnv(),
		MaxPasses: passes,
	}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}

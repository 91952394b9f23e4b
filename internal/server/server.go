package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vetintel/aigateway/internal/audit"
	"github.com/vetintel/aigateway/internal/circuitbreaker"
	"github.com/vetintel/aigateway/internal/config"
	"github.com/vetintel/aigateway/internal/gemini"
	"github.com/vetintel/aigateway/internal/identity"
	"github.com/vetintel/aigateway/internal/limiter"
	"github.com/vetintel/aigateway/internal/limits"
	"github.com/vetintel/aigateway/internal/metrics"
	"github.com/vetintel/aigateway/internal/middleware"
	"github.com/vetintel/aigateway/internal/prompt"
	"github.com/vetintel/aigateway/internal/validate"
)

// endpointName keys the rate-limit records for the single query endpoint.
const endpointName = "vet-search"

type Server struct {
	cfg       *config.Config
	verifier  identity.Verifier
	store     limiter.Store
	registry  *limits.Registry
	validator *validate.Validator
	composer  *prompt.Composer
	ai        *gemini.Client
	auditLog  audit.Logger
	breaker   *circuitbreaker.CircuitBreaker
	collector *metrics.Collector
	redis     *redis.Client
}

func New(cfg *config.Config) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return nil, err
	}

	var store limiter.Store
	switch cfg.RateLimitStore {
	case "memory":
		store = limiter.NewMemoryStore()
	default:
		store = limiter.NewRedisStore(rdb)
	}

	auditLog, err := buildAuditLogger(cfg)
	if err != nil {
		return nil, err
	}

	registry := limits.NewRegistry()
	if cfg.LimitsFile != "" {
		if err := registry.LoadFile(cfg.LimitsFile); err != nil {
			return nil, err
		}
	}

	return &Server{
		cfg:       cfg,
		verifier:  identity.NewCachingVerifier(verifier),
		store:     store,
		registry:  registry,
		validator: validate.New(auditLog),
		composer:  prompt.NewComposer(),
		ai:        gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel),
		auditLog:  auditLog,
		breaker:   circuitbreaker.New(rdb, 3, 10*time.Second),
		collector: metrics.NewCollector(1000),
		redis:     rdb,
	}, nil
}

func buildVerifier(cfg *config.Config) (identity.Verifier, error) {
	switch cfg.AuthMode {
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("server: AUTH_MODE=jwt requires JWT_SECRET")
		}
		return identity.NewJWTVerifier(cfg.JWTSecret), nil
	case "oidc":
		return identity.NewOIDCVerifier(context.Background(), cfg.OIDCIssuer, cfg.OIDCClientID)
	case "gotrue":
		if cfg.AuthBaseURL == "" {
			return nil, fmt.Errorf("server: AUTH_MODE=gotrue requires AUTH_BASE_URL")
		}
		return identity.NewGoTrueVerifier(cfg.AuthBaseURL, cfg.AuthAnonKey), nil
	default:
		return nil, fmt.Errorf("server: unknown AUTH_MODE %q", cfg.AuthMode)
	}
}

func buildAuditLogger(cfg *config.Config) (audit.Logger, error) {
	sinks := audit.MultiLogger{audit.NewJSONLogger(os.Stdout)}
	if cfg.AuditDBPath != "" {
		sqlite, err := audit.NewSQLiteLogger(cfg.AuditDBPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sqlite)
	}
	return sinks, nil
}

// routes builds the full handler tree.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Metrics(s.collector))
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if s.redis != nil {
			if err := s.redis.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis Unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.collector.Snapshot())
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(s.verifier))
		r.Post("/ai-query", s.handleAIQuery)
		r.Post("/admin/limits", s.handleLimitsReload)
	})

	return r
}

func (s *Server) Start() error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.ServerPort,
		Handler: s.routes(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("gateway listening on port %s", s.cfg.ServerPort)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Printf("shutdown started: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

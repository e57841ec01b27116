package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/h2overflow/apiserver/config"
	"github.com/h2overflow/apiserver/internal/auth"
	"github.com/h2overflow/apiserver/internal/catalog"
	"github.com/h2overflow/apiserver/internal/db"
	"github.com/h2overflow/apiserver/internal/handlers"
	"github.com/h2overflow/apiserver/internal/logging"
	"github.com/h2overflow/apiserver/internal/metrics"
	"github.com/h2overflow/apiserver/internal/mq"
	"github.com/h2overflow/apiserver/internal/services"
	"github.com/h2overflow/apiserver/internal/storage"
	"github.com/h2overflow/apiserver/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	log        zerolog.Logger
}

// Deps are the services the router exposes.
type Deps struct {
	Auth            *services.AuthService
	Profile         *services.ProfileService
	Activities      *services.ActivityService
	Log             zerolog.Logger
	CORSOrigins     []string
	AuthRateLimit   string
	MaxPictureBytes int64
}

// New connects to the database, blob store and broker, and builds the router.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc := cfg.Location()

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("storage bucket %s: %w", blobs.Bucket(), err)
	}

	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("mq: %w", err)
	}
	var events services.EventPublisher
	if broker != nil {
		events = mq.NewAccountEvents(broker, cfg.MQ.Topic)
	} else {
		log.Warn().Msg("MQ_BACKEND not set, replaced pictures will be retained")
		events = mq.NewDiscardEvents(log)
	}

	authService := services.NewAuthService(
		store.NewUserRepository(dbConn),
		auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
	)
	profileService := services.NewProfileService(authService, blobs, events, log)
	activityService := services.NewActivityService(
		store.NewActivityRepository(dbConn),
		catalog.MustDefault(),
		loc,
		log,
	)

	router, err := NewRouter(Deps{
		Auth:            authService,
		Profile:         profileService,
		Activities:      activityService,
		Log:             log,
		CORSOrigins:     cfg.CORSOrigins,
		AuthRateLimit:   cfg.AuthRateLimit,
		MaxPictureBytes: cfg.MaxPictureBytes,
	})
	if err != nil {
		_ = dbConn.Close()
		if broker != nil {
			_ = broker.Close()
		}
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
		log:        log,
	}, nil
}

// NewRouter mounts the API on a chi router with the shared middleware stack.
func NewRouter(deps Deps) (*chi.Mux, error) {
	limit, err := handlers.NewIPRateLimiter(deps.AuthRateLimit, deps.Log)
	if err != nil {
		return nil, fmt.Errorf("AUTH_RATE_LIMIT: %w", err)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(deps.Log),
		middleware.Recoverer,
		metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.Handler())

	userHandler := handlers.NewUserHandler(deps.Auth, deps.Profile, deps.Log, deps.MaxPictureBytes)
	activityHandler := handlers.NewActivityHandler(deps.Activities, deps.Auth, deps.Log)
	router.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userHandler, limit)
		})
		r.Route("/activities", func(r chi.Router) {
			handlers.ActivityRouter(r, activityHandler)
		})
	})
	return router, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes owned connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

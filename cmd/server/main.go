package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/kinesite/backend/internal/auth"
	"github.com/kinesite/backend/internal/booking"
	"github.com/kinesite/backend/internal/cache"
	"github.com/kinesite/backend/internal/config"
	"github.com/kinesite/backend/internal/gallery"
	"github.com/kinesite/backend/internal/health"
	"github.com/kinesite/backend/internal/logger"
	"github.com/kinesite/backend/internal/metrics"
	appmw "github.com/kinesite/backend/internal/middleware"
	"github.com/kinesite/backend/internal/repository"
	"github.com/kinesite/backend/internal/sitecfg"
)

const version = "1.0.0"

// defaultAccessCode is the bootstrap admin code seeded on first run.
// It must be rotated immediately after the first login.
const defaultAccessCode = "ADMIN2024"

func main() {
	cfg := config.Load()

	if cfg.Admin.TokenSecret == "" {
		log.Fatal("ADMIN_TOKEN_SECRET environment variable is required")
	}

	appLogger := logger.New(logger.DefaultConfig())

	// Database connections: the pgx pool carries the auth repositories,
	// the sqlx handle the document and gallery repositories.
	dbPool, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	sqlxDB, err := sqlx.Connect("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open sqlx connection: %v", err)
	}
	defer sqlxDB.Close()

	// Optional Redis cache for the site configuration document
	redisCache := cache.New(cfg.Redis)
	if redisCache != nil {
		defer redisCache.Close()
	}

	// Auth stack
	codePolicy := auth.NewCodePolicy()
	defaultHash, err := codePolicy.HashCode(defaultAccessCode)
	if err != nil {
		log.Fatalf("Failed to hash default access code: %v", err)
	}

	credRepo := repository.NewCredentialRepository(dbPool, repository.CredentialDefaults{
		CodeHash:               defaultHash,
		SessionTimeoutMinutes:  cfg.Admin.SessionTimeoutMinutes,
		MaxLoginAttempts:       cfg.Admin.MaxLoginAttempts,
		LockoutDurationMinutes: cfg.Admin.LockoutDurationMinutes,
	})
	attemptRepo := repository.NewAttemptRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)

	tokenService := auth.NewTokenService(auth.TokenServiceConfig{
		Secret: cfg.Admin.TokenSecret,
		Issuer: cfg.Admin.TokenIssuer,
	})

	authService := auth.NewService(
		credRepo,
		attemptRepo,
		sessionRepo,
		tokenService,
		codePolicy,
		auth.ServiceConfig{BindSessionIP: cfg.Admin.BindSessionIP},
		appLogger,
	)

	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Name:   cfg.Admin.CookieName,
		Secure: cfg.Admin.CookieSecure,
	})

	sessionMiddleware := appmw.NewSessionMiddleware(authService, cfg.Admin.CookieName)

	// Site configuration
	siteConfigRepo := repository.NewSiteConfigRepository(sqlxDB)
	siteConfigService := sitecfg.NewService(siteConfigRepo, redisCache, appLogger)
	siteConfigHandler := sitecfg.NewHandler(siteConfigService)

	// Gallery (only when object storage is configured)
	var galleryHandler *gallery.Handler
	if cfg.Storage.Endpoint != "" {
		galleryService, err := gallery.NewService(&cfg.Storage, repository.NewGalleryRepository(sqlxDB), appLogger)
		if err != nil {
			log.Fatalf("Failed to initialize gallery storage: %v", err)
		}
		galleryHandler = gallery.NewHandler(galleryService)
	} else {
		appLogger.Warn("object storage not configured, gallery endpoints disabled")
	}

	bookingHandler := booking.NewHandler(cfg.Booking, appLogger)

	healthHandler := health.NewHandler(health.Config{
		DBPool:      dbPool,
		RedisClient: redisCache.Client(),
		Version:     version,
		Timeout:     5 * time.Second,
	})

	loginLimiter := appmw.NewRateLimiter(20, time.Minute)

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appmw.NewLoggingMiddleware(appLogger).Handler)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Ready)
	r.Get("/health/live", healthHandler.Live)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(loginLimiter.Handler)
			auth.RegisterRoutes(r, authHandler, sessionMiddleware.RequireSession)
		})

		siteConfigHandler.RegisterRoutes(r, sessionMiddleware.RequireSession)
		if galleryHandler != nil {
			galleryHandler.RegisterRoutes(r, sessionMiddleware.RequireSession)
		}
		bookingHandler.RegisterRoutes(r)
	})

	// Periodic session cleanup, on top of the opportunistic cleanup that
	// runs at the start of every login flow
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runSessionCleanup(cleanupCtx, authService, appLogger)

	dbStats := metrics.NewDBStatsCollector(dbPool, sqlxDB.DB, appLogger)
	dbStats.Start(15 * time.Second)
	defer dbStats.Stop()

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("server exited")
}

// runSessionCleanup removes expired sessions on a fixed interval
func runSessionCleanup(ctx context.Context, authService *auth.Service, log *slog.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := authService.CleanupExpiredSessions(ctx); err != nil {
				log.Warn("session cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// setupDatabase creates and configures the pgx connection pool
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

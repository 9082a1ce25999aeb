package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/verifywoo/pkg/cache"
	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/database"
	"github.com/diagnosis/verifywoo/pkg/events"
	"github.com/diagnosis/verifywoo/pkg/logger"
	mw "github.com/diagnosis/verifywoo/pkg/middleware"
	"github.com/diagnosis/verifywoo/services/auth/internal/handlers"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
	"github.com/diagnosis/verifywoo/services/auth/internal/service"
	"github.com/diagnosis/verifywoo/services/auth/internal/sms"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	// OTP store
	var store repository.OTPStore
	switch cfg.OTP.Store {
	case "memory":
		logger.Warn("Using in-memory OTP store; codes are lost on restart and not shared between replicas")
		store = repository.NewMemoryOTPStore()
	default:
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store = repository.NewRedisOTPStore(rdb)
	}

	// Event bus
	var eventBus events.EventBus = events.NopEventBus{}
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	}
	defer eventBus.Close()

	// Settings
	gatewayDefaults, generalDefaults := repository.DefaultSettings(cfg)
	var settings repository.SettingsStore
	if cfg.SMS.SettingsSource == "env" {
		settings = repository.NewStaticSettingsStore(gatewayDefaults, generalDefaults)
	} else {
		settings = repository.NewPostgresSettingsStore(pool, gatewayDefaults, generalDefaults)
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(pool)
	throttleRepo := repository.NewThrottleRepository(pool)

	// Initialize services
	registry := hooks.NewRegistry()
	factory := sms.NewFactory(sms.DefaultDrivers(sms.WithKavenegarTimeout(cfg.SMS.HTTPTimeout)))
	sessions := service.NewJWTSessionIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	issuance := service.NewIssuanceService(store, settings, factory, registry, eventBus, cfg)
	resolver := service.NewIdentityResolver(accountRepo, settings, sessions, registry, eventBus)
	verification := service.NewVerificationService(store, resolver, registry, cfg)

	// Initialize handlers
	h := handlers.New(issuance, verification, accountRepo, settings, throttleRepo, registry, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handlers.CSRFHeader, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	h.Mount(r)

	port := getEnv("AUTH_PORT", "8081")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting auth service", "port", port, "sms_drivers", factory.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Expired throttle windows are swept in the background.
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := throttleRepo.CleanupExpired(gctx)
				if err != nil {
					logger.Warn("Throttle cleanup failed", "error", err)
					continue
				}
				logger.Debug("Throttle windows cleaned", "deleted", n)
			}
		}
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down auth service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}

func allowedOrigins() []string {
	if origin := os.Getenv("CORS_ALLOWED_ORIGIN"); origin != "" {
		return []string{origin}
	}
	return []string{"http://localhost:8000", "http://localhost:3000"}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

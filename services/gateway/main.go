package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/logger"
	mw "github.com/diagnosis/verifywoo/pkg/middleware"
	"github.com/diagnosis/verifywoo/services/gateway/internal/handlers"
	"github.com/diagnosis/verifywoo/services/gateway/internal/proxy"
)

func main() {
	cfg := config.Load()

	authProxy := proxy.NewServiceProxy(cfg.Services.AuthURL)
	shopProxy := proxy.NewServiceProxy(cfg.Shop.UpstreamURL)

	h := handlers.New(authProxy, shopProxy, cfg)

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8000", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health)
	r.Use(mw.Metrics)

	r.HandleFunc("/auth/*", h.Auth)
	r.With(h.Session, h.CheckoutGate).HandleFunc("/*", h.Shop)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gateway service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway service",
		"port", cfg.Server.Port,
		"auth", cfg.Services.AuthURL,
		"shop", cfg.Shop.UpstreamURL,
		"checkout_redirect_default", cfg.Shop.CheckoutRedirect,
		"settings_ttl", cfg.Shop.SettingsTTL,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}

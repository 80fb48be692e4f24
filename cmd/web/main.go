package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/config"
	"github.com/boddenberg/logistica-web-go/internal/handler"
	"github.com/boddenberg/logistica-web-go/internal/infra/client"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/infra/resilience"
	"github.com/boddenberg/logistica-web-go/internal/proxy"
	"github.com/boddenberg/logistica-web-go/internal/service"
	"github.com/boddenberg/logistica-web-go/internal/session"
	"github.com/boddenberg/logistica-web-go/internal/web"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.String("osrm_base_url", cfg.OSRMBaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Bool("session_cookie_secure", cfg.SessionCookieSecure),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "logistica-web")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{MaxConcurrency: cfg.MaxConcurrency}
	backendCB := resilience.NewCircuitBreaker("backend", logger)
	osrmCB := resilience.NewCircuitBreaker("osrm", logger)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	backendFwd := proxy.NewForwarder("backend", cfg.APIBaseURL, httpClient, backendCB, metrics, logger)
	osrmFwd := proxy.NewForwarder("osrm", cfg.OSRMBaseURL, httpClient, osrmCB, metrics, logger)
	backendClient := client.NewBackendClient(httpClient, cfg.APIBaseURL, backendCB, metrics, logger)

	// --- Services ---
	authSvc := service.NewAuthService(backendClient, logger)
	orderSvc := service.NewOrderService(backendClient, resilienceCfg, metrics, logger)
	dashboardSvc := service.NewDashboardService(backendClient, metrics, logger)
	catalog := service.NewCatalog(backendClient)

	// --- Sessions ---
	codec, err := session.NewCodec(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		logger.Fatal("failed to init session codec", zap.Error(err))
	}
	sessions := session.NewManager(codec, cfg.SessionCookieSecure, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:      authSvc,
		Orders:    orderSvc,
		Dashboard: dashboardSvc,
		Catalog:   catalog,
		Backend:   backendFwd,
		OSRM:      osrmFwd,
		Sessions:  sessions,
		Pages:     web.NewPages(),
		Metrics:   metrics,
		Logger:    logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

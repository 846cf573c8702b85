package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"callhandle-api/flow"
)

const Version = "1.0.0"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	registry := flow.NewRegistry(cfg.FlowDir,
		flow.WithRegistryLogger(logger.Named("flows")),
		flow.WithLoadHook(setFlowsLoaded),
	)
	if n, err := registry.LoadAll(); err != nil {
		logger.Warn("Loading flows failed, starting without flows", zap.String("dir", cfg.FlowDir), zap.Error(err))
	} else {
		logger.Info("Flows loaded", zap.String("dir", cfg.FlowDir), zap.Int("count", n))
	}
	if _, ok := registry.Get(cfg.DefaultFlow); !ok {
		logger.Warn("Default flow is not loaded; /v1/webhook will answer 404", zap.String("flow", cfg.DefaultFlow))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchFlows {
		go func() {
			if err := registry.Watch(ctx); err != nil {
				logger.Error("Flow watcher stopped", zap.Error(err))
			}
		}()
	}

	handler := NewAPIHandler(registry, cfg.DefaultFlow)
	r := newRouter(handler, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	logger.Info("Call handle webhook service starting",
		zap.String("version", Version),
		zap.String("addr", srv.Addr),
		zap.String("default_flow", cfg.DefaultFlow),
		zap.Bool("watch_flows", cfg.WatchFlows),
	)

	if len(cfg.AuthTokens) > 0 {
		logger.Info("Bearer token authentication enabled; localhost requests bypass it", zap.Int("tokens", len(cfg.AuthTokens)))
	} else {
		logger.Warn("Bearer token authentication disabled; API is accessible without authentication from remote hosts")
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server shutdown gracefully")
	}
}

// newRouter wires middlewares and routes.
func newRouter(h *APIHandler, cfg Config, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	// Request ID first so auth failures are logged with it
	r.Use(requestIDMiddleware(logger))
	r.Use(bearerAuthMiddleware(cfg.AuthTokens))
	r.Use(flowAuthMiddleware)
	r.Use(requestSizeLimitMiddleware(cfg.MaxBodyBytes))

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/webhook", h.DefaultWebhook).Methods("GET", "POST")
	v1.HandleFunc("/flows", h.ListFlows).Methods("GET")
	v1.HandleFunc("/flows/reload", h.ReloadFlows).Methods("POST")
	v1.HandleFunc("/flows/{name}", h.GetFlow).Methods("GET")
	v1.HandleFunc("/flows/{name}/webhook", h.FlowWebhook).Methods("GET", "POST")

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

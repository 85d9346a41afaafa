package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/displayname-picker/pkg/config"
	"github.com/platinummonkey/displayname-picker/pkg/host"
	"github.com/platinummonkey/displayname-picker/pkg/httputil"
	"github.com/platinummonkey/displayname-picker/pkg/observability"
	"github.com/platinummonkey/displayname-picker/pkg/picker"
	"github.com/platinummonkey/displayname-picker/pkg/sessions"
)

func main() {
	port := flag.String("port", "", "Port to listen on (overrides DNP_PORT)")
	staticDir := flag.String("static-dir", "", "Static asset directory (overrides DNP_STATIC_DIR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *staticDir != "" {
		cfg.Flow.StaticDir = *staticDir
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	var store sessions.Store
	if cfg.Session.RedisURL != "" {
		redisStore, err := sessions.NewRedisStore(sessions.RedisOptions{
			URL:        cfg.Session.RedisURL,
			Password:   cfg.Session.RedisPassword,
			DB:         cfg.Session.RedisDB,
			DefaultTTL: cfg.Session.TTL,
		})
		if err != nil {
			log.Fatalf("Failed to connect to session store: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
		logger.WithField("redis_url", cfg.Session.RedisURL).Info("using redis session store")
	} else {
		store = sessions.NewMemoryStore()
		logger.Info("using in-process session store")
	}

	api := host.NewClient(cfg.Host.BaseURL, cfg.Host.SharedSecret, cfg.Host.Timeout)
	responses := httputil.NewResponses(logger, cfg.Flow.SupportContact)

	handlers, err := picker.NewHandlers(store, api, responses, logger, picker.Options{
		CookieName: cfg.Session.CookieName,
		StaticDir:  cfg.Flow.StaticDir,
		Metrics:    metrics,
	})
	if err != nil {
		log.Fatalf("Failed to initialize handlers: %v", err)
	}

	router := mux.NewRouter()
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	handlers.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", server.Addr).Info("displayname picker listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Graceful shutdown failed: %v", err)
	}
	logger.Info("displayname picker stopped")
}

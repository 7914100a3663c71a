package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazeru/storefront-checkout-go/internal/config"
	"github.com/nazeru/storefront-checkout-go/internal/relay"
	"github.com/nazeru/storefront-checkout-go/pkg/kafka"
	"github.com/nazeru/storefront-checkout-go/pkg/logging"
	"github.com/nazeru/storefront-checkout-go/pkg/metrics"
	"github.com/nazeru/storefront-checkout-go/pkg/outbox"
)

func main() {
	cfg := config.LoadRelay()
	if cfg.DatabaseURL == "" {
		log.Fatalf("config error: DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()
	if err := outbox.EnsureSchema(connectCtx, pool); err != nil {
		log.Fatalf("db schema error: %v", err)
	}

	publisher, err := kafka.NewPublisher(kafka.NewClient(cfg.KafkaBrokers))
	if err != nil {
		log.Fatalf("kafka error: %v (set KAFKA_BROKERS)", err)
	}
	defer publisher.Close()

	r := relay.New(outbox.NewStore(pool), publisher)
	r.BatchSize = cfg.RelayBatchSize
	r.Interval = cfg.RelayInterval
	go func() {
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("relay stopped: %v", err)
		}
	}()

	srvMetrics := metrics.NewServerMetrics(nil, "checkout_relay")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if err := pool.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error"})
			srvMetrics.Observe("health", http.StatusServiceUnavailable, start)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		srvMetrics.Observe("health", http.StatusOK, start)
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Log(logging.Fields{Service: "checkout-relay", Status: "listening", Message: ":" + cfg.Port})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

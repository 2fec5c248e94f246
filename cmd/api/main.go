package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/dashboard/internal/api"
	"example.com/dashboard/internal/auth"
	"example.com/dashboard/internal/config"
	"example.com/dashboard/internal/feed"
	"example.com/dashboard/internal/outbox"
	persistence "example.com/dashboard/internal/persistence/postgres"
	"example.com/dashboard/internal/session"
	httptransport "example.com/dashboard/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	sessions, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer sessions.Close()

	repo := persistence.NewRepository(pool)
	bus := feed.NewBus()
	cache := feed.NewCache(repo, bus)
	appender := feed.NewAppender(repo, bus)

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	go purgeSessions(ctx, sessions, cfg.SessionTTL, cfg.SessionPurgeEvery)

	handler := api.NewHandler(cache, appender, sessions)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	skip := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}
	// The packages entry point must admit visitors whose authentication has
	// not completed yet; they are routed through login.
	optional := func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, "/v1/packages/intent") && r.URL.Path != "/v1/packages/intent/consume"
	}
	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, skip, optional)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("dashboard-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}

// purgeSessions periodically removes idle sessions so the deferred intent
// cannot outlive the browser session it belongs to.
func purgeSessions(ctx context.Context, sessions *session.DB, ttl, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if removed, err := sessions.PurgeIdle(ctx, ttl); err != nil && ctx.Err() == nil {
			log.Printf("session purge failed: %v", err)
		} else if removed > 0 {
			log.Printf("purged %d idle session values", removed)
		}
	}
}

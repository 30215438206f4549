// Command server wires the consensus engine behind the HTTP API and runs it
// alongside the audit worker and the expiry sweeper.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"knomee/internal/audit"
	consensushandler "knomee/internal/consensus/handler"
	consensusmetrics "knomee/internal/consensus/metrics"
	"knomee/internal/consensus/ports"
	"knomee/internal/consensus/service"
	claimstore "knomee/internal/consensus/store/claim"
	cooldownstore "knomee/internal/consensus/store/cooldown"
	vouchstore "knomee/internal/consensus/store/vouch"
	"knomee/internal/consensus/worker"
	"knomee/internal/governance"
	governancehandler "knomee/internal/governance/handler"
	"knomee/internal/identity"
	"knomee/internal/platform/config"
	"knomee/internal/platform/httpserver"
	"knomee/internal/platform/logger"
	platformmetrics "knomee/internal/platform/metrics"
	platformmiddleware "knomee/internal/platform/middleware"
	platformredis "knomee/internal/platform/redis"
	"knomee/internal/token"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	if err := run(context.Background(), cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := governance.NewClock(cfg.Authority)
	gov, err := governance.New(cfg.Authority, governance.DefaultParams(), clock.Now())
	if err != nil {
		return fmt.Errorf("governance: %w", err)
	}
	registry := identity.NewMemoryRegistry(gov, clock)
	ledger := token.NewMemoryLedger()

	claims, vouches, db, closeDB, err := buildClaimStores(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer closeDB()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cooldowns := buildCooldownStore(redisClient, gov.Snapshot())

	sink, closeSink, err := buildAuditSink(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	defer closeSink()
	inbox := make(audit.ChannelStore, 256)
	auditWorker := audit.NewWorker(sink, inbox)
	publisher := audit.NewPublisher(inbox)

	engineOpts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(consensusmetrics.New()),
	}
	if db != nil {
		engineOpts = append(engineOpts, service.WithDB(db))
	}
	engine, err := service.New(
		claims, vouches, cooldowns,
		registry, registry, ledger,
		gov, clock,
		engineOpts...,
	)
	if err != nil {
		return fmt.Errorf("consensus engine: %w", err)
	}
	sweeper := worker.NewSweeper(engine, cfg.SweepInterval, log)

	router := chi.NewRouter()
	router.Use(platformmetrics.New().Latency)
	if cfg.RateLimit > 0 {
		var limiter platformmiddleware.Limiter
		if redisClient != nil {
			limiter = platformmiddleware.NewRedisLimiter(redisClient.Client, cfg.RateLimit, time.Minute)
		} else {
			limiter = platformmiddleware.NewSlidingWindowLimiter(cfg.RateLimit, time.Minute)
		}
		router.Use(platformmiddleware.RateLimit(limiter, log))
	}
	consensushandler.New(engine, log).Register(router)
	governancehandler.New(gov, clock, registry, publisher, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting knomee", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := auditWorker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := sweeper.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildClaimStores selects Postgres-backed claim and vouch stores when a URL
// is configured, in-memory otherwise. The returned *sql.DB is nil for memory
// stores; when non-nil the engine uses it as its transaction boundary.
func buildClaimStores(ctx context.Context, cfg config.PostgresConfig) (ports.ClaimStore, ports.VouchStore, *sql.DB, func(), error) {
	if cfg.URL == "" {
		return claimstore.NewMemoryStore(), vouchstore.NewMemoryStore(), nil, func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return claimstore.NewPostgres(db), vouchstore.NewPostgres(db), db, func() { db.Close() }, nil
}

// buildCooldownStore selects the Redis cooldown store when a client is
// configured. Keys expire a little after the longest cooldown they can
// represent.
func buildCooldownStore(client *platformredis.Client, params governance.Params) ports.CooldownStore {
	if client == nil {
		return cooldownstore.NewMemoryStore()
	}
	ttl := params.DuplicateFlagCooldown + 24*time.Hour
	return cooldownstore.NewRedis(client.Client, ttl)
}

// buildAuditSink selects the Kafka audit store when brokers are configured.
func buildAuditSink(ctx context.Context, cfg config.KafkaConfig) (audit.Store, func(), error) {
	if len(cfg.Brokers) == 0 {
		return audit.NewMemoryStore(), func() {}, nil
	}
	store, err := audit.NewKafkaStore(ctx, cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka audit store: %w", err)
	}
	return store, func() { store.Close() }, nil
}

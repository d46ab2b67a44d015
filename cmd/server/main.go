// Command server runs the spice industry registration portal: the
// backend-for-frontend that fronts the upstream registration REST API with
// draft storage, a step-machine registration flow, admin user management and
// the approval pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"spiceportal/internal/adminusers"
	adminhandler "spiceportal/internal/adminusers/handler"
	"spiceportal/internal/approval"
	approvalhandler "spiceportal/internal/approval/handler"
	"spiceportal/internal/audit"
	"spiceportal/internal/authn"
	authnhandler "spiceportal/internal/authn/handler"
	"spiceportal/internal/gateway"
	"spiceportal/internal/platform/config"
	"spiceportal/internal/platform/httpserver"
	"spiceportal/internal/platform/logger"
	"spiceportal/internal/platform/metrics"
	"spiceportal/internal/platform/redis"
	"spiceportal/internal/registration/draft"
	"spiceportal/internal/registration/flow"
	registrationhandler "spiceportal/internal/registration/handler"
	"spiceportal/internal/token"
	transport "spiceportal/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Audit trail: postgres when configured, in-memory otherwise; Kafka
	// mirroring only when brokers are set.
	var auditStore audit.Store
	if pool != nil {
		pgStore := audit.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		auditStore = pgStore
	} else {
		auditStore = audit.NewMemoryStore()
	}
	kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer kafkaSink.Close()
	auditWorker := audit.NewWorker(auditStore, kafkaSink, log)

	var drafts draft.Store
	if redisClient != nil {
		drafts = draft.NewRedis(redisClient, cfg.DraftTTL)
	} else {
		drafts = draft.NewInMemory()
	}

	var upstreamTokens authn.TokenStore
	if redisClient != nil {
		upstreamTokens = authn.NewRedisTokenStore(redisClient)
	} else {
		upstreamTokens = authn.NewMemoryTokenStore()
	}

	jwtService := token.NewService(cfg.JWT)
	upstream := gateway.New(cfg.Upstream, authn.NewSessionTokenSource(upstreamTokens), log, m)

	approvalService := approval.NewService(upstream, auditWorker, log, m)
	flowService := flow.NewService(drafts, upstream, approvalService, log, m)
	editor := adminusers.NewEditor(upstream, auditWorker, log, m)
	authnService := authn.NewService(upstream, upstreamTokens, jwtService, cfg.JWT, cfg.BootstrapAdmin, log)

	var health []transport.HealthCheck
	if redisClient != nil {
		health = append(health, transport.HealthCheck{Name: "redis", Check: redisClient.Health})
	}
	if pool != nil {
		health = append(health, transport.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	router := transport.NewRouter(transport.Dependencies{
		Logger:       log,
		Metrics:      m,
		Validator:    jwtService,
		Auth:         authnhandler.New(authnService, log),
		Registration: registrationhandler.New(flowService, log),
		AdminUsers:   adminhandler.New(editor, log),
		Approvals:    approvalhandler.New(approvalService, log),
		Health:       health,
	})

	server := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return auditWorker.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

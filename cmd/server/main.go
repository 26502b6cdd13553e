// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	agentservice "paygate/internal/agent/service"
	agentstore "paygate/internal/agent/store"
	"paygate/internal/authz"
	"paygate/internal/ledger"
	paymetrics "paygate/internal/payment/metrics"
	payservice "paygate/internal/payment/service"
	paystore "paygate/internal/payment/store"
	"paygate/internal/platform/config"
	"paygate/internal/platform/httpserver"
	"paygate/internal/platform/logger"
	platformredis "paygate/internal/platform/redis"
	ruleservice "paygate/internal/rules/service"
	rulestore "paygate/internal/rules/store"
	"paygate/internal/token"
	httptransport "paygate/internal/transport/http"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("configuration failed", "error", err)
		os.Exit(1)
	}
	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	ldg := ledger.NewMemoryLedger()
	authority := authz.NewAuthority()

	agents, err := agentservice.New(agentstore.NewInMemoryAgentStore(), authority, ldg,
		agentservice.WithLogger(log))
	if err != nil {
		log.Error("agent service init failed", "error", err)
		os.Exit(1)
	}

	rules, err := ruleservice.New(rulestore.NewInMemoryRuleStore(), agents, authority, ldg,
		ruleservice.WithLogger(log))
	if err != nil {
		log.Error("rule service init failed", "error", err)
		os.Exit(1)
	}

	stores := payservice.Stores{
		RuleSets:   paystore.NewInMemoryRuleSetStore(),
		Whitelist:  paystore.NewInMemoryWhitelistStore(),
		Spending:   paystore.NewInMemorySpendingStore(),
		RateLimits: paystore.NewInMemoryRateLimitStore(),
		Audit:      paystore.NewInMemoryAuditStore(),
		Halts:      paystore.NewInMemoryHaltStore(),
	}

	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		auditStore := paystore.NewPostgresAuditStore(db)
		if err := auditStore.EnsureSchema(context.Background()); err != nil {
			log.Error("postgres schema failed", "error", err)
			os.Exit(1)
		}
		stores.Audit = auditStore
		log.Info("audit log backed by postgres")
	}

	if redisClient, err := platformredis.New(cfg.Redis); err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	} else if redisClient != nil {
		stores.Spending = paystore.NewRedisSpendingStore(redisClient.Client)
		log.Info("spending accumulators backed by redis")
	}

	payments, err := payservice.New(agents, rules, authority, ldg, stores,
		payservice.WithLogger(log),
		payservice.WithMetrics(paymetrics.New()),
	)
	if err != nil {
		log.Error("payment service init failed", "error", err)
		os.Exit(1)
	}

	tokens := token.NewService(cfg.JWTSigningKey, "paygate")
	handler := httptransport.NewHandler(agents, rules, payments, authority, log)
	router := httptransport.NewRouter(handler, tokens)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting paygate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

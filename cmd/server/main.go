package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"careledger/internal/audit"
	"careledger/internal/audit/sink"
	auditmemory "careledger/internal/audit/store/memory"
	auditpostgres "careledger/internal/audit/store/postgres"
	"careledger/internal/authz"
	"careledger/internal/authz/claims"
	"careledger/internal/jwttoken"
	"careledger/internal/platform/config"
	"careledger/internal/platform/httpserver"
	"careledger/internal/platform/logger"
	"careledger/internal/platform/metrics"
	platformredis "careledger/internal/platform/redis"
	httpapi "careledger/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when a DSN is configured, in-memory otherwise so the
	// service stays runnable in development.
	var (
		auditStore  audit.Store
		claimsStore authz.ClaimsStore
		claimsAdmin httpapi.ClaimsAdmin
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		auditStore = auditpostgres.New(db)
		pgClaims := claims.NewPostgresStore(db)
		claimsStore, claimsAdmin = pgClaims, pgClaims
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		auditStore = auditmemory.NewInMemoryStore()
		memClaims := claims.NewInMemoryStore()
		claimsStore, claimsAdmin = memClaims, memClaims
	}

	var handlerOpts []httpapi.HandlerOption
	if cfg.RedisAddr != "" && cfg.ClaimsCacheTTL > 0 {
		client, err := platformredis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		cached := claims.NewCachedStore(claimsStore, client.Client, cfg.ClaimsCacheTTL, log)
		claimsStore = cached
		handlerOpts = append(handlerOpts, httpapi.WithClaimsCache(cached))
	}

	queue := audit.NewQueue(cfg.QueueCapacity)
	recorder := audit.NewRecorder(queue, log, nil, audit.WithRecorderMetrics(m))

	workerOpts := []audit.WorkerOption{
		audit.WithBatchSize(cfg.DrainBatchSize),
		audit.WithShutdownGrace(cfg.ShutdownGrace),
		audit.WithWorkerMetrics(m),
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("create kafka sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		workerOpts = append(workerOpts, audit.WithSink(kafkaSink))
	}
	worker := audit.NewWorker(queue, auditStore, log, workerOpts...)

	evaluator := authz.NewEvaluator(claimsStore, m)
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "careledger", "careledger-api")

	handler := httpapi.NewHandler(audit.NewService(auditStore), recorder, evaluator, claimsAdmin, jwtService, log, handlerOpts...)
	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(handler, log))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return worker.Run(groupCtx)
	})

	group.Go(func() error {
		log.Info("starting careledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		// Stop accepting requests before the worker's final flush so no new
		// events race the shutdown drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("careledger stopped")
}

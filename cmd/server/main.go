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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"cardgen/internal/audit"
	"cardgen/internal/auth"
	"cardgen/internal/barcode"
	"cardgen/internal/barcode/bwipjs"
	"cardgen/internal/generation"
	generationHandler "cardgen/internal/generation/handler"
	"cardgen/internal/ledger"
	ledgerHandler "cardgen/internal/ledger/handler"
	ledgerService "cardgen/internal/ledger/service"
	"cardgen/internal/ledger/store/account"
	"cardgen/internal/platform/config"
	"cardgen/internal/platform/httpserver"
	"cardgen/internal/platform/logger"
	"cardgen/internal/platform/metrics"
	platformredis "cardgen/internal/platform/redis"
	"cardgen/internal/ratelimit"
	httptransport "cardgen/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ledger store: Postgres when configured, in-memory for development.
	var store ledger.Store
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		pgStore := account.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
		store = pgStore
	} else {
		log.Warn("DATABASE_URL not set; using in-memory ledger store")
		store = account.NewMemory()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline: structured log sink always, Kafka when brokers are
	// configured.
	sinks := []audit.Sink{audit.NewSlogSink(log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	auditor := audit.NewAsyncPublisher(sinks, audit.WithLogger(log))
	defer auditor.Close()

	m := metrics.New()

	ledgerSvc, err := ledgerService.New(store, ledgerService.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build ledger service: %w", err)
	}

	engine := bwipjs.NewClient(cfg.BwipjsURL, cfg.RenderTimeout)
	renderer, err := barcode.NewAdapter(engine, barcode.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build render adapter: %w", err)
	}

	workflow, err := generation.New(ledgerSvc, renderer, ledger.Credits(cfg.GenerationCost),
		generation.WithLogger(log),
		generation.WithMetrics(m),
		generation.WithAuditPublisher(auditor),
		generation.WithCompensationTimeout(cfg.CompensationTimeout),
	)
	if err != nil {
		return fmt.Errorf("build generation workflow: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.JWTSigningKey, "cardgen")
	limiter := ratelimit.NewLimiter(redisClient, cfg.GenerationPerMinute, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		TokenValidator: jwtService,
		RequestTimeout: cfg.RequestTimeout,
		Generation:     generationHandler.New(workflow, log),
		Credits:        ledgerHandler.New(ledgerSvc, log, auditor),
		Limiter:        limiter,
		Ready: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting cardgen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

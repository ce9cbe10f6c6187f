package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	audithandler "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit/handler"
	auditkafka "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit/store/kafka"
	auditmemory "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit/store/memory"
	auditpostgres "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit/store/postgres"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget"
	budgetmemory "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget/store/memory"
	budgetpostgres "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget/store/postgres"
	budgetredis "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget/store/redis"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/collector"
	collectorhandler "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/collector/handler"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/consent"
	consenthandler "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/consent/handler"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/config"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/httpserver"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/kafka"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/logger"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/metrics"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/postgres"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/redis"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/privacy"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/scoring"
	httptransport "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/transport/http"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// main wires the collection pipeline to its backing services and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "metricsd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	ctx := context.Background()

	v, err := buildVault(cfg, log, m)
	if err != nil {
		return err
	}
	defer v.Close()

	pg, err := postgres.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if pg != nil {
		defer pg.Close()
	}

	rdb, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	kc, err := kafka.New(cfg.KafkaBrokers)
	if err != nil {
		return err
	}
	if kc != nil {
		defer kc.Close()
	}

	auditStore, auditReader, auditCleanup, err := buildAuditStore(ctx, cfg, kc, log)
	if err != nil {
		return err
	}
	if auditCleanup != nil {
		defer auditCleanup()
	}

	sink := audit.NewChannelSink(cfg.AuditBuffer,
		audit.WithSinkLogger(log),
		audit.WithSinkMetrics(m),
	)
	worker := audit.NewWorker(auditStore, sink.Events(),
		audit.WithWorkerLogger(log),
		audit.WithWorkerMetrics(m),
	)
	workerCtx, stopWorker := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = worker.Run(workerCtx)
	}()

	trail := audit.New(sink,
		audit.WithLogger(log),
		audit.WithMetrics(m),
		audit.WithKeys(v.PseudonymKey(), v.IntegrityKey()),
	)

	ledger, err := buildLedger(ctx, cfg, pg, rdb, log)
	if err != nil {
		stopWorker()
		wg.Wait()
		return err
	}

	engine := privacy.New(privacy.Policy{
		EpsilonFloor:   cfg.EpsilonFloor,
		EpsilonCeiling: cfg.EpsilonCeiling,
		EpsilonDefault: cfg.EpsilonDefault,
	},
		privacy.WithSensitivity(cfg.Sensitivity),
		privacy.WithLogger(log),
	)

	coll := collector.New(scoring.NewStatic(scoring.DefaultBaseline()), engine,
		collector.WithLedger(ledger),
		collector.WithTrail(trail),
		collector.WithVault(v),
		collector.WithLogger(log),
		collector.WithMetrics(m),
		collector.WithConsentRequired(cfg.ConsentRequired),
	)

	consents := consent.NewService(consent.NewMemoryStore())
	attestor := consent.NewAttestor(cfg.AttestationKey, "pain-tracker/metricsd")

	handlers := []httptransport.Registrar{
		collectorhandler.New(coll, attestor, log),
		consenthandler.New(consents, attestor, log),
	}
	if auditReader != nil {
		handlers = append(handlers, audithandler.New(auditReader, trail, log))
	}

	router := httptransport.NewRouter(log, buildChecks(pg, rdb, kc), handlers...)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting metricsd",
		"addr", cfg.Addr,
		"consent_required", cfg.ConsentRequired,
		"postgres", pg != nil,
		"redis", rdb != nil,
		"kafka", kc != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		stopWorker()
		wg.Wait()
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	// Stop accepting requests first so no new audit events arrive, then let
	// the worker drain what is buffered.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	stopWorker()
	wg.Wait()
	return nil
}

// buildVault loads the root key from config or generates an ephemeral one.
// With an ephemeral root, sealed envelopes do not survive a restart.
func buildVault(cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*vault.Vault, error) {
	opts := []vault.Option{vault.WithLogger(log), vault.WithMetrics(m)}
	if cfg.RootKeyBase64 != "" {
		root, err := base64.StdEncoding.DecodeString(cfg.RootKeyBase64)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeKeyInit, "decode root key", err)
		}
		v, err := vault.New(root, opts...)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeKeyInit, "construct vault", err)
		}
		return v, nil
	}

	root := make([]byte, 32)
	if _, err := rand.Read(root); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeKeyInit, "generate ephemeral root", err)
	}
	log.Warn("no root key configured, using an ephemeral key for this process")
	v, err := vault.New(root, opts...)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeKeyInit, "construct vault", err)
	}
	return v, nil
}

// buildAuditStore picks the durable sink: Kafka when brokers are configured,
// then Postgres, then process-local memory. The reader is nil for Kafka;
// stream events are consumed downstream, not queried here.
func buildAuditStore(ctx context.Context, cfg config.Config, kc *kafka.Client, log *slog.Logger) (audit.Store, audithandler.Reader, func(), error) {
	if kc != nil {
		if err := kc.EnsureTopic(ctx, cfg.KafkaTopic, 3, 1); err != nil {
			return nil, nil, nil, err
		}
		log.Info("audit events stream to kafka", "topic", cfg.KafkaTopic)
		return auditkafka.New(kc, cfg.KafkaTopic), nil, nil, nil
	}
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open audit database: %w", err)
		}
		store := auditpostgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info("audit events persist to postgres")
		return store, store, func() { db.Close() }, nil
	}
	log.Warn("audit events are held in memory only")
	store := auditmemory.New()
	return store, store, nil, nil
}

// buildLedger picks the budget backend: Postgres when configured, then
// Redis, then process-local memory.
func buildLedger(ctx context.Context, cfg config.Config, pg *postgres.Client, rdb *redis.Client, log *slog.Logger) (budget.Ledger, error) {
	limits := budget.Limits{Cap: cfg.BudgetCap, Window: cfg.BudgetWindow}
	if pg != nil {
		store := budgetpostgres.New(pg.Pool, limits)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		log.Info("privacy budget tracked in postgres", "cap", limits.Cap, "window", limits.Window.String())
		return store, nil
	}
	if rdb != nil {
		log.Info("privacy budget tracked in redis", "cap", limits.Cap, "window", limits.Window.String())
		return budgetredis.New(rdb.Client, limits), nil
	}
	log.Info("privacy budget tracked in memory", "cap", limits.Cap, "window", limits.Window.String())
	return budgetmemory.New(limits), nil
}

func buildChecks(pg *postgres.Client, rdb *redis.Client, kc *kafka.Client) []httptransport.Check {
	var checks []httptransport.Check
	if pg != nil {
		checks = append(checks, httptransport.Check{Name: "postgres", Checker: pg})
	}
	if rdb != nil {
		checks = append(checks, httptransport.Check{Name: "redis", Checker: rdb})
	}
	if kc != nil {
		checks = append(checks, httptransport.Check{Name: "kafka", Checker: kc})
	}
	return checks
}

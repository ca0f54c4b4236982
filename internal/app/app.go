// Package app assembles the record keeper's object graph from configuration:
// database, cache, ledger client, journal, and the lifecycle services. The
// server binary and integration harnesses share this wiring.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	didcache "anchorid/internal/did/cache"
	didmetrics "anchorid/internal/did/metrics"
	didservice "anchorid/internal/did/service"
	didstore "anchorid/internal/did/store"
	issuerstore "anchorid/internal/issuer/store"
	"anchorid/internal/journal"
	"anchorid/internal/journal/publisher"
	journalstore "anchorid/internal/journal/store"
	"anchorid/internal/ledger"
	"anchorid/internal/platform/config"
	"anchorid/internal/platform/postgres"
	platformredis "anchorid/internal/platform/redis"
	userstore "anchorid/internal/user/store"
	vcmetrics "anchorid/internal/vc/metrics"
	vcservice "anchorid/internal/vc/service"
	vcstore "anchorid/internal/vc/store"
	vpservice "anchorid/internal/vp/service"
	vpstore "anchorid/internal/vp/store"
)

// App is the wired record keeper.
type App struct {
	DB      *sql.DB
	Journal *journal.Recorder
	Ledger  ledger.Client

	DIDs          *didservice.Service
	Credentials   *vcservice.Service
	Presentations *vpservice.Service

	Users   *userstore.Postgres
	Issuers *issuerstore.Postgres

	redis *platformredis.Client
	kafka *publisher.Kafka
}

// New connects the backing stores and wires the services. The returned App
// owns every connection it opened; release them with Close.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	txRunner := postgres.NewTxRunner(db)

	a := &App{DB: db}

	// Resolution cache: Redis when configured, process-local otherwise.
	var resolutionCache didservice.ResolutionCache
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	if redisClient != nil {
		a.redis = redisClient
		resolutionCache = didcache.NewRedis(redisClient, cfg.ResolutionCacheTTL, log)
		log.Info("resolution cache backed by redis")
	} else {
		resolutionCache = didcache.NewMemory(cfg.ResolutionCacheTTL)
	}

	if cfg.LedgerURL != "" {
		a.Ledger = ledger.NewHTTPClient(cfg.LedgerURL, cfg.LedgerTimeout)
		log.Info("ledger gateway configured", "url", cfg.LedgerURL)
	} else {
		a.Ledger = ledger.NewSimulator()
		log.Warn("no ledger gateway configured, using the in-process simulator")
	}

	recorderOpts := []journal.RecorderOption{journal.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.KafkaBrokers, cfg.JournalTopic, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.kafka = kafka
		recorderOpts = append(recorderOpts, journal.WithPublisher(kafka))
		log.Info("journal fan-out enabled", "topic", cfg.JournalTopic)
	}
	a.Journal = journal.NewRecorder(journalstore.NewPostgres(db), recorderOpts...)

	dids := didstore.NewPostgres(db)
	creds := vcstore.NewPostgres(db)
	a.Users = userstore.NewPostgres(db)
	a.Issuers = issuerstore.NewPostgres(db)
	presentations := vpstore.NewPostgres(db)

	a.DIDs = didservice.NewService(dids, creds, a.Ledger, a.Journal,
		didservice.WithUserStore(a.Users),
		didservice.WithTx(txRunner),
		didservice.WithCache(resolutionCache),
		didservice.WithLogger(log),
		didservice.WithMetrics(didmetrics.New()),
		didservice.WithMethod(cfg.DIDMethod),
	)
	a.Credentials = vcservice.NewService(creds, dids, a.Ledger, a.Journal,
		vcservice.WithTx(txRunner),
		vcservice.WithLogger(log),
		vcservice.WithMetrics(vcmetrics.New()),
	)
	a.Presentations = vpservice.NewService(presentations, creds, dids,
		vpservice.WithLogger(log),
	)

	return a, nil
}

// Close releases every connection the App opened.
func (a *App) Close() error {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return a.DB.Close()
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/events"
	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/memory"
	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/metrics"
	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/mongodb"
	sqliteadapter "github.com/atvirokodosprendimai/mongoschema/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/ports"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/usecase"
	"github.com/atvirokodosprendimai/mongoschema/migrations"
)

// ErrReportsUnavailable is returned for reports when no MongoDB engine backs
// the runtime.
var ErrReportsUnavailable = errors.New("reports need a MongoDB connection and are not available with --dry-run")

type Config struct {
	// SettingsPath is the settings file consulted for values left empty below.
	SettingsPath   string
	MongoURI       string
	Database       string
	ConnectTimeout time.Duration
	AuditDBPath    string
	WebhookURL     string
	WebhookSecret  string
	APIKeys        []string
	Debug          bool
	// DryRun swaps MongoDB for the in-memory engine.
	DryRun bool
}

// NewLogger builds the process logger. Output goes to stderr so command
// results on stdout stay machine readable.
func NewLogger(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Runtime wires the engine, the audit database and the services the CLI
// commands and the HTTP server share.
type Runtime struct {
	Log     *zap.SugaredLogger
	Schema  *usecase.TrackedSchemaManager
	Seed    *usecase.SeedService
	Audit   *usecase.AuditService
	Auth    *usecase.AuthService
	Metrics *metrics.Collector

	reports   *usecase.ReportService
	outbox    ports.OutboxRepository
	publisher ports.ChangePublisher
	closer    resourceCloser
}

// Open resolves cfg against the settings file, connects to the engine and
// migrates the audit database.
func Open(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cfg, err := resolveConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Log: log, Metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	var (
		engine     ports.DocumentEngine
		store      ports.SeedStore
		aggregator ports.Aggregator
	)
	if cfg.DryRun {
		mem := memory.NewEngine()
		engine, store = mem, mem
		log.Infow("using in-memory engine", "dry_run", true)
	} else {
		client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.Database, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		rt.closer.closers = append(rt.closer.closers, client)
		mongoEngine := mongodb.NewEngine(client.Database())
		engine, store, aggregator = mongoEngine, mongoEngine, mongoEngine
		log.Infow("connected to mongodb", "database", cfg.Database)
	}

	db, err := gormsqlite.Open(cfg.AuditDBPath, gormsqlite.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open audit sqlite: %w", err)
	}
	rt.closer.closers = append(rt.closer.closers, db)

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		return nil, fmt.Errorf("resolve writer sql db: %w", err)
	}
	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB, log); err != nil {
		return nil, err
	}

	rt.Audit = usecase.NewAuditService(sqliteadapter.NewSchemaChangeRepository(db))
	rt.Auth = usecase.NewAuthService(sqliteadapter.NewAPIKeyRepository(db))
	rt.outbox = sqliteadapter.NewOutboxRepository(db)
	rt.publisher = newPublisher(cfg, log)

	rt.Schema = usecase.NewTrackedSchemaManager(usecase.NewSchemaManager(engine),
		usecase.WithRecorder(rt.Audit),
		usecase.WithObserver(rt.Metrics),
		usecase.WithLogger(log),
	)
	rt.Seed = usecase.NewSeedService(rt.Schema, store, log)
	if aggregator != nil {
		rt.reports = usecase.NewReportService(aggregator)
	}

	for _, key := range cfg.APIKeys {
		if err := rt.Auth.Register(ctx, "bootstrap", key); err != nil {
			return nil, fmt.Errorf("bootstrap api key: %w", err)
		}
	}

	ok = true
	return rt, nil
}

// Reports returns the report service, or ErrReportsUnavailable in dry-run mode.
func (rt *Runtime) Reports() (*usecase.ReportService, error) {
	if rt.reports == nil {
		return nil, ErrReportsUnavailable
	}
	return rt.reports, nil
}

func (rt *Runtime) Close() error {
	return rt.closer.Close()
}

// NewServer builds the HTTP server and starts the outbox dispatcher. The
// returned closer stops the dispatcher; the runtime itself is closed by the
// caller.
func (rt *Runtime) NewServer(addr string) (*http.Server, io.Closer) {
	dispatcher := usecase.NewOutboxDispatcher(rt.outbox, rt.publisher, 2*time.Second, 100,
		usecase.WithDispatchObserver(rt.Metrics),
		usecase.WithDispatchLogger(rt.Log),
	)
	dispatcher.Start(context.Background())

	handler := httpapi.NewHandler(rt.Schema, rt.Audit, rt.Auth,
		httpapi.WithLogger(rt.Log),
		httpapi.WithMetrics(rt.Metrics.Handler()),
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server, dispatcher
}

func newPublisher(cfg Config, log *zap.SugaredLogger) ports.ChangePublisher {
	if cfg.WebhookURL != "" {
		log.Infow("publishing schema changes to webhook", "url", cfg.WebhookURL)
		return events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret, 0)
	}
	return events.NewLogPublisher(log)
}

func resolveConfig(cfg Config, log *zap.SugaredLogger) (Config, error) {
	if cfg.AuditDBPath == "" {
		cfg.AuditDBPath = "./mongoschema.sqlite"
	}
	if cfg.DryRun {
		return cfg, nil
	}
	if cfg.MongoURI == "" || cfg.Database == "" {
		settings, created, err := LoadSettings(cfg.SettingsPath)
		if err != nil {
			return Config{}, err
		}
		if created {
			log.Infow("wrote default settings file", "path", settingsPathOrDefault(cfg.SettingsPath))
		}
		if cfg.MongoURI == "" {
			cfg.MongoURI = settings.Mongo.ConnectionString
		}
		if cfg.Database == "" {
			cfg.Database = settings.Mongo.Database
		}
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	return cfg, nil
}

func settingsPathOrDefault(path string) string {
	if path == "" {
		return DefaultSettingsFile
	}
	return path
}

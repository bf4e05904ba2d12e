package cli

import (
	"context"

	"github.com/turtacn/MedKG-Intelligence/internal/application/engine"
	"github.com/turtacn/MedKG-Intelligence/internal/application/query"
	"github.com/turtacn/MedKG-Intelligence/internal/application/resolution"
	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	neo4jdriver "github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/relational"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/sqlite"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/MedKG-Intelligence/internal/intelligence/linker"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// storeMode selects how the relational store is attached.
type storeMode int

const (
	// storeRead attaches for serving: the SQLite file is opened read-only
	// so store watchers never observe writes from this process.
	storeRead storeMode = iota
	// storeWrite attaches for loading: the SQLite file and schema are
	// created on demand and Postgres migrations are applied.
	storeWrite
)

// app owns the backends a command opens and releases them in reverse order.
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	closers []func() error

	collector prometheus.MetricsCollector
	metrics   *prometheus.AppMetrics

	redis       *redis.Client
	redisOpened bool
	graph       repositories.KnowledgeGraphRepository
	graphDriver *neo4jdriver.Driver
	graphOpened bool
}

func newApp(cc *CLIContext) *app {
	return &app{cfg: cc.Config, logger: cc.Logger}
}

func (a *app) onClose(fn func() error) { a.closers = append(a.closers, fn) }

// Close releases every backend opened through a.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release backend", logging.Err(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

// openStore attaches the configured relational store.
func (a *app) openStore(ctx context.Context, mode storeMode) (*relational.Store, error) {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		if mode == storeWrite {
			return postgres.Open(ctx, a.cfg.Store.Postgres, a.logger)
		}
		conn, err := postgres.NewConnection(ctx, a.cfg.Store.Postgres, a.logger)
		if err != nil {
			return nil, err
		}
		return conn.Store(), nil
	default:
		sc := a.cfg.Store.SQLite
		if mode == storeRead {
			sc.ReadOnly = true
		}
		return sqlite.Open(ctx, sc, a.logger, sqlite.Options{Create: mode == storeWrite})
	}
}

// Metrics returns the process metrics, registering them on first use.
// Disabled metrics yield a nil *AppMetrics, which records nothing.
func (a *app) Metrics() *prometheus.AppMetrics {
	if a.metrics != nil || !a.cfg.Metrics.Enabled {
		return a.metrics
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            a.cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, a.logger)
	if err != nil {
		a.logger.Warn("metrics disabled", logging.Err(err))
		return nil
	}
	a.collector = collector
	a.metrics = prometheus.NewAppMetrics(collector)
	return a.metrics
}

// Engine builds a serving engine over the read-only store.  The caller
// starts it; a is responsible for closing it.
func (a *app) Engine() (*engine.Engine, error) {
	scorer, err := linker.NewScorer(a.cfg.Linker.FuzzyScorer)
	if err != nil {
		return nil, errors.MalformedInput("unknown fuzzy scorer").WithDetail(a.cfg.Linker.FuzzyScorer)
	}
	eng := engine.New(func(ctx context.Context) (kg.Store, error) {
		store, err := a.openStore(ctx, storeRead)
		if err != nil {
			return nil, err
		}
		return store, nil
	}, a.logger, engine.WithScorer(scorer), engine.WithMetrics(a.Metrics()))
	a.onClose(eng.Close)
	return eng, nil
}

// StartedEngine builds an engine and loads its first snapshot.
func (a *app) StartedEngine(ctx context.Context) (*engine.Engine, error) {
	eng, err := a.Engine()
	if err != nil {
		return nil, err
	}
	if err := eng.Start(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

// Services builds the resolution and query services over eng, fronted by
// the redis cache and the Neo4j neighbor finder when those are enabled.
func (a *app) Services(ctx context.Context, eng *engine.Engine) (*resolution.Service, query.KGQueryService, error) {
	var (
		resOpts   = []resolution.Option{resolution.WithMetrics(a.Metrics())}
		queryOpts []query.Option
	)

	// The cache is an accelerator; an unreachable redis disables it.
	rc, err := a.Redis(ctx)
	if err != nil {
		a.logger.Warn("result cache disabled", logging.Err(err))
	}
	if rc != nil {
		rcfg := a.cfg.Cache.Redis
		cache := redis.NewRedisCache(rc, a.logger, redis.WithPrefix(rcfg.KeyPrefix), redis.WithDefaultTTL(rcfg.DefaultTTL))
		resOpts = append(resOpts, resolution.WithCache(cache))
		queryOpts = append(queryOpts, query.WithCache(cache))
	}

	if a.cfg.Graph.Neo4j.ServeNeighbors {
		graph, _, err := a.Graph(ctx)
		if err != nil {
			return nil, nil, err
		}
		queryOpts = append(queryOpts, query.WithGraph(graph))
	}

	lc := a.cfg.Linker
	svc := resolution.NewService(eng, resolution.Config{
		Threshold:          lc.Threshold,
		FuzzyFallback:      lc.FuzzyFallback,
		NormalizeToGeneric: lc.NormalizeToGeneric,
		BatchConcurrency:   lc.BatchConcurrency,
		MaxBatchSize:       lc.MaxBatchSize,
		SearchLimit:        lc.SearchLimit,
		MaxSearchLimit:     lc.MaxSearchLimit,
		CacheTTL:           a.cfg.Cache.Redis.DefaultTTL,
	}, a.logger, resOpts...)
	return svc, query.NewKGQueryService(eng, a.logger, queryOpts...), nil
}

// Redis connects the cache backend once, or returns nil when it is
// disabled.
func (a *app) Redis(ctx context.Context) (*redis.Client, error) {
	if a.redisOpened || !a.cfg.Cache.Redis.Enabled {
		return a.redis, nil
	}
	client, err := redis.NewClient(ctx, a.cfg.Cache.Redis, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(client.Close)
	a.redis, a.redisOpened = client, true
	return client, nil
}

// Graph connects the Neo4j projection once, or returns nil when it is
// disabled.
func (a *app) Graph(ctx context.Context) (repositories.KnowledgeGraphRepository, *neo4jdriver.Driver, error) {
	nc := a.cfg.Graph.Neo4j
	if a.graphOpened || !nc.Enabled {
		return a.graph, a.graphDriver, nil
	}
	d, err := neo4jdriver.NewDriver(ctx, nc, a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.onClose(d.Close)
	a.graph = repositories.NewNeo4jKnowledgeGraphRepo(d, nc.SyncBatchSize, a.logger)
	a.graphDriver, a.graphOpened = d, true
	return a.graph, d, nil
}

// Publisher connects the reload-event producer, or returns nil when Kafka
// is disabled.
func (a *app) Publisher(source string) (*kafka.SnapshotPublisher, error) {
	kc := a.cfg.Messaging.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(kc), a.logger.Named("kafka"))
	if err != nil {
		return nil, err
	}
	a.onClose(producer.Close)
	return kafka.NewSnapshotPublisher(producer, kc.Topic, source, a.Metrics()), nil
}

// Snapshots connects the staged-document bucket, or returns nil when MinIO
// is disabled.
func (a *app) Snapshots(ctx context.Context) (*minio.SnapshotRepository, *minio.MinIOClient, error) {
	if !a.cfg.Storage.MinIO.Enabled {
		return nil, nil, nil
	}
	client, err := minio.NewMinIOClient(ctx, a.cfg.Storage.MinIO, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return minio.NewSnapshotRepository(client, a.logger), client, nil
}

//Personal.AI order the ending

package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8000
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultStoreDriver       = DriverSQLite
	DefaultSQLitePath        = "data/medical_kg.db"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultSnapshotPath      = "data/unified_ontology.json"

	DefaultPostgresPort          = 5432
	DefaultPostgresDBName        = "medkg"
	DefaultPostgresSSLMode       = "disable"
	DefaultPostgresMaxOpenConns  = 25
	DefaultPostgresMaxIdleConns  = 5
	DefaultPostgresConnLifetime  = 30 * time.Minute
	DefaultPostgresMigrationPath = "embedded"

	DefaultLinkerThreshold      = 85
	DefaultLinkerFuzzyScorer    = "jaro_winkler"
	DefaultLinkerConcurrency    = 8
	DefaultLinkerMaxBatchSize   = 500
	DefaultLinkerSearchLimit    = 10
	DefaultLinkerMaxSearchLimit = 100

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisTTL    = 10 * time.Minute
	DefaultRedisPrefix = "medkg:"

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jDatabase = "neo4j"
	DefaultNeo4jSyncSize = 500

	DefaultKafkaTopic   = "kg.snapshot.loaded"
	DefaultKafkaGroupID = "medkg-api"
	DefaultKafkaMaxWait = 1 * time.Second

	DefaultMinIOObject = "staging/unified_ontology.json"

	DefaultReloadDebounce = 2 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "medkg"
)

// setViperDefaults registers every key with viper.  Registration is also what
// lets AutomaticEnv resolve MEDKG_* overrides for keys absent from the file.
func setViperDefaults(v *viper.Viper) {
	// ── Server ────────────────────────────────────────────────────────────────
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.enable_admin", true)
	v.SetDefault("server.allowed_origins", []string{})

	// ── Store ─────────────────────────────────────────────────────────────────
	v.SetDefault("store.driver", DefaultStoreDriver)
	v.SetDefault("store.snapshot_path", DefaultSnapshotPath)
	v.SetDefault("store.sqlite.path", DefaultSQLitePath)
	v.SetDefault("store.sqlite.busy_timeout", DefaultSQLiteBusyTimeout)
	v.SetDefault("store.sqlite.read_only", false)
	v.SetDefault("store.postgres.host", "")
	v.SetDefault("store.postgres.port", DefaultPostgresPort)
	v.SetDefault("store.postgres.user", "")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.db_name", DefaultPostgresDBName)
	v.SetDefault("store.postgres.ssl_mode", DefaultPostgresSSLMode)
	v.SetDefault("store.postgres.max_open_conns", DefaultPostgresMaxOpenConns)
	v.SetDefault("store.postgres.max_idle_conns", DefaultPostgresMaxIdleConns)
	v.SetDefault("store.postgres.conn_max_lifetime", DefaultPostgresConnLifetime)
	v.SetDefault("store.postgres.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("store.postgres.migration_path", DefaultPostgresMigrationPath)

	// ── Linker ────────────────────────────────────────────────────────────────
	v.SetDefault("linker.threshold", DefaultLinkerThreshold)
	v.SetDefault("linker.fuzzy_scorer", DefaultLinkerFuzzyScorer)
	v.SetDefault("linker.fuzzy_fallback", true)
	v.SetDefault("linker.normalize_to_generic", false)
	v.SetDefault("linker.batch_concurrency", DefaultLinkerConcurrency)
	v.SetDefault("linker.max_batch_size", DefaultLinkerMaxBatchSize)
	v.SetDefault("linker.search_limit", DefaultLinkerSearchLimit)
	v.SetDefault("linker.max_search_limit", DefaultLinkerMaxSearchLimit)

	// ── Cache ─────────────────────────────────────────────────────────────────
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", DefaultRedisAddr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.dial_timeout", 5*time.Second)
	v.SetDefault("cache.redis.read_timeout", 3*time.Second)
	v.SetDefault("cache.redis.write_timeout", 3*time.Second)
	v.SetDefault("cache.redis.default_ttl", DefaultRedisTTL)
	v.SetDefault("cache.redis.key_prefix", DefaultRedisPrefix)

	// ── Graph ─────────────────────────────────────────────────────────────────
	v.SetDefault("graph.neo4j.enabled", false)
	v.SetDefault("graph.neo4j.uri", DefaultNeo4jURI)
	v.SetDefault("graph.neo4j.user", "neo4j")
	v.SetDefault("graph.neo4j.password", "")
	v.SetDefault("graph.neo4j.database", DefaultNeo4jDatabase)
	v.SetDefault("graph.neo4j.max_connection_pool_size", 50)
	v.SetDefault("graph.neo4j.connection_timeout", 10*time.Second)
	v.SetDefault("graph.neo4j.serve_neighbors", false)
	v.SetDefault("graph.neo4j.sync_batch_size", DefaultNeo4jSyncSize)

	// ── Messaging ─────────────────────────────────────────────────────────────
	v.SetDefault("messaging.kafka.enabled", false)
	v.SetDefault("messaging.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("messaging.kafka.topic", DefaultKafkaTopic)
	v.SetDefault("messaging.kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("messaging.kafka.max_wait", DefaultKafkaMaxWait)
	v.SetDefault("messaging.kafka.client_id", "medkg")

	// ── Storage ───────────────────────────────────────────────────────────────
	v.SetDefault("storage.minio.enabled", false)
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.bucket", "medkg")
	v.SetDefault("storage.minio.object", DefaultMinIOObject)
	v.SetDefault("storage.minio.region", "")
	v.SetDefault("storage.minio.use_ssl", false)

	// ── Reload ────────────────────────────────────────────────────────────────
	v.SetDefault("reload.watch_store_file", false)
	v.SetDefault("reload.debounce", DefaultReloadDebounce)

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.error_output_paths", []string{"stderr"})
	v.SetDefault("log.sampling", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", DefaultMetricsPath)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
}

// ApplyDefaults fills zero-value fields of a Config built in code.  Booleans
// are left alone because false is a legitimate explicit value.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── Store ─────────────────────────────────────────────────────────────────
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Store.SQLite.BusyTimeout == 0 {
		cfg.Store.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Store.SnapshotPath == "" {
		cfg.Store.SnapshotPath = DefaultSnapshotPath
	}
	if cfg.Store.Postgres.Port == 0 {
		cfg.Store.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Store.Postgres.DBName == "" {
		cfg.Store.Postgres.DBName = DefaultPostgresDBName
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if cfg.Store.Postgres.MaxOpenConns == 0 {
		cfg.Store.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}
	if cfg.Store.Postgres.MaxIdleConns == 0 {
		cfg.Store.Postgres.MaxIdleConns = DefaultPostgresMaxIdleConns
	}
	if cfg.Store.Postgres.ConnMaxLifetime == 0 {
		cfg.Store.Postgres.ConnMaxLifetime = DefaultPostgresConnLifetime
	}
	if cfg.Store.Postgres.MigrationPath == "" {
		cfg.Store.Postgres.MigrationPath = DefaultPostgresMigrationPath
	}

	// ── Linker ────────────────────────────────────────────────────────────────
	if cfg.Linker.FuzzyScorer == "" {
		cfg.Linker.FuzzyScorer = DefaultLinkerFuzzyScorer
	}
	if cfg.Linker.BatchConcurrency == 0 {
		cfg.Linker.BatchConcurrency = DefaultLinkerConcurrency
	}
	if cfg.Linker.MaxBatchSize == 0 {
		cfg.Linker.MaxBatchSize = DefaultLinkerMaxBatchSize
	}
	if cfg.Linker.SearchLimit == 0 {
		cfg.Linker.SearchLimit = DefaultLinkerSearchLimit
	}
	if cfg.Linker.MaxSearchLimit == 0 {
		cfg.Linker.MaxSearchLimit = DefaultLinkerMaxSearchLimit
	}

	// ── Backends ──────────────────────────────────────────────────────────────
	if cfg.Cache.Redis.DefaultTTL == 0 {
		cfg.Cache.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = DefaultRedisPrefix
	}
	if cfg.Graph.Neo4j.Database == "" {
		cfg.Graph.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Graph.Neo4j.SyncBatchSize == 0 {
		cfg.Graph.Neo4j.SyncBatchSize = DefaultNeo4jSyncSize
	}
	if cfg.Messaging.Kafka.Topic == "" {
		cfg.Messaging.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Messaging.Kafka.GroupID == "" {
		cfg.Messaging.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Messaging.Kafka.MaxWait == 0 {
		cfg.Messaging.Kafka.MaxWait = DefaultKafkaMaxWait
	}
	if cfg.Storage.MinIO.Object == "" {
		cfg.Storage.MinIO.Object = DefaultMinIOObject
	}
	if cfg.Reload.Debounce == 0 {
		cfg.Reload.Debounce = DefaultReloadDebounce
	}

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// Default returns a Config populated purely from defaults.
func Default() *Config {
	v := newViper()
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	ApplyDefaults(cfg)
	return cfg
}

//Personal.AI order the ending

// Package config defines the configuration structures for MedKG-Intelligence.
// Only plain data types and validation live here; file/env parsing is in
// loader.go.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableAdmin     bool          `mapstructure:"enable_admin"`
	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SQLiteConfig holds the embedded store parameters.
type SQLiteConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	ReadOnly    bool          `mapstructure:"read_only"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects and configures the relational store backend.
type StoreConfig struct {
	Driver       string         `mapstructure:"driver"`
	SQLite       SQLiteConfig   `mapstructure:"sqlite"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
	SnapshotPath string         `mapstructure:"snapshot_path"`
}

// LinkerConfig tunes the resolution cascade.
type LinkerConfig struct {
	Threshold          int    `mapstructure:"threshold"`
	FuzzyScorer        string `mapstructure:"fuzzy_scorer"` // jaro_winkler | levenshtein | indel
	FuzzyFallback      bool   `mapstructure:"fuzzy_fallback"`
	NormalizeToGeneric bool   `mapstructure:"normalize_to_generic"`
	BatchConcurrency   int    `mapstructure:"batch_concurrency"`
	MaxBatchSize       int    `mapstructure:"max_batch_size"`
	SearchLimit        int    `mapstructure:"search_limit"`
	MaxSearchLimit     int    `mapstructure:"max_search_limit"`
}

// RedisConfig holds the resolution-cache parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// CacheConfig wraps the cache backends.
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// Neo4jConfig holds the optional graph projection parameters.
type Neo4jConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	// ServeNeighbors routes neighbor queries to Neo4j instead of the
	// relational join.
	ServeNeighbors bool `mapstructure:"serve_neighbors"`
	SyncBatchSize  int  `mapstructure:"sync_batch_size"`
}

// GraphConfig wraps the graph backends.
type GraphConfig struct {
	Neo4j Neo4jConfig `mapstructure:"neo4j"`
}

// KafkaConfig holds the reload-event bus parameters.
type KafkaConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Brokers  []string      `mapstructure:"brokers"`
	Topic    string        `mapstructure:"topic"`
	GroupID  string        `mapstructure:"group_id"`
	MaxWait  time.Duration `mapstructure:"max_wait"`
	ClientID string        `mapstructure:"client_id"`
}

// MessagingConfig wraps the messaging backends.
type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// MinIOConfig holds the object-storage parameters for staged snapshots.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Object    string `mapstructure:"object"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// StorageConfig wraps the object-storage backends.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// ReloadConfig controls automatic snapshot reloads.
type ReloadConfig struct {
	WatchStoreFile bool          `mapstructure:"watch_store_file"`
	Debounce       time.Duration `mapstructure:"debounce"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Store     StoreConfig       `mapstructure:"store"`
	Linker    LinkerConfig      `mapstructure:"linker"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Graph     GraphConfig       `mapstructure:"graph"`
	Messaging MessagingConfig   `mapstructure:"messaging"`
	Storage   StorageConfig     `mapstructure:"storage"`
	Reload    ReloadConfig      `mapstructure:"reload"`
	Log       logging.LogConfig `mapstructure:"log"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

var validScorers = map[string]bool{"jaro_winkler": true, "levenshtein": true, "indel": true}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	switch strings.ToLower(c.Store.Driver) {
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("config: store.sqlite.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.Postgres.Host == "" {
			return fmt.Errorf("config: store.postgres.host is required for the postgres driver")
		}
		if c.Store.Postgres.DBName == "" {
			return fmt.Errorf("config: store.postgres.db_name is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}

	if c.Linker.Threshold < 0 || c.Linker.Threshold > 100 {
		return fmt.Errorf("config: linker.threshold %d must be within 0..100", c.Linker.Threshold)
	}
	if !validScorers[c.Linker.FuzzyScorer] {
		return fmt.Errorf("config: unknown linker.fuzzy_scorer %q", c.Linker.FuzzyScorer)
	}
	if c.Linker.BatchConcurrency <= 0 {
		return fmt.Errorf("config: linker.batch_concurrency must be positive")
	}
	if c.Linker.SearchLimit > c.Linker.MaxSearchLimit {
		return fmt.Errorf("config: linker.search_limit exceeds linker.max_search_limit")
	}

	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required when redis is enabled")
	}
	if c.Graph.Neo4j.Enabled && c.Graph.Neo4j.URI == "" {
		return fmt.Errorf("config: graph.neo4j.uri is required when neo4j is enabled")
	}
	if c.Graph.Neo4j.ServeNeighbors && !c.Graph.Neo4j.Enabled {
		return fmt.Errorf("config: graph.neo4j.serve_neighbors requires graph.neo4j.enabled")
	}
	if c.Messaging.Kafka.Enabled {
		if len(c.Messaging.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: messaging.kafka.brokers is required when kafka is enabled")
		}
		if c.Messaging.Kafka.Topic == "" {
			return fmt.Errorf("config: messaging.kafka.topic is required when kafka is enabled")
		}
	}
	if c.Storage.MinIO.Enabled {
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("config: storage.minio.endpoint and bucket are required when minio is enabled")
		}
	}
	if c.Reload.WatchStoreFile && c.Store.Driver != DriverSQLite {
		return fmt.Errorf("config: reload.watch_store_file only applies to the sqlite driver")
	}
	return nil
}

//Personal.AI order the ending

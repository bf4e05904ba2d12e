// Package sqlite attaches the embedded knowledge-graph store: a single SQLite
// file opened through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/relational"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

const (
	driverName = "sqlite"

	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
)

// Options tune how a store file is attached.
type Options struct {
	// Create allows attaching a path that does not exist yet; the load
	// command uses it to build a fresh store.
	Create bool
}

// Open attaches the store at cfg.Path.  A missing file (unless
// opts.Create), an unreadable file or a failed integrity check yields
// ErrCodeStoreUnavailable.
func Open(ctx context.Context, cfg config.SQLiteConfig, log logging.Logger, opts Options) (*relational.Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	memory := cfg.Path == MemoryPath
	if cfg.Path == "" {
		return nil, errors.StoreUnavailable("sqlite path is empty")
	}
	if !memory && !opts.Create {
		info, err := os.Stat(cfg.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "store file not found").WithDetail(cfg.Path)
		}
		if info.IsDir() {
			return nil, errors.StoreUnavailable("store path is a directory").WithDetail(cfg.Path)
		}
	}

	db, err := sql.Open(driverName, dsn(cfg, memory))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to open store").WithDetail(cfg.Path)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := verify(ctx, db, cfg.ReadOnly); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "store failed verification").WithDetail(cfg.Path)
	}

	log.Info("attached sqlite store",
		logging.String("path", cfg.Path),
		logging.Bool("read_only", cfg.ReadOnly),
	)
	return relational.New(db, relational.DialectSQLite, log), nil
}

func verify(ctx context.Context, db *sql.DB, readOnly bool) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return err
	}
	if !strings.EqualFold(result, "ok") {
		return fmt.Errorf("quick_check: %s", result)
	}
	if readOnly {
		var n int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('entities', 'aliases', 'relations', 'metadata')").Scan(&n)
		if err != nil {
			return err
		}
		if n != 4 {
			return fmt.Errorf("schema incomplete: %d of 4 tables present", n)
		}
		return relational.VerifySQLiteSchema(ctx, db)
	}
	if err := relational.EnsureSQLiteSchema(ctx, db); err != nil {
		return err
	}
	return relational.VerifySQLiteSchema(ctx, db)
}

func dsn(cfg config.SQLiteConfig, memory bool) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	if memory {
		return MemoryPath + "?" + q.Encode()
	}
	if cfg.ReadOnly {
		q.Set("mode", "ro")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

//Personal.AI order the ending

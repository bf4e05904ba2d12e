package relational

import (
	"context"
	"database/sql"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// sqliteSchema is idempotent; it runs every time an embedded store is
// attached. The PostgreSQL schema is managed by migrations instead.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT    NOT NULL,
		standard_name TEXT,
		type          TEXT    NOT NULL,
		source        TEXT,
		generic_name  TEXT,
		dosage_form   TEXT,
		is_generic    INTEGER NOT NULL DEFAULT 0,
		data          TEXT    NOT NULL DEFAULT '{}',
		name_folded          TEXT NOT NULL DEFAULT '',
		standard_name_folded TEXT NOT NULL DEFAULT '',
		generic_name_folded  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS aliases (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		alias     TEXT    NOT NULL,
		alias_folded TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS relations (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		source_entity_id INTEGER REFERENCES entities(id) ON DELETE CASCADE,
		target_entity_id INTEGER REFERENCES entities(id) ON DELETE CASCADE,
		relation_type    TEXT NOT NULL,
		source_name      TEXT,
		target_name      TEXT,
		properties       TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT PRIMARY KEY,
		value TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_standard_name ON entities(standard_name)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_source ON entities(source)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_generic_name ON entities(generic_name)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_is_generic ON entities(is_generic)`,
	`CREATE INDEX IF NOT EXISTS idx_aliases_alias ON aliases(alias)`,
	`CREATE INDEX IF NOT EXISTS idx_aliases_entity ON aliases(entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(relation_type)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_source_name ON relations(source_name)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_target_name ON relations(target_name)`,
}

// requiredColumns must exist for the store to serve queries.  Files written
// before the folded columns were introduced fail verification and need a
// fresh load.
var requiredColumns = map[string][]string{
	"entities":  {"name_folded", "standard_name_folded", "generic_name_folded"},
	"aliases":   {"alias_folded"},
	"relations": {"relation_type"},
	"metadata":  {"key"},
}

// EnsureSQLiteSchema creates any missing tables and indexes.
func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return dbErr(err, "apply sqlite schema")
		}
	}
	return nil
}

// VerifySQLiteSchema checks that every table and column the store reads is
// present.
func VerifySQLiteSchema(ctx context.Context, db *sql.DB) error {
	for table, cols := range requiredColumns {
		for _, col := range cols {
			var n int
			err := db.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, col).Scan(&n)
			if err != nil {
				return dbErr(err, "inspect sqlite schema")
			}
			if n == 0 {
				return errors.New(errors.ErrCodeStoreUnavailable, "store schema is out of date").
					WithDetailf("missing column %s.%s", table, col)
			}
		}
	}
	return nil
}

//Personal.AI order the ending

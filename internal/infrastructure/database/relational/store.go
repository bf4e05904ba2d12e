// Package relational implements the knowledge-graph store on database/sql.
// One implementation serves both the embedded SQLite backend and
// PostgreSQL; the backends only differ in how the *sql.DB is opened and the
// schema is provisioned (see the sqlite and postgres packages).
package relational

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sort"
	"sync"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// idChunkSize bounds the number of parameters in one IN (...) list.
const idChunkSize = 500

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Store is a kg.Store backed by a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  logging.Logger

	closeFn  func() error
	once     sync.Once
	closeErr error
}

var _ kg.Store = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithCloser replaces the default db.Close on Close.
func WithCloser(fn func() error) Option {
	return func(s *Store) { s.closeFn = fn }
}

// New wraps an opened database handle.
func New(db *sql.DB, dialect Dialect, logger logging.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Store{db: db, dialect: dialect, logger: logger.Named("store")}
	s.closeFn = db.Close
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "store ping failed")
	}
	return nil
}

// Close releases the handle once.
func (s *Store) Close() error {
	s.once.Do(func() {
		s.closeErr = s.closeFn()
		if s.closeErr != nil {
			s.logger.Error("failed to close store", logging.Err(s.closeErr))
			return
		}
		s.logger.Debug("store closed", logging.String("dialect", s.dialect.String()))
	})
	return s.closeErr
}

func (s *Store) q(query string) string { return s.dialect.Rebind(query) }

func dbErr(err error, msg string) error {
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}

// typeClause appends an optional type filter.
func typeClause(col string, t medical.EntityType, args []interface{}) (string, []interface{}) {
	if t == medical.EntityAny {
		return "", args
	}
	return " AND " + col + " = ?", append(args, string(t))
}

// ─────────────────────────────────────────────────────────────────────────────
// Point lookups
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) queryOneEntity(ctx context.Context, query string, args ...interface{}) (*kg.Entity, error) {
	e, err := scanEntity(s.db.QueryRowContext(ctx, s.q(query), args...))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*kg.Entity, error) {
	e, err := s.queryOneEntity(ctx, "SELECT "+entityColumns+" FROM entities WHERE id = ?", id)
	if err != nil {
		return nil, dbErr(err, "get entity by id")
	}
	return e, nil
}

func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]*kg.Entity, error) {
	out := make(map[int64]*kg.Entity, len(ids))
	unique := dedupeIDs(ids)
	for start := 0; start < len(unique); start += idChunkSize {
		end := start + idChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[start:end]
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx,
			s.q("SELECT "+entityColumns+" FROM entities WHERE id IN ("+placeholders(len(chunk))+")"), args...)
		if err != nil {
			return nil, dbErr(err, "get entities by ids")
		}
		entities, err := scanEntities(rows)
		if err != nil {
			return nil, dbErr(err, "scan entities by ids")
		}
		for _, e := range entities {
			out[e.ID] = e
		}
	}
	return out, nil
}

func (s *Store) FindByExactNameOrStandardName(ctx context.Context, name string, t medical.EntityType) (*kg.Entity, error) {
	filter, args := typeClause("type", t, []interface{}{name, name})
	e, err := s.queryOneEntity(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE (name = ? OR standard_name = ?)"+filter+" ORDER BY id LIMIT 1",
		args...)
	if err != nil {
		return nil, dbErr(err, "find entity by name")
	}
	return e, nil
}

func (s *Store) FindAllByExactName(ctx context.Context, name string, t medical.EntityType) ([]*kg.Entity, error) {
	filter, args := typeClause("type", t, []interface{}{name, name})
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+entityColumns+" FROM entities WHERE (name = ? OR standard_name = ?)"+filter+" ORDER BY id"),
		args...)
	if err != nil {
		return nil, dbErr(err, "find entities by name")
	}
	out, err := scanEntities(rows)
	if err != nil {
		return nil, dbErr(err, "scan entities by name")
	}
	return out, nil
}

func (s *Store) FindByAlias(ctx context.Context, alias string, t medical.EntityType) (*kg.Entity, error) {
	filter, args := typeClause("e.type", t, []interface{}{alias})
	e, err := s.queryOneEntity(ctx,
		"SELECT "+prefixedEntityColumns+" FROM aliases a JOIN entities e ON e.id = a.entity_id"+
			" WHERE a.alias = ?"+filter+" ORDER BY a.id LIMIT 1",
		args...)
	if err != nil {
		return nil, dbErr(err, "find entity by alias")
	}
	return e, nil
}

func (s *Store) FindGeneric(ctx context.Context, genericName string) (*kg.Entity, error) {
	e, err := s.queryOneEntity(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE generic_name = ? AND is_generic = 1 AND type = ? ORDER BY id LIMIT 1",
		genericName, string(medical.EntityDrug))
	if err != nil {
		return nil, dbErr(err, "find generic entity")
	}
	return e, nil
}

func (s *Store) FindProducts(ctx context.Context, genericName string) ([]*kg.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+entityColumns+" FROM entities WHERE generic_name = ? AND is_generic = 0 AND type = ? ORDER BY id"),
		genericName, string(medical.EntityDrug))
	if err != nil {
		return nil, dbErr(err, "find products")
	}
	out, err := scanEntities(rows)
	if err != nil {
		return nil, dbErr(err, "scan products")
	}
	// Byte-wise ordering keeps the result identical across backends whose
	// collations differ.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Substring scans
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ScanSubstring(ctx context.Context, pattern string, t medical.EntityType) ([]*kg.Entity, error) {
	like := containsPattern(pattern)
	filter, args := typeClause("type", t, []interface{}{like, like, like})
	rows, err := s.db.QueryContext(ctx, s.q(
		"SELECT "+entityColumns+" FROM entities WHERE ("+
			`name_folded LIKE ? ESCAPE '\' OR standard_name_folded LIKE ? ESCAPE '\' OR generic_name_folded LIKE ? ESCAPE '\'`+
			")"+filter+" ORDER BY id"), args...)
	if err != nil {
		return nil, dbErr(err, "scan substring")
	}
	out, err := scanEntities(rows)
	if err != nil {
		return nil, dbErr(err, "scan substring rows")
	}
	return out, nil
}

func (s *Store) SearchSubstring(ctx context.Context, pattern string, t medical.EntityType, limit int) ([]*kg.Entity, error) {
	like := containsPattern(pattern)
	filter, args := typeClause("e.type", t, []interface{}{like, like, like})
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, s.q(
		"SELECT DISTINCT "+prefixedEntityColumns+" FROM entities e LEFT JOIN aliases a ON a.entity_id = e.id WHERE ("+
			`e.name_folded LIKE ? ESCAPE '\' OR e.standard_name_folded LIKE ? ESCAPE '\' OR a.alias_folded LIKE ? ESCAPE '\'`+
			")"+filter+" ORDER BY e.id LIMIT ?"), args...)
	if err != nil {
		return nil, dbErr(err, "search substring")
	}
	out, err := scanEntities(rows)
	if err != nil {
		return nil, dbErr(err, "search substring rows")
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Aliases & relations
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) AliasesOf(ctx context.Context, entityID int64) ([]string, error) {
	out, err := s.queryStrings(ctx, "SELECT alias FROM aliases WHERE entity_id = ? ORDER BY id", entityID)
	if err != nil {
		return nil, dbErr(err, "list aliases")
	}
	return out, nil
}

func (s *Store) AliasesOfName(ctx context.Context, name string) ([]string, error) {
	out, err := s.queryStrings(ctx,
		"SELECT a.alias FROM aliases a JOIN entities e ON e.id = a.entity_id WHERE e.name = ? OR e.standard_name = ? ORDER BY a.id",
		name, name)
	if err != nil {
		return nil, dbErr(err, "list aliases by name")
	}
	return out, nil
}

func (s *Store) RelationsOf(ctx context.Context, entityIDs []int64, relationType medical.RelationType) ([]*kg.Relation, error) {
	unique := dedupeIDs(entityIDs)
	if len(unique) == 0 {
		return []*kg.Relation{}, nil
	}
	seen := make(map[int64]struct{})
	out := make([]*kg.Relation, 0)
	for start := 0; start < len(unique); start += idChunkSize {
		end := start + idChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[start:end]
		args := make([]interface{}, 0, 2*len(chunk)+1)
		for _, id := range chunk {
			args = append(args, id)
		}
		for _, id := range chunk {
			args = append(args, id)
		}
		query := "SELECT " + relationColumns + " FROM relations WHERE (source_entity_id IN (" + placeholders(len(chunk)) +
			") OR target_entity_id IN (" + placeholders(len(chunk)) + "))"
		if relationType != "" {
			query += " AND relation_type = ?"
			args = append(args, string(relationType))
		}
		query += " ORDER BY id"

		rows, err := s.db.QueryContext(ctx, s.q(query), args...)
		if err != nil {
			return nil, dbErr(err, "list relations")
		}
		err = func() error {
			defer rows.Close()
			for rows.Next() {
				r, err := scanRelation(rows)
				if err != nil {
					return err
				}
				if _, dup := seen[r.ID]; dup {
					continue
				}
				seen[r.ID] = struct{}{}
				out = append(out, r)
			}
			return rows.Err()
		}()
		if err != nil {
			return nil, dbErr(err, "scan relations")
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Streaming
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) EachEntity(ctx context.Context, fn func(*kg.Entity) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+entityColumns+" FROM entities ORDER BY id")
	if err != nil {
		return dbErr(err, "stream entities")
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return dbErr(err, "scan entity")
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return dbErr(err, "stream entities")
	}
	return nil
}

func (s *Store) EachAlias(ctx context.Context, fn func(kg.Alias) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, entity_id, alias FROM aliases ORDER BY id")
	if err != nil {
		return dbErr(err, "stream aliases")
	}
	defer rows.Close()
	for rows.Next() {
		var a kg.Alias
		if err := rows.Scan(&a.ID, &a.EntityID, &a.Alias); err != nil {
			return dbErr(err, "scan alias")
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return dbErr(err, "stream aliases")
	}
	return nil
}

func (s *Store) EachRelation(ctx context.Context, fn func(*kg.Relation) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+relationColumns+" FROM relations ORDER BY id")
	if err != nil {
		return dbErr(err, "stream relations")
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRelation(rows)
		if err != nil {
			return dbErr(err, "scan relation")
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return dbErr(err, "stream relations")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregates
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.q(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Counts(ctx context.Context) (*kg.Counts, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM entities GROUP BY type ORDER BY type")
	if err != nil {
		return nil, dbErr(err, "count entities by type")
	}
	c := &kg.Counts{EntitiesByType: make(map[medical.EntityType]int64)}
	err = func() error {
		defer rows.Close()
		for rows.Next() {
			var (
				typ string
				n   int64
			)
			if err := rows.Scan(&typ, &n); err != nil {
				return err
			}
			c.EntitiesByType[medical.EntityType(typ)] = n
			c.TotalEntities += n
		}
		return rows.Err()
	}()
	if err != nil {
		return nil, dbErr(err, "scan entity counts")
	}
	if c.TotalRelations, err = s.count(ctx, "SELECT COUNT(*) FROM relations"); err != nil {
		return nil, dbErr(err, "count relations")
	}
	if c.TotalAliases, err = s.count(ctx, "SELECT COUNT(*) FROM aliases"); err != nil {
		return nil, dbErr(err, "count aliases")
	}
	return c, nil
}

func (s *Store) GenericCounts(ctx context.Context) (*kg.GenericCounts, error) {
	drug := string(medical.EntityDrug)
	var (
		gc  kg.GenericCounts
		err error
	)
	if gc.GenericDrugs, err = s.count(ctx, "SELECT COUNT(*) FROM entities WHERE type = ? AND is_generic = 1", drug); err != nil {
		return nil, dbErr(err, "count generic drugs")
	}
	if gc.ProductDrugs, err = s.count(ctx, "SELECT COUNT(*) FROM entities WHERE type = ? AND is_generic = 0", drug); err != nil {
		return nil, dbErr(err, "count product drugs")
	}
	if gc.UniqueGenericNames, err = s.count(ctx,
		"SELECT COUNT(DISTINCT generic_name) FROM entities WHERE type = ? AND generic_name IS NOT NULL AND generic_name <> ''", drug); err != nil {
		return nil, dbErr(err, "count generic names")
	}
	return &gc, nil
}

func (s *Store) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata ORDER BY key")
	if err != nil {
		return nil, dbErr(err, "read metadata")
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, dbErr(err, "scan metadata")
		}
		out[k] = v.String
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "read metadata")
	}
	return out, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

//Personal.AI order the ending

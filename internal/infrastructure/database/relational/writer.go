package relational

import (
	"context"
	"database/sql"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// Load runs fn inside one transaction. Any error from fn, or a failed commit,
// rolls back and leaves the previous contents in place.
func (s *Store) Load(ctx context.Context, fn func(kg.Writer) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeLoadFailed, "begin load transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error("load rollback failed", logging.Err(rbErr))
			}
		}
	}()

	if err = fn(&txWriter{tx: tx, dialect: s.dialect}); err != nil {
		if errors.GetCode(err) == errors.CodeUnknown {
			err = errors.Wrap(err, errors.ErrCodeLoadFailed, "load aborted")
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeLoadFailed, "commit load transaction")
	}
	return nil
}

// txWriter is the kg.Writer handed to Load callbacks.
type txWriter struct {
	tx      *sql.Tx
	dialect Dialect
}

var _ kg.Writer = (*txWriter)(nil)

func (w *txWriter) q(query string) string { return w.dialect.Rebind(query) }

func (w *txWriter) insertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := w.tx.QueryRowContext(ctx, w.q(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (w *txWriter) InsertEntity(ctx context.Context, e *kg.Entity) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeMalformedInput, "invalid entity")
	}
	data, err := e.Attributes.Encode()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeMalformedInput, "encode entity attributes").WithDetail(e.Name)
	}
	standard := e.StandardName
	if standard == "" {
		standard = e.Name
	}
	id, err := w.insertReturningID(ctx,
		"INSERT INTO entities (name, standard_name, type, source, generic_name, dosage_form, is_generic, data,"+
			" name_folded, standard_name_folded, generic_name_folded)"+
			" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.Name, standard, string(e.Type), nullString(e.Source), nullString(e.GenericName),
		nullString(e.DosageForm), boolInt(e.IsGeneric), data,
		kg.Fold(e.Name), kg.Fold(standard), kg.Fold(e.GenericName))
	if err != nil {
		return 0, dbErr(err, "insert entity")
	}
	e.ID = id
	if e.StandardName == "" {
		e.StandardName = standard
	}
	return id, nil
}

func (w *txWriter) InsertAlias(ctx context.Context, entityID int64, alias string) (int64, error) {
	if entityID == 0 || alias == "" {
		return 0, errors.MalformedInput("alias requires an owner and a non-empty text")
	}
	id, err := w.insertReturningID(ctx, "INSERT INTO aliases (entity_id, alias, alias_folded) VALUES (?, ?, ?)",
		entityID, alias, kg.Fold(alias))
	if err != nil {
		return 0, dbErr(err, "insert alias")
	}
	return id, nil
}

func (w *txWriter) InsertRelation(ctx context.Context, r *kg.Relation) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeMalformedInput, "invalid relation")
	}
	props, err := r.Properties.Encode()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeMalformedInput, "encode relation properties")
	}
	id, err := w.insertReturningID(ctx,
		"INSERT INTO relations (source_entity_id, target_entity_id, relation_type, source_name, target_name, properties)"+
			" VALUES (?, ?, ?, ?, ?, ?)",
		nullID(r.SourceID), nullID(r.TargetID), string(r.RelationType),
		nullString(r.SourceName), nullString(r.TargetName), props)
	if err != nil {
		return 0, dbErr(err, "insert relation")
	}
	r.ID = id
	return id, nil
}

func (w *txWriter) PutMetadata(ctx context.Context, key, value string) error {
	_, err := w.tx.ExecContext(ctx,
		w.q("INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value"),
		key, value)
	if err != nil {
		return dbErr(err, "put metadata")
	}
	return nil
}

func (w *txWriter) Truncate(ctx context.Context) error {
	for _, table := range []string{"relations", "aliases", "entities", "metadata"} {
		if _, err := w.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return dbErr(err, "truncate "+table)
		}
	}
	return nil
}

func (w *txWriter) ListEntities(ctx context.Context, t medical.EntityType) ([]*kg.Entity, error) {
	query := "SELECT " + entityColumns + " FROM entities"
	var args []interface{}
	if t != medical.EntityAny {
		query += " WHERE type = ?"
		args = append(args, string(t))
	}
	rows, err := w.tx.QueryContext(ctx, w.q(query+" ORDER BY id"), args...)
	if err != nil {
		return nil, dbErr(err, "list entities")
	}
	out, err := scanEntities(rows)
	if err != nil {
		return nil, dbErr(err, "scan entities")
	}
	return out, nil
}

func (w *txWriter) UpdateNormalization(ctx context.Context, id int64, genericName, dosageForm string, isGeneric bool) error {
	res, err := w.tx.ExecContext(ctx,
		w.q("UPDATE entities SET generic_name = ?, generic_name_folded = ?, dosage_form = ?, is_generic = ? WHERE id = ?"),
		nullString(genericName), kg.Fold(genericName), nullString(dosageForm), boolInt(isGeneric), id)
	if err != nil {
		return dbErr(err, "update normalization")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeEntityNotFound, "entity not found").WithDetailf("id=%d", id)
	}
	return nil
}

//Personal.AI order the ending

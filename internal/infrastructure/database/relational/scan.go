package relational

import (
	"database/sql"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

const entityColumns = "id, name, standard_name, type, source, generic_name, dosage_form, is_generic, data"

const prefixedEntityColumns = "e.id, e.name, e.standard_name, e.type, e.source, e.generic_name, e.dosage_form, e.is_generic, e.data"

const relationColumns = "id, source_entity_id, target_entity_id, relation_type, source_name, target_name, properties"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(rs rowScanner) (*kg.Entity, error) {
	var (
		e                                 kg.Entity
		typ                               string
		standard, source, generic, dosage sql.NullString
		data                              sql.NullString
		isGeneric                         sql.NullInt64
	)
	if err := rs.Scan(&e.ID, &e.Name, &standard, &typ, &source, &generic, &dosage, &isGeneric, &data); err != nil {
		return nil, err
	}
	e.Type = medical.EntityType(typ)
	e.StandardName = standard.String
	if e.StandardName == "" {
		e.StandardName = e.Name
	}
	e.Source = source.String
	e.GenericName = generic.String
	e.DosageForm = dosage.String
	e.IsGeneric = isGeneric.Valid && isGeneric.Int64 != 0
	e.Attributes = kg.DecodeAttributesLenient(data.String)
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*kg.Entity, error) {
	defer rows.Close()
	out := make([]*kg.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanRelation(rs rowScanner) (*kg.Relation, error) {
	var (
		r                      kg.Relation
		src, dst               sql.NullInt64
		typ                    string
		srcName, dstName, prop sql.NullString
	)
	if err := rs.Scan(&r.ID, &src, &dst, &typ, &srcName, &dstName, &prop); err != nil {
		return nil, err
	}
	r.SourceID = src.Int64
	r.TargetID = dst.Int64
	r.RelationType = medical.RelationType(typ)
	r.SourceName = srcName.String
	r.TargetName = dstName.String
	r.Properties = kg.DecodeAttributesLenient(prop.String)
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Package kg holds the knowledge-graph domain model: entities, aliases,
// relations and load metadata, plus the persistence contracts implemented by
// the relational store backends.
package kg

import (
	"fmt"
	"strings"

	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ─────────────────────────────────────────────────────────────────────────────
// Entity
// ─────────────────────────────────────────────────────────────────────────────

// Entity is a canonical record for a drug, disease or gene/target.  ID is
// assigned by the store and never changes.  GenericName, DosageForm and
// IsGeneric are only meaningful for drugs.
type Entity struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	StandardName string             `json:"standard_name"`
	Type         medical.EntityType `json:"type"`
	Source       string             `json:"source"`
	GenericName  string             `json:"generic_name,omitempty"`
	DosageForm   string             `json:"dosage_form,omitempty"`
	IsGeneric    bool               `json:"is_generic"`
	Attributes   Attributes         `json:"attributes,omitempty"`
}

// Validate checks the fields required before insertion.
func (e *Entity) Validate() error {
	if e == nil {
		return fmt.Errorf("kg: nil entity")
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("kg: entity name must not be empty")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("kg: entity %q has invalid type %q", e.Name, e.Type)
	}
	return nil
}

// DisplayName prefers the standard name.
func (e *Entity) DisplayName() string {
	if e.StandardName != "" {
		return e.StandardName
	}
	return e.Name
}

// IsBrandedProduct reports whether e is a drug product that can be
// re-expressed through its generic name.
func (e *Entity) IsBrandedProduct() bool {
	return e.Type == medical.EntityDrug && !e.IsGeneric && e.GenericName != ""
}

// Clone returns a deep copy.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.Attributes != nil {
		c.Attributes = make(Attributes, len(e.Attributes))
		for k, v := range e.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// ─────────────────────────────────────────────────────────────────────────────
// Alias
// ─────────────────────────────────────────────────────────────────────────────

// Alias is an alternate string owned by exactly one entity.
type Alias struct {
	ID       int64  `json:"id"`
	EntityID int64  `json:"entity_id"`
	Alias    string `json:"alias"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Relation
// ─────────────────────────────────────────────────────────────────────────────

// Relation is a typed edge stored with a fixed orientation but queried as
// undirected.  SourceID/TargetID are zero when the staged endpoint name did
// not match a loaded entity; the names are kept either way.
type Relation struct {
	ID           int64                `json:"id"`
	SourceID     int64                `json:"source_entity_id,omitempty"`
	TargetID     int64                `json:"target_entity_id,omitempty"`
	RelationType medical.RelationType `json:"relation_type"`
	SourceName   string               `json:"source_name"`
	TargetName   string               `json:"target_name"`
	Properties   Attributes           `json:"properties,omitempty"`
}

// Validate checks the fields required before insertion.
func (r *Relation) Validate() error {
	if r == nil {
		return fmt.Errorf("kg: nil relation")
	}
	if r.RelationType == "" {
		return fmt.Errorf("kg: relation type must not be empty")
	}
	if r.SourceName == "" || r.TargetName == "" {
		return fmt.Errorf("kg: relation %s requires both endpoint names", r.RelationType)
	}
	return nil
}

// Resolved reports whether both endpoints reference stored entities.
func (r *Relation) Resolved() bool {
	return r.SourceID != 0 && r.TargetID != 0
}

// Other returns the endpoint opposite to id.  ok is false when id is not an
// endpoint or the opposite endpoint is unresolved.  For a self-loop the
// entity itself is returned.
func (r *Relation) Other(id int64) (other int64, ok bool) {
	if id == 0 {
		return 0, false
	}
	switch id {
	case r.SourceID:
		other = r.TargetID
	case r.TargetID:
		other = r.SourceID
	default:
		return 0, false
	}
	return other, other != 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Metadata & statistics
// ─────────────────────────────────────────────────────────────────────────────

// Well-known metadata keys written by the loader.
const (
	MetaVersion          = "version"
	MetaCreatedAt        = "created_at"
	MetaDataSources      = "data_sources"
	MetaTotalEntities    = "total_entities"
	MetaTotalRelations   = "total_relations"
	MetaSnapshotChecksum = "snapshot_checksum"
	MetaLoadID           = "load_id"
)

// Counts is the raw aggregation computed by the store.
type Counts struct {
	EntitiesByType map[medical.EntityType]int64
	TotalEntities  int64
	TotalRelations int64
	TotalAliases   int64
}

// GenericCounts summarises the generic-name normalization of drug rows.
type GenericCounts struct {
	GenericDrugs       int64 `json:"generic_drugs"`
	ProductDrugs       int64 `json:"product_drugs"`
	UniqueGenericNames int64 `json:"unique_generic_names"`
}

//Personal.AI order the ending

package kg

import (
	"context"

	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// Reader is the read side of the relational store.  Every method is safe for
// concurrent use.  Lookups that find nothing return a nil entity (or an
// empty slice) and a nil error; errors are reserved for store failures.
// A medical.EntityAny type argument disables type filtering.
type Reader interface {
	// GetByID returns the entity with the given id.
	GetByID(ctx context.Context, id int64) (*Entity, error)

	// GetByIDs returns the entities found among ids, keyed by id.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*Entity, error)

	// FindByExactNameOrStandardName returns the lowest-id entity whose name
	// or standard name equals name.
	FindByExactNameOrStandardName(ctx context.Context, name string, t medical.EntityType) (*Entity, error)

	// FindAllByExactName returns every entity whose name or standard name
	// equals name, ordered by id.
	FindAllByExactName(ctx context.Context, name string, t medical.EntityType) ([]*Entity, error)

	// FindByAlias returns the owner of the lowest-id alias row equal to alias.
	FindByAlias(ctx context.Context, alias string, t medical.EntityType) (*Entity, error)

	// ScanSubstring returns entities whose folded name, standard name or
	// generic name contains Fold(pattern), ordered by id.  Every entity whose
	// folded text contains the folded pattern is returned.
	ScanSubstring(ctx context.Context, pattern string, t medical.EntityType) ([]*Entity, error)

	// SearchSubstring returns up to limit distinct entities whose folded
	// name, standard name or any alias contains Fold(pattern), ordered by id.
	SearchSubstring(ctx context.Context, pattern string, t medical.EntityType, limit int) ([]*Entity, error)

	// AliasesOf lists the aliases of one entity in insertion order.
	AliasesOf(ctx context.Context, entityID int64) ([]string, error)

	// AliasesOfName lists the aliases of every entity named name.
	AliasesOfName(ctx context.Context, name string) ([]string, error)

	// FindGeneric returns the first generic drug entity for genericName.
	FindGeneric(ctx context.Context, genericName string) (*Entity, error)

	// FindProducts returns the non-generic drug entities sharing genericName,
	// ordered by name then id.
	FindProducts(ctx context.Context, genericName string) ([]*Entity, error)

	// RelationsOf returns relations of relationType (any type when empty)
	// touching any of entityIDs on either endpoint, ordered by id.
	RelationsOf(ctx context.Context, entityIDs []int64, relationType medical.RelationType) ([]*Relation, error)

	// EachEntity streams every entity in id order.
	EachEntity(ctx context.Context, fn func(*Entity) error) error

	// EachAlias streams every alias in id order.
	EachAlias(ctx context.Context, fn func(Alias) error) error

	// EachRelation streams every relation in id order.
	EachRelation(ctx context.Context, fn func(*Relation) error) error

	// Counts aggregates entity, relation and alias totals.
	Counts(ctx context.Context) (*Counts, error)

	// GenericCounts aggregates the generic-name normalization of drugs.
	GenericCounts(ctx context.Context) (*GenericCounts, error)

	// Metadata returns the whole metadata table.
	Metadata(ctx context.Context) (map[string]string, error)
}

// Writer is the load-time write side, only reachable inside Store.Load.
type Writer interface {
	InsertEntity(ctx context.Context, e *Entity) (int64, error)
	InsertAlias(ctx context.Context, entityID int64, alias string) (int64, error)
	InsertRelation(ctx context.Context, r *Relation) (int64, error)
	PutMetadata(ctx context.Context, key, value string) error

	// Truncate empties every table.
	Truncate(ctx context.Context) error

	// ListEntities returns all entities of type t (any when EntityAny).
	ListEntities(ctx context.Context, t medical.EntityType) ([]*Entity, error)

	// UpdateNormalization rewrites the generic-name columns of one entity.
	UpdateNormalization(ctx context.Context, id int64, genericName, dosageForm string, isGeneric bool) error
}

// Store is an attached relational store.
type Store interface {
	Reader

	// Load runs fn inside one transaction.  The transaction commits when fn
	// returns nil and rolls back otherwise, leaving prior contents intact.
	Load(ctx context.Context, fn func(Writer) error) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the handle.  It is idempotent.
	Close() error
}

//Personal.AI order the ending

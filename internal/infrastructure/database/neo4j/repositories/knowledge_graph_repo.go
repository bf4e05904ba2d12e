// Package repositories projects the relational knowledge graph into Neo4j
// and answers neighbor queries with Cypher.
package repositories

import (
	"context"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	driver "github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// DefaultSyncBatchSize is the number of rows sent per UNWIND statement.
const DefaultSyncBatchSize = 500

// Every projected node carries the Entity label; the medical type is a
// property so one index serves all lookups.
const (
	cypherConstraint = `CREATE CONSTRAINT medkg_entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`
	cypherNameIndex  = `CREATE INDEX medkg_entity_name IF NOT EXISTS FOR (e:Entity) ON (e.name)`
	cypherStdIndex   = `CREATE INDEX medkg_entity_standard_name IF NOT EXISTS FOR (e:Entity) ON (e.standard_name)`

	cypherClear = `MATCH (e:Entity) DETACH DELETE e`

	cypherCreateEntities = `
		UNWIND $rows AS row
		CREATE (e:Entity {
			id: row.id, name: row.name, standard_name: row.standard_name,
			type: row.type, generic_name: row.generic_name, is_generic: row.is_generic
		})`

	cypherCreateRelations = `
		UNWIND $rows AS row
		MATCH (s:Entity {id: row.source_id}), (t:Entity {id: row.target_id})
		CREATE (s)-[:RELATED {id: row.id, type: row.type, properties: row.properties}]->(t)`

	cypherNeighbors = `
		MATCH (o:Entity)-[r:RELATED]-(n:Entity)
		WHERE (o.name = $name OR o.standard_name = $name)
		  AND ($source_type = '' OR o.type = $source_type)
		  AND ($relation = '' OR r.type = $relation)
		RETURN n.id AS id, n.name AS name, n.standard_name AS standard_name, n.type AS type,
		       r.id AS relation_id, r.type AS relation_type, r.properties AS properties,
		       startNode(r) = o AS outgoing
		ORDER BY relation_id, outgoing DESC`
)

// KnowledgeGraphRepository mirrors the relational graph and serves
// neighbor queries from the mirror.
type KnowledgeGraphRepository interface {
	kg.NeighborFinder
	// Sync replaces the projection with the current contents of r and
	// returns the number of nodes plus relationships written.
	Sync(ctx context.Context, r kg.Reader) (int, error)
	EnsureConstraints(ctx context.Context) error
}

type neo4jKnowledgeGraphRepo struct {
	driver    driver.DriverInterface
	batchSize int
	log       logging.Logger
}

func NewNeo4jKnowledgeGraphRepo(d driver.DriverInterface, batchSize int, log logging.Logger) KnowledgeGraphRepository {
	if batchSize <= 0 {
		batchSize = DefaultSyncBatchSize
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &neo4jKnowledgeGraphRepo{driver: d, batchSize: batchSize, log: log.Named("neo4j")}
}

var ErrProjectionFailed = errors.New(errors.ErrCodeGraphStore, "graph projection failed")

// ─────────────────────────────────────────────────────────────────────────────
// Projection
// ─────────────────────────────────────────────────────────────────────────────

func (r *neo4jKnowledgeGraphRepo) EnsureConstraints(ctx context.Context) error {
	for _, stmt := range []string{cypherConstraint, cypherNameIndex, cypherStdIndex} {
		if err := r.exec(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// Sync is not atomic across batches: a failure part way leaves a partial
// projection that the next successful Sync replaces.  Relations with an
// unresolved endpoint are not projected.
func (r *neo4jKnowledgeGraphRepo) Sync(ctx context.Context, src kg.Reader) (int, error) {
	if err := r.EnsureConstraints(ctx); err != nil {
		return 0, err
	}
	if err := r.exec(ctx, cypherClear, nil); err != nil {
		return 0, err
	}

	written := 0
	batch := make([]map[string]any, 0, r.batchSize)
	flush := func(stmt string) error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.exec(ctx, stmt, map[string]any{"rows": batch}); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	err := src.EachEntity(ctx, func(e *kg.Entity) error {
		batch = append(batch, entityRow(e))
		if len(batch) == r.batchSize {
			return flush(cypherCreateEntities)
		}
		return nil
	})
	if err == nil {
		err = flush(cypherCreateEntities)
	}
	if err != nil {
		return written, ErrProjectionFailed.WithCause(err)
	}
	nodes := written

	err = src.EachRelation(ctx, func(rel *kg.Relation) error {
		if !rel.Resolved() {
			return nil
		}
		row, err := relationRow(rel)
		if err != nil {
			return err
		}
		batch = append(batch, row)
		if len(batch) == r.batchSize {
			return flush(cypherCreateRelations)
		}
		return nil
	})
	if err == nil {
		err = flush(cypherCreateRelations)
	}
	if err != nil {
		return written, ErrProjectionFailed.WithCause(err)
	}

	r.log.Info("graph projection synced",
		logging.Int("nodes", nodes),
		logging.Int("relationships", written-nodes))
	return written, nil
}

func entityRow(e *kg.Entity) map[string]any {
	return map[string]any{
		"id":            e.ID,
		"name":          e.Name,
		"standard_name": e.StandardName,
		"type":          string(e.Type),
		"generic_name":  e.GenericName,
		"is_generic":    e.IsGeneric,
	}
}

// Neo4j properties cannot hold maps, so relation properties travel as their
// stored JSON text.
func relationRow(rel *kg.Relation) (map[string]any, error) {
	props, err := rel.Properties.Encode()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":         rel.ID,
		"source_id":  rel.SourceID,
		"target_id":  rel.TargetID,
		"type":       string(rel.RelationType),
		"properties": props,
	}, nil
}

func (r *neo4jKnowledgeGraphRepo) exec(ctx context.Context, cypher string, params map[string]any) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Neighbor queries
// ─────────────────────────────────────────────────────────────────────────────

type neighborRow struct {
	neighbor kg.Neighbor
	outgoing bool
}

// Neighbors answers q against the projection with the same semantics as the
// relational finder: one row per relation in relation id order, the source
// side winning when both endpoints match the name.
func (r *neo4jKnowledgeGraphRepo) Neighbors(ctx context.Context, q kg.NeighborQuery) ([]kg.Neighbor, error) {
	if err := q.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedInput, "invalid neighbor query")
	}
	params := map[string]any{
		"name":        q.EntityName,
		"source_type": string(q.SourceType),
		"relation":    string(q.RelationType),
	}

	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, cypherNeighbors, params)
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, mapNeighbor)
	})
	if err != nil {
		return nil, err
	}
	rows, _ := res.([]neighborRow)

	out := make([]kg.Neighbor, 0, len(rows))
	seen := make(map[int64]bool, len(rows))
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].neighbor.RelationID != rows[j].neighbor.RelationID {
			return rows[i].neighbor.RelationID < rows[j].neighbor.RelationID
		}
		return rows[i].outgoing && !rows[j].outgoing
	})
	for _, row := range rows {
		// A relation whose endpoints both match comes back once per
		// direction; the outgoing row sorts first and wins.
		if seen[row.neighbor.RelationID] {
			continue
		}
		seen[row.neighbor.RelationID] = true
		if q.TargetType != medical.EntityAny && row.neighbor.Type != q.TargetType {
			continue
		}
		out = append(out, row.neighbor)
	}
	return out, nil
}

func mapNeighbor(rec *neo4j.Record) (neighborRow, error) {
	get := func(key string) any {
		v, _ := rec.Get(key)
		return v
	}
	props := kg.DecodeAttributesLenient(asString(get("properties")))
	return neighborRow{
		neighbor: kg.Neighbor{
			EntityID:     asInt64(get("id")),
			Name:         asString(get("name")),
			StandardName: asString(get("standard_name")),
			Type:         medical.EntityType(asString(get("type"))),
			RelationID:   asInt64(get("relation_id")),
			RelationType: medical.RelationType(asString(get("relation_type"))),
			Properties:   props,
		},
		outgoing: asBool(get("outgoing")),
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

//Personal.AI order the ending

package kg

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ─────────────────────────────────────────────────────────────────────────────
// Neighbor queries
// ─────────────────────────────────────────────────────────────────────────────

// NeighborQuery asks for the entities on the other side of RelationType
// edges touching every entity named EntityName.  An empty RelationType or
// EntityAny type disables that filter.
type NeighborQuery struct {
	EntityName   string
	RelationType medical.RelationType
	SourceType   medical.EntityType
	TargetType   medical.EntityType
}

// Validate checks the query shape.
func (q NeighborQuery) Validate() error {
	if strings.TrimSpace(q.EntityName) == "" {
		return fmt.Errorf("entity name must not be empty")
	}
	if q.SourceType != medical.EntityAny && !q.SourceType.IsValid() {
		return fmt.Errorf("unknown source type %q", q.SourceType)
	}
	if q.TargetType != medical.EntityAny && !q.TargetType.IsValid() {
		return fmt.Errorf("unknown target type %q", q.TargetType)
	}
	return nil
}

// Neighbor is one entity reached through a relation, plus that relation's
// properties.
type Neighbor struct {
	EntityID     int64                `json:"entity_id"`
	Name         string               `json:"name"`
	StandardName string               `json:"standard_name"`
	Type         medical.EntityType   `json:"type"`
	RelationID   int64                `json:"relation_id"`
	RelationType medical.RelationType `json:"relation_type"`
	Properties   Attributes           `json:"properties"`
}

// NeighborFinder answers neighbor queries.  Implementations return an empty
// slice, never nil, when nothing matches.
type NeighborFinder interface {
	Neighbors(ctx context.Context, q NeighborQuery) ([]Neighbor, error)
}

// relationalNeighbors answers neighbor queries with relational joins.
type relationalNeighbors struct {
	r Reader
}

// NewNeighborFinder returns the relational NeighborFinder over r.
func NewNeighborFinder(r Reader) NeighborFinder {
	return relationalNeighbors{r: r}
}

// Neighbors matches the named entities against either relation endpoint and
// returns the opposite endpoint in relation id order.  A self-loop yields
// the entity once and unresolved endpoints are skipped.
func (f relationalNeighbors) Neighbors(ctx context.Context, q NeighborQuery) ([]Neighbor, error) {
	out := make([]Neighbor, 0)
	origins, err := f.r.FindAllByExactName(ctx, q.EntityName, q.SourceType)
	if err != nil || len(origins) == 0 {
		return out, err
	}

	originIDs := make([]int64, 0, len(origins))
	isOrigin := make(map[int64]bool, len(origins))
	for _, e := range origins {
		originIDs = append(originIDs, e.ID)
		isOrigin[e.ID] = true
	}

	relations, err := f.r.RelationsOf(ctx, originIDs, q.RelationType)
	if err != nil {
		return nil, err
	}

	type hop struct {
		rel   *Relation
		other int64
	}
	hops := make([]hop, 0, len(relations))
	otherIDs := make([]int64, 0, len(relations))
	for _, rel := range relations {
		// Source side wins when both endpoints are origins.
		from := rel.SourceID
		if !isOrigin[from] {
			from = rel.TargetID
		}
		other, ok := rel.Other(from)
		if !ok {
			continue
		}
		hops = append(hops, hop{rel: rel, other: other})
		otherIDs = append(otherIDs, other)
	}
	if len(hops) == 0 {
		return out, nil
	}

	entities, err := f.r.GetByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	for _, h := range hops {
		e, ok := entities[h.other]
		if !ok {
			continue
		}
		if q.TargetType != medical.EntityAny && e.Type != q.TargetType {
			continue
		}
		props := h.rel.Properties
		if props == nil {
			props = Attributes{}
		}
		out = append(out, Neighbor{
			EntityID:     e.ID,
			Name:         e.Name,
			StandardName: e.StandardName,
			Type:         e.Type,
			RelationID:   h.rel.ID,
			RelationType: h.rel.RelationType,
			Properties:   props,
		})
	}
	return out, nil
}

//Personal.AI order the ending

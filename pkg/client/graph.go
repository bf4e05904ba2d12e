package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// Neighbor is an entity reached over one relation.
type Neighbor struct {
	EntityID     int64                  `json:"entity_id"`
	Name         string                 `json:"name"`
	StandardName string                 `json:"standard_name"`
	Type         medical.EntityType     `json:"type"`
	RelationID   int64                  `json:"relation_id"`
	RelationType medical.RelationType   `json:"relation_type"`
	Properties   map[string]interface{} `json:"properties"`
}

// NeighborQuery filters GET /api/entities/:name/neighbors.  Empty fields
// match everything.
type NeighborQuery struct {
	Relation   medical.RelationType
	SourceType medical.EntityType
	TargetType medical.EntityType
}

// GenericLookup groups the products sharing a generic name.
type GenericLookup struct {
	GenericName   string    `json:"generic_name"`
	GenericEntity *Entity   `json:"generic_entity"`
	Products      []*Entity `json:"products"`
	TotalProducts int       `json:"total_products"`
}

// Statistics is the flat statistics report: per-type counts, totals, load
// metadata and generic-name counters.
type Statistics map[string]interface{}

// Int returns the numeric value stored under key, or 0.
func (s Statistics) Int(key string) int64 {
	if f, ok := s[key].(float64); ok {
		return int64(f)
	}
	return 0
}

// Text returns the textual value stored under key, or "".
func (s Statistics) Text(key string) string {
	v, _ := s[key].(string)
	return v
}

type neighborsResponse struct {
	Name      string     `json:"name"`
	Neighbors []Neighbor `json:"neighbors"`
	Total     int        `json:"total"`
}

type productsResponse struct {
	GenericName string    `json:"generic_name"`
	Products    []*Entity `json:"products"`
	Total       int       `json:"total"`
}

// GraphClient answers relationship, generic-name and statistics queries.
type GraphClient struct {
	client *Client
}

// Neighbors lists the entities related to name.
func (g *GraphClient) Neighbors(ctx context.Context, name string, q NeighborQuery) ([]Neighbor, error) {
	params := map[string]string{
		"relation":    string(q.Relation),
		"source_type": string(q.SourceType),
		"target_type": string(q.TargetType),
	}
	return g.neighbors(ctx, "/api/entities/", name, "/neighbors"+query(params))
}

// DrugTargets lists the genes a drug targets.
func (g *GraphClient) DrugTargets(ctx context.Context, drug string) ([]Neighbor, error) {
	return g.neighbors(ctx, "/api/drugs/", drug, "/targets")
}

// DrugDiseases lists the diseases a drug treats.
func (g *GraphClient) DrugDiseases(ctx context.Context, drug string) ([]Neighbor, error) {
	return g.neighbors(ctx, "/api/drugs/", drug, "/diseases")
}

// TargetDrugs lists the drugs that target a gene.
func (g *GraphClient) TargetDrugs(ctx context.Context, gene string) ([]Neighbor, error) {
	return g.neighbors(ctx, "/api/targets/", gene, "/drugs")
}

func (g *GraphClient) neighbors(ctx context.Context, prefix, name, suffix string) ([]Neighbor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.MalformedInput("name must not be empty")
	}
	var out neighborsResponse
	if err := g.client.get(ctx, prefix+url.PathEscape(name)+suffix, &out); err != nil {
		return nil, err
	}
	return out.Neighbors, nil
}

// SearchGeneric looks up a generic name and the products sharing it.
func (g *GraphClient) SearchGeneric(ctx context.Context, name string) (*GenericLookup, error) {
	var out GenericLookup
	if err := g.client.get(ctx, "/api/generic/search"+query(map[string]string{"name": name}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenericProducts lists the products whose generic name is name.
func (g *GraphClient) GenericProducts(ctx context.Context, name string) ([]*Entity, error) {
	var out productsResponse
	if err := g.client.get(ctx, "/api/generic/products"+query(map[string]string{"name": name}), &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// Statistics fetches the store statistics report.
func (g *GraphClient) Statistics(ctx context.Context) (Statistics, error) {
	var out Statistics
	if err := g.client.get(ctx, "/api/statistics", &out); err != nil {
		return nil, err
	}
	return out, nil
}

//Personal.AI order the ending

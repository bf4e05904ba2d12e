// Package query orchestrates the relationship and reporting queries over the
// serving knowledge-graph snapshot: neighbor traversal, alias listing,
// generic-name lookups and statistics.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MedKG-Intelligence/internal/application/engine"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ============================================================================
// Constants
// ============================================================================

const (
	CacheTTLStatistics = 15 * time.Minute

	statisticsCacheKey = "stats:g%d"
)

// ============================================================================
// DTO Definitions
// ============================================================================

// GenericLookup groups a generic drug with every product sharing its name.
type GenericLookup struct {
	GenericName   string       `json:"generic_name"`
	GenericEntity *kg.Entity   `json:"generic_entity"`
	Products      []*kg.Entity `json:"products"`
	TotalProducts int          `json:"total_products"`
}

// Statistics is the aggregate report over the serving store.
type Statistics struct {
	EntitiesByType map[string]int64
	TotalEntities  int64
	TotalRelations int64
	TotalAliases   int64
	Metadata       map[string]string
	Generic        kg.GenericCounts
}

// Flatten renders the report as one flat map: per-type counts keyed
// "drugs"/"diseases"/"genes", the totals, every metadata entry except the
// load-time totals, and the generic-name counters.
func (s *Statistics) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(s.EntitiesByType)+len(s.Metadata)+6)
	for k, v := range s.Metadata {
		if k == kg.MetaTotalEntities || k == kg.MetaTotalRelations {
			continue
		}
		out[k] = v
	}
	for k, v := range s.EntitiesByType {
		out[k] = v
	}
	out["total_entities"] = s.TotalEntities
	out["total_relations"] = s.TotalRelations
	out["total_aliases"] = s.TotalAliases
	out["generic_drugs"] = s.Generic.GenericDrugs
	out["product_drugs"] = s.Generic.ProductDrugs
	out["unique_generic_names"] = s.Generic.UniqueGenericNames
	return out
}

// ============================================================================
// Interfaces for External Dependencies
// ============================================================================

// Snapshots pins the serving snapshot for the duration of fn.
type Snapshots interface {
	Do(ctx context.Context, fn func(context.Context, *engine.Snapshot) error) error
}

// Cache is the subset of the redis cache used for aggregation results.
type Cache interface {
	GetOrLoad(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) (bool, error)
}

// ============================================================================
// Service Interface & Implementation
// ============================================================================

// KGQueryService answers relationship and reporting queries.
type KGQueryService interface {
	GetNeighbors(ctx context.Context, q kg.NeighborQuery) ([]kg.Neighbor, error)
	DrugTargets(ctx context.Context, drug string) ([]kg.Neighbor, error)
	TargetDrugs(ctx context.Context, gene string) ([]kg.Neighbor, error)
	DrugIndications(ctx context.Context, drug string) ([]kg.Neighbor, error)
	Aliases(ctx context.Context, entityName string) ([]string, error)
	SearchByGenericName(ctx context.Context, genericName string) (*GenericLookup, error)
	GenericProducts(ctx context.Context, genericName string) ([]*kg.Entity, error)
	GenericStatistics(ctx context.Context) (*kg.GenericCounts, error)
	GetStatistics(ctx context.Context) (*Statistics, error)
}

type kgQueryServiceImpl struct {
	snapshots Snapshots
	graph     kg.NeighborFinder
	cache     Cache
	logger    logging.Logger
}

type Option func(*kgQueryServiceImpl)

// WithGraph routes neighbor queries to an external graph projection instead
// of the relational join.
func WithGraph(f kg.NeighborFinder) Option {
	return func(s *kgQueryServiceImpl) { s.graph = f }
}

// WithCache caches statistics per snapshot generation.
func WithCache(c Cache) Option {
	return func(s *kgQueryServiceImpl) { s.cache = c }
}

func NewKGQueryService(snapshots Snapshots, log logging.Logger, opts ...Option) KGQueryService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &kgQueryServiceImpl{snapshots: snapshots, logger: log.Named("query")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ----------------------------------------------------------------------------
// 1. Neighbors
// ----------------------------------------------------------------------------

func (s *kgQueryServiceImpl) GetNeighbors(ctx context.Context, q kg.NeighborQuery) ([]kg.Neighbor, error) {
	q.EntityName = strings.TrimSpace(q.EntityName)
	if err := q.Validate(); err != nil {
		return nil, errors.MalformedInput(err.Error())
	}

	if s.graph != nil {
		out, err := s.graph.Neighbors(ctx, q)
		if err == nil {
			return out, nil
		}
		s.logger.Warn("graph neighbor query failed, falling back to relational store",
			logging.String("entity", q.EntityName), logging.Err(err))
	}

	var out []kg.Neighbor
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		found, err := kg.NewNeighborFinder(snap.Store).Neighbors(ctx, q)
		out = found
		return err
	})
	if err != nil {
		return nil, wrapStore(err, "neighbors")
	}
	return out, nil
}

func (s *kgQueryServiceImpl) DrugTargets(ctx context.Context, drug string) ([]kg.Neighbor, error) {
	return s.GetNeighbors(ctx, kg.NeighborQuery{
		EntityName: drug, RelationType: medical.RelationTargets,
		SourceType: medical.EntityDrug, TargetType: medical.EntityGene,
	})
}

func (s *kgQueryServiceImpl) TargetDrugs(ctx context.Context, gene string) ([]kg.Neighbor, error) {
	return s.GetNeighbors(ctx, kg.NeighborQuery{
		EntityName: gene, RelationType: medical.RelationTargets,
		SourceType: medical.EntityGene, TargetType: medical.EntityDrug,
	})
}

func (s *kgQueryServiceImpl) DrugIndications(ctx context.Context, drug string) ([]kg.Neighbor, error) {
	return s.GetNeighbors(ctx, kg.NeighborQuery{
		EntityName: drug, RelationType: medical.RelationTreats,
		SourceType: medical.EntityDrug, TargetType: medical.EntityDisease,
	})
}

// ----------------------------------------------------------------------------
// 2. Aliases & generic names
// ----------------------------------------------------------------------------

func (s *kgQueryServiceImpl) Aliases(ctx context.Context, entityName string) ([]string, error) {
	entityName = strings.TrimSpace(entityName)
	if entityName == "" {
		return nil, errors.MalformedInput("entity name must not be empty")
	}
	var out []string
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		found, err := snap.Store.AliasesOfName(ctx, entityName)
		out = found
		return err
	})
	if err != nil {
		return nil, wrapStore(err, "aliases")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *kgQueryServiceImpl) SearchByGenericName(ctx context.Context, genericName string) (*GenericLookup, error) {
	genericName = strings.TrimSpace(genericName)
	if genericName == "" {
		return nil, errors.MalformedInput("generic name must not be empty")
	}
	out := &GenericLookup{GenericName: genericName}
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		generic, err := snap.Store.FindGeneric(ctx, genericName)
		if err != nil {
			return err
		}
		products, err := snap.Store.FindProducts(ctx, genericName)
		if err != nil {
			return err
		}
		out.GenericEntity = generic
		out.Products = products
		return nil
	})
	if err != nil {
		return nil, wrapStore(err, "generic search")
	}
	if out.Products == nil {
		out.Products = []*kg.Entity{}
	}
	out.TotalProducts = len(out.Products)
	return out, nil
}

func (s *kgQueryServiceImpl) GenericProducts(ctx context.Context, genericName string) ([]*kg.Entity, error) {
	lookup, err := s.SearchByGenericName(ctx, genericName)
	if err != nil {
		return nil, err
	}
	return lookup.Products, nil
}

func (s *kgQueryServiceImpl) GenericStatistics(ctx context.Context) (*kg.GenericCounts, error) {
	var out *kg.GenericCounts
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		c, err := snap.Store.GenericCounts(ctx)
		out = c
		return err
	})
	if err != nil {
		return nil, wrapStore(err, "generic statistics")
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// 3. Statistics
// ----------------------------------------------------------------------------

func (s *kgQueryServiceImpl) GetStatistics(ctx context.Context) (*Statistics, error) {
	var out *Statistics
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		if s.cache == nil {
			st, err := aggregate(ctx, snap.Store)
			out = st
			return err
		}
		var cached Statistics
		_, err := s.cache.GetOrLoad(ctx, fmt.Sprintf(statisticsCacheKey, snap.Generation), &cached, CacheTTLStatistics,
			func(ctx context.Context) (interface{}, error) {
				return aggregate(ctx, snap.Store)
			})
		out = &cached
		return err
	})
	if err != nil {
		return nil, wrapStore(err, "statistics")
	}
	return out, nil
}

func aggregate(ctx context.Context, r kg.Reader) (*Statistics, error) {
	var (
		counts  *kg.Counts
		generic *kg.GenericCounts
		meta    map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = r.Counts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		generic, err = r.GenericCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = r.Metadata(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	st := &Statistics{
		EntitiesByType: make(map[string]int64, len(medical.EntityTypes)),
		TotalEntities:  counts.TotalEntities,
		TotalRelations: counts.TotalRelations,
		TotalAliases:   counts.TotalAliases,
		Metadata:       meta,
		Generic:        *generic,
	}
	for _, t := range medical.EntityTypes {
		st.EntitiesByType[t.StatisticsKey()] = counts.EntitiesByType[t]
	}
	if st.Metadata == nil {
		st.Metadata = map[string]string{}
	}
	return st, nil
}

// MarshalJSON emits the flat report.
func (s *Statistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flatten())
}

// UnmarshalJSON reads the flat report back, so cached reports round-trip.
func (s *Statistics) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	num := func(k string) int64 {
		f, _ := flat[k].(float64)
		delete(flat, k)
		return int64(f)
	}
	*s = Statistics{EntitiesByType: map[string]int64{}, Metadata: map[string]string{}}
	for _, t := range medical.EntityTypes {
		s.EntitiesByType[t.StatisticsKey()] = num(t.StatisticsKey())
	}
	s.TotalEntities = num("total_entities")
	s.TotalRelations = num("total_relations")
	s.TotalAliases = num("total_aliases")
	s.Generic = kg.GenericCounts{
		GenericDrugs:       num("generic_drugs"),
		ProductDrugs:       num("product_drugs"),
		UniqueGenericNames: num("unique_generic_names"),
	}
	for k, v := range flat {
		if str, ok := v.(string); ok {
			s.Metadata[k] = str
		}
	}
	return nil
}

// wrapStore annotates err with the failing operation, keeping its code.
func wrapStore(err error, op string) error {
	return errors.Wrap(err, errors.CodeUnknown, "query: "+op+" failed")
}

//Personal.AI order the ending

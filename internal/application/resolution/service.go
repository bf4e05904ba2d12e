// Package resolution is the application entry point for entity resolution
// and fuzzy search.  It validates requests, pins the serving snapshot and
// fronts single resolutions with an optional result cache.
package resolution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/MedKG-Intelligence/internal/application/engine"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedKG-Intelligence/internal/intelligence/linker"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ============================================================================
// Constants & Config
// ============================================================================

const (
	DefaultMaxBatchSize   = 1000
	DefaultSearchLimit    = 10
	DefaultMaxSearchLimit = 100
	DefaultCacheTTL       = 10 * time.Minute
)

// Config carries the resolution defaults applied to every request.
type Config struct {
	Threshold          int
	FuzzyFallback      bool
	NormalizeToGeneric bool
	BatchConcurrency   int
	MaxBatchSize       int
	SearchLimit        int
	MaxSearchLimit     int
	CacheTTL           time.Duration
}

func (c *Config) applyDefaults() {
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = linker.DefaultConcurrency
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.MaxSearchLimit <= 0 {
		c.MaxSearchLimit = DefaultMaxSearchLimit
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

// ============================================================================
// Dependencies
// ============================================================================

// Snapshots pins the serving snapshot for the duration of fn.
type Snapshots interface {
	Do(ctx context.Context, fn func(context.Context, *engine.Snapshot) error) error
}

// ResultCache is the subset of the redis cache the service needs.
type ResultCache interface {
	GetOrLoad(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) (bool, error)
}

// ============================================================================
// Service
// ============================================================================

// Service resolves and searches against the serving snapshot.
type Service struct {
	snapshots Snapshots
	cfg       Config
	cache     ResultCache
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

type Option func(*Service)

// WithCache fronts single resolutions with c.
func WithCache(c ResultCache) Option { return func(s *Service) { s.cache = c } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(snapshots Snapshots, cfg Config, log logging.Logger, opts ...Option) *Service {
	cfg.applyDefaults()
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &Service{snapshots: snapshots, cfg: cfg, logger: log.Named("resolution")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Defaults returns the configured linker options.  Transports start from
// these and override what the request sets.
func (s *Service) Defaults() linker.Options {
	return linker.Options{
		FuzzyFallback:      s.cfg.FuzzyFallback,
		NormalizeToGeneric: s.cfg.NormalizeToGeneric,
		Threshold:          s.cfg.Threshold,
	}
}

// Resolve resolves one mention.  A nil Result means no entity qualified.
func (s *Service) Resolve(ctx context.Context, text string, opts linker.Options) (linker.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.MalformedInput("text must not be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var result linker.Result
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		r, err := s.resolveCached(ctx, snap, text, opts)
		result = r
		return err
	})
	s.metrics.ObserveResolution("resolve", time.Since(start))
	if err != nil {
		return nil, err
	}
	s.record(result)
	return result, nil
}

// ResolveBatch resolves every text independently, preserving order.
func (s *Service) ResolveBatch(ctx context.Context, texts []string, opts linker.Options) ([]linker.Result, error) {
	if len(texts) == 0 {
		return nil, errors.MalformedInput("texts must not be empty")
	}
	if len(texts) > s.cfg.MaxBatchSize {
		return nil, errors.MalformedInput("batch too large").WithDetailf("%d texts, limit %d", len(texts), s.cfg.MaxBatchSize)
	}

	start := time.Now()
	var results []linker.Result
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		r, err := snap.Linker.ResolveMany(ctx, texts, opts, s.cfg.BatchConcurrency)
		results = r
		return err
	})
	s.metrics.ObserveResolution("batch", time.Since(start))
	s.metrics.ObserveBatch(len(texts))
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		s.record(r)
	}
	return results, nil
}

// Search lists entities whose name, standard name or any alias contains
// keyword case-insensitively, ordered by id.  limit <= 0 selects the
// default and larger limits are clamped.
func (s *Service) Search(ctx context.Context, keyword string, t medical.EntityType, limit int) ([]*kg.Entity, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, errors.MalformedInput("keyword must not be empty")
	}
	if t != medical.EntityAny && !t.IsValid() {
		return nil, errors.MalformedInput("unknown entity type").WithDetail(string(t))
	}
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	if limit > s.cfg.MaxSearchLimit {
		limit = s.cfg.MaxSearchLimit
	}

	var out []*kg.Entity
	err := s.snapshots.Do(ctx, func(ctx context.Context, snap *engine.Snapshot) error {
		found, err := snap.Store.SearchSubstring(ctx, keyword, t, limit)
		out = found
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*kg.Entity{}
	}
	return out, nil
}

func (s *Service) record(r linker.Result) {
	if r == nil {
		s.metrics.RecordResolution("")
		return
	}
	s.metrics.RecordResolution(string(r.Best().MatchType))
}

// ============================================================================
// Caching
// ============================================================================

// cachedResult is the wire form of the Result sum type.
type cachedResult struct {
	Match   *linker.Match        `json:"match,omitempty"`
	Generic *linker.GenericMatch `json:"generic,omitempty"`
}

func (c *cachedResult) result() linker.Result {
	if c.Generic != nil {
		return c.Generic
	}
	if c.Match != nil {
		return c.Match
	}
	return nil
}

func wrapResult(r linker.Result) *cachedResult {
	switch v := r.(type) {
	case *linker.Match:
		return &cachedResult{Match: v}
	case *linker.GenericMatch:
		return &cachedResult{Generic: v}
	}
	return nil
}

// cacheKey scopes entries to a snapshot generation, so a reload never
// serves results computed against the previous store.
func cacheKey(gen uint64, text string, o linker.Options) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%t\x00%t\x00%d", text, o.Type, o.FuzzyFallback, o.NormalizeToGeneric, o.Threshold)))
	return fmt.Sprintf("resolve:g%d:%s", gen, hex.EncodeToString(h[:16]))
}

func (s *Service) resolveCached(ctx context.Context, snap *engine.Snapshot, text string, opts linker.Options) (linker.Result, error) {
	if s.cache == nil {
		return snap.Linker.Resolve(ctx, text, opts)
	}

	var dest cachedResult
	found, err := s.cache.GetOrLoad(ctx, cacheKey(snap.Generation, text, opts), &dest, s.cfg.CacheTTL,
		func(ctx context.Context) (interface{}, error) {
			r, err := snap.Linker.Resolve(ctx, text, opts)
			if err != nil || r == nil {
				return nil, err
			}
			return wrapResult(r), nil
		})
	if err != nil || !found {
		return nil, err
	}
	return dest.result(), nil
}

//Personal.AI order the ending

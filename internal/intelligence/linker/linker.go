// Package linker resolves free-text mentions of drugs, diseases and genes to
// canonical knowledge-graph entities through a five-tier cascade: exact,
// case-insensitive, alias, partial and approximate matching.  Every tier
// either produces a match or falls through; a miss is never an error.
package linker

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// Confidence values of the deterministic tiers.
const (
	ConfidenceExact       = 1.0
	ConfidenceFolded      = 0.99
	ConfidencePartialCap  = 0.95
	minPartialRatio       = 0.3
	maxLengthPenalty      = 0.3
	lengthPenaltyDivisor  = 50.0
	genericCandidateScale = 0.9
)

// DefaultThreshold is the minimum approximate score accepted by tier 5.
const DefaultThreshold = 85

// DefaultConcurrency bounds ResolveMany when no limit is given.
const DefaultConcurrency = 8

// Options control one resolution.
type Options struct {
	// Type restricts candidates; medical.EntityAny accepts every type.
	Type medical.EntityType `json:"type,omitempty"`
	// FuzzyFallback enables the partial/substring tier.
	FuzzyFallback bool `json:"fuzzy_fallback"`
	// NormalizeToGeneric re-expresses branded drug products through their
	// generic name.
	NormalizeToGeneric bool `json:"normalize_to_generic"`
	// Threshold is the approximate-match cut-off on a 0..100 scale.
	Threshold int `json:"threshold"`
}

// DefaultOptions returns FuzzyFallback on, no normalization, threshold 85.
func DefaultOptions() Options {
	return Options{FuzzyFallback: true, Threshold: DefaultThreshold}
}

// Validate rejects options that must not reach the cascade.
func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 100 {
		return errors.MalformedInput("threshold must be within 0..100").WithDetailf("got %d", o.Threshold)
	}
	if o.Type != medical.EntityAny && !o.Type.IsValid() {
		return errors.MalformedInput("unknown entity type").WithDetail(string(o.Type))
	}
	return nil
}

// Linker runs the cascade against one store and the index built from it.
// It is safe for concurrent use.
type Linker struct {
	store  kg.Reader
	index  *Index
	scorer Scorer
	logger logging.Logger
}

// New builds a Linker.  A nil scorer selects Jaro-Winkler.
func New(store kg.Reader, index *Index, scorer Scorer, log logging.Logger) *Linker {
	if scorer == nil {
		scorer, _ = NewScorer(ScorerJaroWinkler)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Linker{store: store, index: index, scorer: scorer, logger: log.Named("linker")}
}

// Index returns the exact index the linker consults.
func (l *Linker) Index() *Index { return l.index }

// Scorer returns the approximate-match scorer.
func (l *Linker) Scorer() Scorer { return l.scorer }

// Resolve returns the best match for text, or nil when nothing qualifies.
func (l *Linker) Resolve(ctx context.Context, text string, opts Options) (Result, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, errors.MalformedInput("text must not be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	m, err := l.cascade(ctx, query, opts)
	if err != nil || m == nil {
		return nil, err
	}
	l.logger.Debug("resolved",
		logging.Query(query),
		logging.EntityID(m.Entity.ID),
		logging.String("match_type", string(m.MatchType)),
		logging.Float64("confidence", m.Confidence),
	)

	if opts.NormalizeToGeneric && m.Entity.IsBrandedProduct() {
		return l.normalize(ctx, m)
	}
	return m, nil
}

// ResolveMany resolves texts independently with at most concurrency
// resolutions in flight and returns results in input order.  An empty
// element rejects the whole batch before any work starts.
func (l *Linker) ResolveMany(ctx context.Context, texts []string, opts Options, concurrency int) ([]Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, errors.MalformedInput("text must not be empty").WithDetailf("index %d", i)
		}
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(texts))
	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		i, text := i, text
		g.Go(func() error {
			defer sem.Release(1)
			r, err := l.Resolve(gctx, text, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Cascade
// ─────────────────────────────────────────────────────────────────────────────

func (l *Linker) cascade(ctx context.Context, query string, opts Options) (*Match, error) {
	folded := Fold(query)

	// Tier 1: exact.
	e, err := l.store.FindByExactNameOrStandardName(ctx, query, opts.Type)
	if err != nil {
		return nil, err
	}
	if e != nil {
		return &Match{Entity: e, MatchType: medical.MatchExact, Confidence: ConfidenceExact, Query: query, MatchedText: query}, nil
	}

	// Tier 2: case-insensitive over canonical keys.
	if rec, ok := l.index.Lookup(folded, opts.Type); ok && rec.Kind == KeyCanonical {
		return &Match{Entity: rec.Entity, MatchType: medical.MatchCaseInsensitive, Confidence: ConfidenceFolded, Query: query, MatchedText: rec.Text}, nil
	}

	// Tier 3: alias, verbatim in the store first, then folded in the index.
	e, err = l.store.FindByAlias(ctx, query, opts.Type)
	if err != nil {
		return nil, err
	}
	if e != nil {
		return &Match{Entity: e, MatchType: medical.MatchAlias, Confidence: ConfidenceExact, Query: query, MatchedText: query}, nil
	}
	if rec, ok := l.index.Lookup(folded, opts.Type); ok && rec.Kind == KeyAlias {
		return &Match{Entity: rec.Entity, MatchType: medical.MatchAlias, Confidence: ConfidenceFolded, Query: query, MatchedText: rec.Text}, nil
	}

	// Tier 4: partial.
	if opts.FuzzyFallback {
		m, err := l.partial(ctx, query, folded, opts.Type)
		if err != nil || m != nil {
			return m, err
		}
	}

	// Tier 5: approximate.
	return l.approximate(ctx, query, folded, opts)
}

type partialCandidate struct {
	entity  *kg.Entity
	text    string
	score   float64
	generic bool
}

func partialScore(folded, candidate string) (float64, bool) {
	fc := Fold(candidate)
	if fc == "" || !strings.Contains(fc, folded) {
		return 0, false
	}
	lq, lc := runeLen(folded), runeLen(fc)
	ratio := float64(lq) / float64(lc)
	if ratio < minPartialRatio {
		return 0, false
	}
	penalty := float64(lc-lq) / lengthPenaltyDivisor
	if penalty > maxLengthPenalty {
		penalty = maxLengthPenalty
	}
	return ratio * (1 - penalty), true
}

func (l *Linker) partial(ctx context.Context, query, folded string, t medical.EntityType) (*Match, error) {
	entities, err := l.store.ScanSubstring(ctx, query, t)
	if err != nil {
		return nil, err
	}

	var cands []partialCandidate
	for _, e := range entities {
		texts := []string{e.Name}
		if e.StandardName != "" && e.StandardName != e.Name {
			texts = append(texts, e.StandardName)
		}
		for _, c := range texts {
			if s, ok := partialScore(folded, c); ok {
				cands = append(cands, partialCandidate{entity: e, text: c, score: s})
			}
		}
		if e.Type == medical.EntityDrug && e.GenericName != "" {
			if s, ok := partialScore(folded, e.GenericName); ok {
				cands = append(cands, partialCandidate{entity: e, text: e.GenericName, score: s * genericCandidateScale, generic: true})
			}
		}
	}
	if len(cands) == 0 {
		return nil, nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.text != b.text {
			return a.text < b.text
		}
		return a.entity.ID < b.entity.ID
	})
	best := cands[0]
	conf := best.score
	if conf > ConfidencePartialCap {
		conf = ConfidencePartialCap
	}
	mt := medical.MatchPartial
	if best.generic {
		mt = medical.MatchPartialGeneric
	}
	return &Match{Entity: best.entity, MatchType: mt, Confidence: conf, Query: query, MatchedText: best.text}, nil
}

func (l *Linker) approximate(ctx context.Context, query, folded string, opts Options) (*Match, error) {
	var (
		best      *Record
		bestScore = -1.0
	)
	for i, rec := range l.index.Keys(opts.Type) {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s := l.scorer.Score(folded, rec.Key)
		if best == nil || s > bestScore || (s == bestScore && betterKey(rec, best)) {
			best, bestScore = rec, s
		}
	}
	if best == nil || bestScore < float64(opts.Threshold) {
		return nil, nil
	}

	m := &Match{Entity: best.Entity, MatchType: medical.MatchFuzzy, Confidence: bestScore / 100, Query: query, MatchedText: best.Text}
	if best.Kind == KeyAlias {
		m.Canonical, _ = l.index.CanonicalName(best.Key)
	}
	return m, nil
}

// betterKey orders equal-score keys: canonical before alias, then key.
func betterKey(a, b *Record) bool {
	if a.Kind != b.Kind {
		return a.Kind == KeyCanonical
	}
	return a.Key < b.Key
}

// ─────────────────────────────────────────────────────────────────────────────
// Generic normalization
// ─────────────────────────────────────────────────────────────────────────────

func (l *Linker) normalize(ctx context.Context, m *Match) (Result, error) {
	name := m.Entity.GenericName
	generic, err := l.store.FindGeneric(ctx, name)
	if err != nil {
		return nil, err
	}
	products, err := l.store.FindProducts(ctx, name)
	if err != nil {
		return nil, err
	}
	return &GenericMatch{Product: m, GenericName: name, GenericEntity: generic, RelatedProducts: products}, nil
}

//Personal.AI order the ending

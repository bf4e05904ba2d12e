// Package ingest populates the relational store from a staged ontology
// document and re-derives drug normalization on existing rows.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/drug"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ============================================================================
// Dependencies
// ============================================================================

// Publisher announces committed loads.
type Publisher interface {
	PublishSnapshotLoaded(ctx context.Context, ev kg.SnapshotLoaded) error
}

// Locker serializes loads across processes.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Projector mirrors the committed store into a secondary graph backend.
type Projector interface {
	Sync(ctx context.Context, r kg.Reader) (int, error)
}

// ============================================================================
// DTOs
// ============================================================================

// LoadOptions controls one load.
type LoadOptions struct {
	// Replace empties every table before inserting.
	Replace bool
}

// Report summarises a committed load.
type Report struct {
	LoadID              string                       `json:"load_id"`
	Source              string                       `json:"source"`
	Checksum            string                       `json:"snapshot_checksum"`
	Entities            map[medical.EntityType]int   `json:"entities"`
	Relations           map[medical.RelationType]int `json:"relations"`
	Aliases             int                          `json:"aliases"`
	UnresolvedRelations int                          `json:"unresolved_relations"`
	SkippedRelations    int                          `json:"skipped_relations"`
	Projected           int                          `json:"projected,omitempty"`
	Published           bool                         `json:"published"`
	Duration            time.Duration                `json:"duration"`
}

// TotalEntities sums the per-type entity counts.
func (r *Report) TotalEntities() int64 {
	var n int64
	for _, c := range r.Entities {
		n += int64(c)
	}
	return n
}

// TotalRelations sums the per-type relation counts.
func (r *Report) TotalRelations() int64 {
	var n int64
	for _, c := range r.Relations {
		n += int64(c)
	}
	return n
}

// ============================================================================
// Loader
// ============================================================================

// Loader writes staged documents into a kg.Store.
type Loader struct {
	store      kg.Store
	normalizer *drug.Normalizer
	publisher  Publisher
	lock       Locker
	projector  Projector
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
	now        func() time.Time
}

type Option func(*Loader)

// WithPublisher announces committed loads through p.
func WithPublisher(p Publisher) Option { return func(l *Loader) { l.publisher = p } }

// WithLock holds lk for the duration of every write.
func WithLock(lk Locker) Option { return func(l *Loader) { l.lock = lk } }

func WithProjector(p Projector) Option { return func(l *Loader) { l.projector = p } }

func WithNormalizer(n *drug.Normalizer) Option { return func(l *Loader) { l.normalizer = n } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(l *Loader) { l.metrics = m } }

func WithClock(now func() time.Time) Option { return func(l *Loader) { l.now = now } }

func NewLoader(store kg.Store, log logging.Logger, opts ...Option) *Loader {
	if log == nil {
		log = logging.NewNopLogger()
	}
	l := &Loader{
		store:      store,
		normalizer: drug.NewNormalizer(),
		logger:     log.Named("ingest"),
		now:        time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load fetches, parses and writes the document from src in one transaction.
// Nothing is written when any step fails.
func (l *Loader) Load(ctx context.Context, src Source, opts LoadOptions) (report *Report, err error) {
	start := l.now()
	defer func() { l.metrics.RecordLoad(err) }()

	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	raw, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(raw, l.normalizer)
	if err != nil {
		return nil, err
	}
	for _, s := range doc.UnknownSections {
		l.logger.Warn("ignoring unknown staged section", logging.String("section", s))
	}

	report = &Report{
		LoadID:           uuid.NewString(),
		Source:           src.Name(),
		Checksum:         doc.Checksum,
		Entities:         map[medical.EntityType]int{},
		Relations:        map[medical.RelationType]int{},
		SkippedRelations: doc.SkippedRelations,
	}
	log := l.logger.With(logging.String("load_id", report.LoadID), logging.String("source", report.Source))
	log.Info("load started", logging.Bool("replace", opts.Replace), logging.Int("entities", len(doc.Entities)),
		logging.Int("relations", len(doc.Relations)))

	err = l.store.Load(ctx, func(w kg.Writer) error {
		if opts.Replace {
			if err := w.Truncate(ctx); err != nil {
				return err
			}
		}
		return l.write(ctx, w, doc, report, start)
	})
	if err != nil {
		log.Error("load rolled back", logging.Err(err))
		return nil, err
	}
	report.Duration = l.now().Sub(start)
	log.Info("load committed",
		logging.Int64("total_entities", report.TotalEntities()),
		logging.Int64("total_relations", report.TotalRelations()),
		logging.Int("unresolved_relations", report.UnresolvedRelations),
		logging.Duration("took", report.Duration))

	l.afterCommit(ctx, report, log)
	return report, nil
}

func (l *Loader) write(ctx context.Context, w kg.Writer, doc *Document, report *Report, start time.Time) error {
	ids := make(map[string]int64, 2*len(doc.Entities))
	var sources []string
	seenSource := map[string]bool{}

	for i := range doc.Entities {
		staged := &doc.Entities[i]
		id, err := w.InsertEntity(ctx, &staged.Entity)
		if err != nil {
			return err
		}
		report.Entities[staged.Entity.Type]++
		// First loaded entity wins a shared name.
		for _, key := range []string{staged.Entity.Name, staged.Entity.StandardName} {
			if _, taken := ids[key]; !taken {
				ids[key] = id
			}
		}
		for _, s := range strings.Split(staged.Entity.Source, ",") {
			if s != "" && s != defaultDataSource && !seenSource[s] {
				seenSource[s] = true
				sources = append(sources, s)
			}
		}
		for _, alias := range staged.Aliases {
			if _, err := w.InsertAlias(ctx, id, alias); err != nil {
				return err
			}
			report.Aliases++
		}
	}

	for i := range doc.Relations {
		r := &doc.Relations[i].Relation
		r.SourceID = ids[r.SourceName]
		r.TargetID = ids[r.TargetName]
		if !r.Resolved() {
			report.UnresolvedRelations++
		}
		if _, err := w.InsertRelation(ctx, r); err != nil {
			return err
		}
		report.Relations[r.RelationType]++
	}

	meta := make(map[string]string, len(doc.Metadata)+7)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	if meta[kg.MetaVersion] == "" {
		meta[kg.MetaVersion] = "1.0.0"
	}
	if meta[kg.MetaCreatedAt] == "" {
		meta[kg.MetaCreatedAt] = start.UTC().Format(time.RFC3339)
	}
	if meta[kg.MetaDataSources] == "" {
		meta[kg.MetaDataSources] = strings.Join(sources, ",")
	}
	meta[kg.MetaTotalEntities] = fmt.Sprint(report.TotalEntities())
	meta[kg.MetaTotalRelations] = fmt.Sprint(report.TotalRelations())
	meta[kg.MetaSnapshotChecksum] = report.Checksum
	meta[kg.MetaLoadID] = report.LoadID
	for k, v := range meta {
		if err := w.PutMetadata(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// afterCommit runs the best-effort follow-ups; the load already stands.
func (l *Loader) afterCommit(ctx context.Context, report *Report, log logging.Logger) {
	if l.projector != nil {
		n, err := l.projector.Sync(ctx, l.store)
		if err != nil {
			log.Warn("graph projection sync failed", logging.Err(err))
		} else {
			report.Projected = n
		}
	}
	if l.publisher != nil {
		err := l.publisher.PublishSnapshotLoaded(ctx, kg.SnapshotLoaded{
			LoadID:         report.LoadID,
			Checksum:       report.Checksum,
			Source:         report.Source,
			TotalEntities:  report.TotalEntities(),
			TotalRelations: report.TotalRelations(),
			LoadedAt:       l.now().UTC(),
		})
		if err != nil {
			log.Warn("snapshot event publish failed", logging.Err(err))
		} else {
			report.Published = true
		}
	}
}

// Renormalize re-derives generic name, dosage form and the generic flag for
// every drug row in one transaction.  It returns the number of rows whose
// normalization changed.
func (l *Loader) Renormalize(ctx context.Context) (updated int, err error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	err = l.store.Load(ctx, func(w kg.Writer) error {
		drugs, err := w.ListEntities(ctx, medical.EntityDrug)
		if err != nil {
			return err
		}
		for _, e := range drugs {
			n := l.normalizer.Normalize(e.Name)
			if n.GenericName == e.GenericName && n.DosageForm == e.DosageForm && n.IsGeneric == e.IsGeneric {
				continue
			}
			if err := w.UpdateNormalization(ctx, e.ID, n.GenericName, n.DosageForm, n.IsGeneric); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.logger.Info("renormalization committed", logging.Int("updated", updated))
	return updated, nil
}

func (l *Loader) acquire(ctx context.Context) (func(), error) {
	if l.lock == nil {
		return func() {}, nil
	}
	ok, err := l.lock.TryLock(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLoadFailed, "acquire load lock")
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeConflict, "another load is in progress")
	}
	return func() {
		if err := l.lock.Unlock(context.Background()); err != nil {
			l.logger.Warn("load lock release failed", logging.Err(err))
		}
	}, nil
}

//Personal.AI order the ending

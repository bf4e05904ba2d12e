// Package engine owns the serving snapshot: one attached store, the exact
// index built from it and the linker over both.  Reload builds a complete
// replacement and swaps it in atomically; a retired snapshot is closed only
// once its in-flight readers have finished.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedKG-Intelligence/internal/intelligence/linker"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// Reload triggers, used as a metric label and in logs.
const (
	TriggerStartup = "startup"
	TriggerHTTP    = "http"
	TriggerCLI     = "cli"
	TriggerFile    = "file"
	TriggerKafka   = "kafka"
)

// Opener attaches a fresh store handle.  Each call must return an
// independent handle; the engine closes it when the snapshot retires.
type Opener func(ctx context.Context) (kg.Store, error)

// Snapshot is one immutable generation of served state.
type Snapshot struct {
	Store      kg.Store
	Index      *linker.Index
	Linker     *linker.Linker
	Generation uint64
	LoadedAt   time.Time

	gate    sync.RWMutex
	retired bool
}

// SnapshotInfo describes a published snapshot.
type SnapshotInfo struct {
	Generation uint64            `json:"generation"`
	LoadedAt   time.Time         `json:"loaded_at"`
	Index      linker.IndexStats `json:"index"`
}

// Info summarises s.
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{Generation: s.Generation, LoadedAt: s.LoadedAt, Index: s.Index.Stats()}
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer selects the approximate-match scorer.
func WithScorer(s linker.Scorer) Option { return func(e *Engine) { e.scorer = s } }

// WithMetrics records reloads and snapshot shape.
func WithMetrics(m *prometheus.AppMetrics) Option { return func(e *Engine) { e.metrics = m } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine serves the current snapshot and swaps it on Reload.
type Engine struct {
	open    Opener
	scorer  linker.Scorer
	metrics *prometheus.AppMetrics
	logger  logging.Logger
	now     func() time.Time

	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	gen      uint64
	closed   atomic.Bool
}

// New builds an Engine.  Nothing is attached until Start.
func New(open Opener, log logging.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	e := &Engine{open: open, logger: log.Named("engine"), now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start publishes the first snapshot.  Without one the engine refuses to
// serve, so every failure is reported as StoreUnavailable.
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.reload(ctx, TriggerStartup)
	if err != nil && !errors.IsStoreUnavailable(err) {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "initial snapshot failed")
	}
	return err
}

// Reload builds a new snapshot and swaps it in.  On failure the previous
// snapshot keeps serving.  Concurrent reloads are rejected with
// ErrCodeReloadInProgress.
func (e *Engine) Reload(ctx context.Context, trigger string) (SnapshotInfo, error) {
	return e.reload(ctx, trigger)
}

func (e *Engine) reload(ctx context.Context, trigger string) (SnapshotInfo, error) {
	if e.closed.Load() {
		return SnapshotInfo{}, errors.StoreUnavailable("engine closed")
	}
	if !e.reloadMu.TryLock() {
		return SnapshotInfo{}, errors.New(errors.ErrCodeReloadInProgress, "reload already in progress")
	}
	defer e.reloadMu.Unlock()

	start := e.now()
	next, err := e.build(ctx)
	if err != nil {
		e.metrics.RecordReload(trigger, 0, err)
		e.logger.Error("snapshot reload failed", logging.String("trigger", trigger), logging.Err(err))
		return SnapshotInfo{}, err
	}
	e.gen++
	next.Generation = e.gen
	next.LoadedAt = e.now()

	prev := e.current.Swap(next)
	took := e.now().Sub(start)
	e.publishMetrics(ctx, next, took, trigger)

	info := next.Info()
	e.logger.Info("snapshot published",
		logging.String("trigger", trigger),
		logging.Generation(next.Generation),
		logging.Int("canonical_keys", info.Index.CanonicalKeys),
		logging.Int("alias_keys", info.Index.AliasKeys),
		logging.Duration("took", took),
	)

	if prev != nil {
		e.retire(prev)
	}
	return info, nil
}

func (e *Engine) build(ctx context.Context) (*Snapshot, error) {
	store, err := e.open(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "attach store")
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "store ping failed")
	}
	idx, err := linker.BuildIndex(ctx, store, e.logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Snapshot{
		Store:  store,
		Index:  idx,
		Linker: linker.New(store, idx, e.scorer, e.logger),
	}, nil
}

func (e *Engine) publishMetrics(ctx context.Context, s *Snapshot, took time.Duration, trigger string) {
	if e.metrics == nil {
		return
	}
	stats := s.Index.Stats()
	byType := map[string]int64{}
	if counts, err := s.Store.Counts(ctx); err == nil {
		for t, n := range counts.EntitiesByType {
			byType[string(t)] = n
		}
	}
	e.metrics.RecordSnapshot(s.Generation, stats.CanonicalKeys, stats.AliasKeys, stats.Collisions, byType)
	e.metrics.RecordReload(trigger, took, nil)
}

// retire waits for the snapshot's readers to drain and closes its store.
func (e *Engine) retire(s *Snapshot) {
	s.gate.Lock()
	s.retired = true
	s.gate.Unlock()
	if err := s.Store.Close(); err != nil {
		e.logger.Warn("closing retired snapshot", logging.Generation(s.Generation), logging.Err(err))
	}
}

// Acquire pins the current snapshot until release is called.  It fails with
// StoreUnavailable while nothing is published.
func (e *Engine) Acquire() (*Snapshot, func(), error) {
	for {
		s := e.current.Load()
		if s == nil {
			return nil, nil, errors.StoreUnavailable("no snapshot published")
		}
		s.gate.RLock()
		if !s.retired {
			return s, s.gate.RUnlock, nil
		}
		// Swapped out between Load and RLock; the next Load sees its
		// replacement.
		s.gate.RUnlock()
	}
}

// Do runs fn against a pinned snapshot.
func (e *Engine) Do(ctx context.Context, fn func(context.Context, *Snapshot) error) error {
	s, release, err := e.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, s)
}

// Current returns information on the serving snapshot, if any.
func (e *Engine) Current() (SnapshotInfo, bool) {
	s := e.current.Load()
	if s == nil {
		return SnapshotInfo{}, false
	}
	return s.Info(), true
}

// Ready reports whether a snapshot is published and its store answers.
func (e *Engine) Ready(ctx context.Context) error {
	return e.Do(ctx, func(ctx context.Context, s *Snapshot) error {
		return s.Store.Ping(ctx)
	})
}

// Close retires the serving snapshot.  Later calls to Acquire fail.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()
	if s := e.current.Swap(nil); s != nil {
		e.retire(s)
	}
	return nil
}

//Personal.AI order the ending

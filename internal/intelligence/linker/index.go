package linker

import (
	"context"
	"sort"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// KeyKind tells canonical keys (name, standard name) from alias keys.
type KeyKind uint8

const (
	KeyCanonical KeyKind = iota
	KeyAlias
)

func (k KeyKind) String() string {
	if k == KeyAlias {
		return "alias"
	}
	return "canonical"
}

func (k KeyKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Record is what a Trie key resolves to.
type Record struct {
	Key    string
	Kind   KeyKind
	Text   string // the original, unfolded string
	Entity *kg.Entity
}

// Collision is an insert that lost to an earlier record of a different
// entity for the same key.
type Collision struct {
	Key      string             `json:"key"`
	Kind     KeyKind            `json:"kind"`
	KeptID   int64              `json:"kept_id"`
	KeptType medical.EntityType `json:"kept_type"`
	DropID   int64              `json:"dropped_id"`
}

// IndexStats summarises a built index.
type IndexStats struct {
	Entities      int `json:"entities"`
	CanonicalKeys int `json:"canonical_keys"`
	AliasKeys     int `json:"alias_keys"`
	Collisions    int `json:"collisions"`
}

type scope struct {
	trie *Trie
	keys []*Record // insertion order: canonical keys, then aliases
}

func newScope() *scope { return &scope{trie: NewTrie()} }

// Index is the in-memory exact-match structure derived from a store.  One
// global scope answers untyped lookups and one scope per entity type
// answers filtered lookups.  It is immutable once built.
type Index struct {
	all            *scope
	byType         map[medical.EntityType]*scope
	aliasCanonical map[string]string
	entities       map[int64]*kg.Entity
	collisions     []Collision
	stats          IndexStats
}

func newIndex() *Index {
	idx := &Index{
		all:            newScope(),
		byType:         make(map[medical.EntityType]*scope, len(medical.EntityTypes)),
		aliasCanonical: make(map[string]string),
		entities:       make(map[int64]*kg.Entity),
	}
	for _, t := range medical.EntityTypes {
		idx.byType[t] = newScope()
	}
	return idx
}

// BuildIndex streams every entity and alias from r, in id order, into a new
// Index.  Canonical keys go in before any alias so a name always beats an
// alias for the same key.
func BuildIndex(ctx context.Context, r kg.Reader, log logging.Logger) (*Index, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	idx := newIndex()

	err := r.EachEntity(ctx, func(e *kg.Entity) error {
		idx.entities[e.ID] = e
		idx.add(Fold(e.Name), KeyCanonical, e.Name, e)
		if e.StandardName != "" && e.StandardName != e.Name {
			idx.add(Fold(e.StandardName), KeyCanonical, e.StandardName, e)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIndexBuildFailed, "index entities")
	}

	err = r.EachAlias(ctx, func(a kg.Alias) error {
		e, ok := idx.entities[a.EntityID]
		if !ok {
			return nil
		}
		key := Fold(a.Alias)
		if key == "" {
			return nil
		}
		if idx.add(key, KeyAlias, a.Alias, e) {
			if _, seen := idx.aliasCanonical[key]; !seen {
				idx.aliasCanonical[key] = e.Name
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIndexBuildFailed, "index aliases")
	}

	idx.stats.Entities = len(idx.entities)
	idx.stats.Collisions = len(idx.collisions)
	for _, c := range idx.collisions {
		log.Warn("ambiguous key, first registration kept",
			logging.String("key", c.Key),
			logging.String("kind", c.Kind.String()),
			logging.Int64("kept_id", c.KeptID),
			logging.Int64("dropped_id", c.DropID),
		)
	}
	log.Info("exact index built",
		logging.Int("entities", idx.stats.Entities),
		logging.Int("canonical_keys", idx.stats.CanonicalKeys),
		logging.Int("alias_keys", idx.stats.AliasKeys),
		logging.Int("collisions", idx.stats.Collisions),
	)
	return idx, nil
}

// add inserts key into the global and typed scopes.  It reports whether the
// key was stored in the global scope.
func (idx *Index) add(key string, kind KeyKind, text string, e *kg.Entity) bool {
	if key == "" {
		return false
	}
	stored := idx.insert(idx.all, true, key, kind, text, e)
	if ts, ok := idx.byType[e.Type]; ok {
		idx.insert(ts, false, key, kind, text, e)
	}
	if stored {
		if kind == KeyAlias {
			idx.stats.AliasKeys++
		} else {
			idx.stats.CanonicalKeys++
		}
	}
	return stored
}

func (idx *Index) insert(s *scope, track bool, key string, kind KeyKind, text string, e *kg.Entity) bool {
	rec := &Record{Key: key, Kind: kind, Text: text, Entity: e}
	got, ok := s.trie.Insert(key, rec)
	if ok {
		s.keys = append(s.keys, rec)
		return true
	}
	// Re-registering a key for the same entity is not ambiguous.
	if track && got.Entity.ID != e.ID {
		idx.collisions = append(idx.collisions, Collision{
			Key: key, Kind: kind, KeptID: got.Entity.ID, KeptType: got.Entity.Type, DropID: e.ID,
		})
	}
	return false
}

func (idx *Index) scope(t medical.EntityType) *scope {
	if t == medical.EntityAny {
		return idx.all
	}
	if s, ok := idx.byType[t]; ok {
		return s
	}
	return newScope()
}

// Lookup returns the record stored under the folded key within type t
// (any type when medical.EntityAny).
func (idx *Index) Lookup(key string, t medical.EntityType) (*Record, bool) {
	return idx.scope(t).trie.Lookup(key)
}

// Keys returns every key of scope t in insertion order.  The slice must not
// be modified.
func (idx *Index) Keys(t medical.EntityType) []*Record {
	return idx.scope(t).keys
}

// CanonicalName maps a folded alias key to the name of the entity that owns
// it.
func (idx *Index) CanonicalName(aliasKey string) (string, bool) {
	name, ok := idx.aliasCanonical[aliasKey]
	return name, ok
}

// Entity returns an indexed entity by id.
func (idx *Index) Entity(id int64) (*kg.Entity, bool) {
	e, ok := idx.entities[id]
	return e, ok
}

// Collisions lists ambiguous registrations, ordered by key.
func (idx *Index) Collisions() []Collision {
	out := append([]Collision(nil), idx.collisions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats returns build statistics.
func (idx *Index) Stats() IndexStats { return idx.stats }

//Personal.AI order the ending

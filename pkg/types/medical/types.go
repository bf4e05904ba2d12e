// Package medical defines the enumerations shared by every layer of the
// MedKG-Intelligence service: entity types, relation types and resolution
// match tags.  No logic beyond parsing lives here so the package can be
// imported from anywhere without cycles.
package medical

import (
	"fmt"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// EntityType
// ─────────────────────────────────────────────────────────────────────────────

// EntityType classifies a knowledge-graph entity.
type EntityType string

const (
	// EntityAny is the zero value and means "no type filter".
	EntityAny EntityType = ""

	EntityDrug    EntityType = "Drug"
	EntityDisease EntityType = "Disease"
	EntityGene    EntityType = "Gene"
)

// EntityTypes lists the concrete types in their canonical order.
var EntityTypes = []EntityType{EntityDrug, EntityDisease, EntityGene}

// IsValid reports whether t is a concrete entity type.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityDrug, EntityDisease, EntityGene:
		return true
	}
	return false
}

// StatisticsKey is the plural, lower-case key used in statistics reports
// ("Drug" → "drugs").
func (t EntityType) StatisticsKey() string {
	return strings.ToLower(string(t)) + "s"
}

func (t EntityType) String() string { return string(t) }

// ParseEntityType accepts canonical names and common lower-case/plural
// spellings ("drug", "drugs", "GENE", "target").  An empty string yields
// EntityAny.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return EntityAny, nil
	case "drug", "drugs":
		return EntityDrug, nil
	case "disease", "diseases":
		return EntityDisease, nil
	case "gene", "genes", "target", "targets":
		return EntityGene, nil
	}
	return EntityAny, fmt.Errorf("unknown entity type %q", s)
}

// ─────────────────────────────────────────────────────────────────────────────
// RelationType
// ─────────────────────────────────────────────────────────────────────────────

// RelationType names the edge label between two entities.  The set is open;
// the constants cover the relation kinds produced by the staged ontology.
type RelationType string

const (
	RelationTargets        RelationType = "targets"
	RelationTreats         RelationType = "treats"
	RelationAssociatedWith RelationType = "associated_with"
)

func (r RelationType) String() string { return string(r) }

// ─────────────────────────────────────────────────────────────────────────────
// MatchType
// ─────────────────────────────────────────────────────────────────────────────

// MatchType tags the cascade tier that produced a resolution result.
type MatchType string

const (
	MatchExact           MatchType = "exact"
	MatchCaseInsensitive MatchType = "case_insensitive"
	MatchAlias           MatchType = "alias"
	MatchPartial         MatchType = "partial"
	MatchPartialGeneric  MatchType = "partial_generic"
	MatchFuzzy           MatchType = "fuzzy"
)

// MatchTypes lists every tag in tier order.
var MatchTypes = []MatchType{
	MatchExact, MatchCaseInsensitive, MatchAlias, MatchPartial, MatchPartialGeneric, MatchFuzzy,
}

func (m MatchType) String() string { return string(m) }

//Personal.AI order the ending

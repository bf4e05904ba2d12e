package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/relational"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/sqlite"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// NewMemoryStore attaches an empty in-memory SQLite store that is closed
// when the test ends.
func NewMemoryStore(t testing.TB) *relational.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), config.SQLiteConfig{Path: sqlite.MemoryPath}, nil, sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// EntitySeed describes one fixture entity.
type EntitySeed struct {
	Entity  kg.Entity
	Aliases []string
}

// RelationSeed names both endpoints; an unknown name stays unresolved.
type RelationSeed struct {
	Source, Target string
	Type           medical.RelationType
	Properties     kg.Attributes
}

// FixtureEntities is the standard medical fixture graph.
var FixtureEntities = []EntitySeed{
	{Entity: kg.Entity{Name: "阿司匹林", Type: medical.EntityDrug, Source: "DrugBank", GenericName: "阿司匹林", IsGeneric: true,
		Attributes: kg.Attributes{"atc_code": kg.StringValue("B01AC06")}},
		Aliases: []string{"Aspirin", "乙酰水杨酸"}},
	{Entity: kg.Entity{Name: "阿司匹林肠溶片", Type: medical.EntityDrug, Source: "NMPA", GenericName: "阿司匹林", DosageForm: "肠溶片"},
		Aliases: []string{"拜阿司匹灵"}},
	{Entity: kg.Entity{Name: "阿司匹林片", Type: medical.EntityDrug, Source: "NMPA", GenericName: "阿司匹林", DosageForm: "片"}},
	{Entity: kg.Entity{Name: "Ibrance", StandardName: "Palbociclib", Type: medical.EntityDrug, Source: "DrugBank",
		GenericName: "Ibrance", IsGeneric: true,
		Attributes: kg.Attributes{"max_phase": kg.NumberValue(4)}},
		Aliases: []string{"哌柏西利", "PD-0332991"}},
	{Entity: kg.Entity{Name: "CDK4", Type: medical.EntityGene, Source: "UniProt"},
		Aliases: []string{"Cyclin-dependent kinase 4"}},
	{Entity: kg.Entity{Name: "CDK6", Type: medical.EntityGene, Source: "UniProt"}},
	{Entity: kg.Entity{Name: "乳腺癌", StandardName: "Breast Cancer", Type: medical.EntityDisease, Source: "ICD-10",
		Attributes: kg.Attributes{"icd10": kg.StringValue("C50")}},
		Aliases: []string{"乳癌"}},
	{Entity: kg.Entity{Name: "Headache", Type: medical.EntityDisease, Source: "ICD-10"}},
}

// FixtureRelations is the standard relation set over FixtureEntities.
var FixtureRelations = []RelationSeed{
	{Source: "Ibrance", Target: "CDK4", Type: medical.RelationTargets,
		Properties: kg.Attributes{"mode_of_action": kg.StringValue("inhibitor")}},
	{Source: "Ibrance", Target: "CDK6", Type: medical.RelationTargets,
		Properties: kg.Attributes{"mode_of_action": kg.StringValue("inhibitor")}},
	{Source: "Ibrance", Target: "乳腺癌", Type: medical.RelationTreats,
		Properties: kg.Attributes{"highest_status": kg.StringValue("Approved")}},
	{Source: "CDK4", Target: "乳腺癌", Type: medical.RelationAssociatedWith},
	{Source: "阿司匹林", Target: "Headache", Type: medical.RelationTreats},
	{Source: "Ibrance", Target: "UNLISTED1", Type: medical.RelationTargets},
}

// FixtureMetadata is written alongside the fixture graph.
var FixtureMetadata = map[string]string{
	kg.MetaVersion:     "1.0",
	kg.MetaCreatedAt:   "2024-01-01T00:00:00Z",
	kg.MetaDataSources: "DrugBank,NMPA,UniProt,ICD-10",
}

// Seed loads entities, relations and metadata into store and returns the
// assigned ids keyed by entity name.
func Seed(t testing.TB, store kg.Store, entities []EntitySeed, relations []RelationSeed, meta map[string]string) map[string]int64 {
	t.Helper()
	ids := make(map[string]int64, len(entities))
	err := store.Load(context.Background(), func(w kg.Writer) error {
		ctx := context.Background()
		for _, seed := range entities {
			e := seed.Entity
			id, err := w.InsertEntity(ctx, &e)
			if err != nil {
				return err
			}
			if _, seen := ids[e.Name]; !seen {
				ids[e.Name] = id
			}
			for _, a := range seed.Aliases {
				if _, err := w.InsertAlias(ctx, id, a); err != nil {
					return err
				}
			}
		}
		for _, seed := range relations {
			r := kg.Relation{
				SourceID:     ids[seed.Source],
				TargetID:     ids[seed.Target],
				RelationType: seed.Type,
				SourceName:   seed.Source,
				TargetName:   seed.Target,
				Properties:   seed.Properties,
			}
			if _, err := w.InsertRelation(ctx, &r); err != nil {
				return err
			}
		}
		for k, v := range meta {
			if err := w.PutMetadata(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return ids
}

// SeedFixture loads the standard fixture graph.
func SeedFixture(t testing.TB, store kg.Store) map[string]int64 {
	t.Helper()
	return Seed(t, store, FixtureEntities, FixtureRelations, FixtureMetadata)
}

// NewFixtureStore returns an in-memory store holding the fixture graph.
func NewFixtureStore(t testing.TB) (*relational.Store, map[string]int64) {
	t.Helper()
	store := NewMemoryStore(t)
	return store, SeedFixture(t, store)
}

//Personal.AI order the ending

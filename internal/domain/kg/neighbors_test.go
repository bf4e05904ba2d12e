package kg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/testutil"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

func names(ns []kg.Neighbor) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Name)
	}
	return out
}

func TestNeighbors_BothDirections(t *testing.T) {
	store, ids := testutil.NewFixtureStore(t)
	finder := kg.NewNeighborFinder(store)
	ctx := context.Background()

	targets, err := finder.Neighbors(ctx, kg.NeighborQuery{
		EntityName: "Ibrance", RelationType: medical.RelationTargets,
		SourceType: medical.EntityDrug, TargetType: medical.EntityGene,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CDK4", "CDK6"}, names(targets))
	assert.Equal(t, ids["CDK4"], targets[0].EntityID)
	assert.Equal(t, "inhibitor", targets[0].Properties.GetString("mode_of_action"))
	assert.Less(t, targets[0].RelationID, targets[1].RelationID)

	drugs, err := finder.Neighbors(ctx, kg.NeighborQuery{
		EntityName: "CDK4", RelationType: medical.RelationTargets,
		SourceType: medical.EntityGene, TargetType: medical.EntityDrug,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ibrance"}, names(drugs))
	assert.Equal(t, "Palbociclib", drugs[0].StandardName)
}

func TestNeighbors_Symmetric(t *testing.T) {
	store, _ := testutil.NewFixtureStore(t)
	finder := kg.NewNeighborFinder(store)
	ctx := context.Background()

	var relations []*kg.Relation
	require.NoError(t, store.EachRelation(ctx, func(r *kg.Relation) error {
		relations = append(relations, r)
		return nil
	}))

	for _, r := range relations {
		if !r.Resolved() {
			continue
		}
		src, err := store.GetByID(ctx, r.SourceID)
		require.NoError(t, err)
		dst, err := store.GetByID(ctx, r.TargetID)
		require.NoError(t, err)

		fwd, err := finder.Neighbors(ctx, kg.NeighborQuery{EntityName: src.Name, RelationType: r.RelationType, SourceType: src.Type, TargetType: dst.Type})
		require.NoError(t, err)
		assert.Contains(t, names(fwd), dst.Name, "relation %d forward", r.ID)

		back, err := finder.Neighbors(ctx, kg.NeighborQuery{EntityName: dst.Name, RelationType: r.RelationType, SourceType: dst.Type, TargetType: src.Type})
		require.NoError(t, err)
		assert.Contains(t, names(back), src.Name, "relation %d backward", r.ID)
	}
}

func TestNeighbors_Filters(t *testing.T) {
	store, _ := testutil.NewFixtureStore(t)
	finder := kg.NewNeighborFinder(store)
	ctx := context.Background()

	byStandard, err := finder.Neighbors(ctx, kg.NeighborQuery{EntityName: "Palbociclib", TargetType: medical.EntityDisease})
	require.NoError(t, err)
	assert.Equal(t, []string{"乳腺癌"}, names(byStandard))
	assert.Equal(t, medical.RelationTreats, byStandard[0].RelationType)

	wrongSource, err := finder.Neighbors(ctx, kg.NeighborQuery{EntityName: "Ibrance", SourceType: medical.EntityGene})
	require.NoError(t, err)
	assert.NotNil(t, wrongSource)
	assert.Empty(t, wrongSource)

	unknown, err := finder.Neighbors(ctx, kg.NeighborQuery{EntityName: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)

	all, err := finder.Neighbors(ctx, kg.NeighborQuery{EntityName: "Ibrance"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CDK4", "CDK6", "乳腺癌"}, names(all))
}

func TestNeighbors_SelfLoopOnce(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	testutil.Seed(t, store,
		[]testutil.EntitySeed{{Entity: kg.Entity{Name: "TP53", Type: medical.EntityGene}}},
		[]testutil.RelationSeed{{Source: "TP53", Target: "TP53", Type: medical.RelationAssociatedWith}},
		nil)

	got, err := kg.NewNeighborFinder(store).Neighbors(context.Background(), kg.NeighborQuery{EntityName: "TP53"})
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53"}, names(got))
	assert.NotNil(t, got[0].Properties)
}

func TestNeighborQuery_Validate(t *testing.T) {
	assert.NoError(t, kg.NeighborQuery{EntityName: "x"}.Validate())
	assert.Error(t, kg.NeighborQuery{EntityName: " "}.Validate())
	assert.Error(t, kg.NeighborQuery{EntityName: "x", SourceType: "Protein"}.Validate())
	assert.Error(t, kg.NeighborQuery{EntityName: "x", TargetType: "Protein"}.Validate())
}

//Personal.AI order the ending

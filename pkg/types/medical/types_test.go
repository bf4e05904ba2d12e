package medical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	cases := map[string]EntityType{
		"":         EntityAny,
		"Drug":     EntityDrug,
		"drugs":    EntityDrug,
		" GENE ":   EntityGene,
		"target":   EntityGene,
		"diseases": EntityDisease,
	}
	for in, want := range cases {
		got, err := ParseEntityType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseEntityType("protein complex")
	assert.Error(t, err)
}

func TestEntityType_IsValid(t *testing.T) {
	for _, et := range EntityTypes {
		assert.True(t, et.IsValid())
	}
	assert.False(t, EntityAny.IsValid())
	assert.False(t, EntityType("drug").IsValid())
}

func TestEntityType_StatisticsKey(t *testing.T) {
	assert.Equal(t, "drugs", EntityDrug.StatisticsKey())
	assert.Equal(t, "diseases", EntityDisease.StatisticsKey())
	assert.Equal(t, "genes", EntityGene.StatisticsKey())
}

func TestMatchTypes_Order(t *testing.T) {
	require.Len(t, MatchTypes, 6)
	assert.Equal(t, MatchExact, MatchTypes[0])
	assert.Equal(t, MatchFuzzy, MatchTypes[len(MatchTypes)-1])
}

package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScorer(t *testing.T) {
	for _, name := range []string{"", ScorerJaroWinkler, ScorerLevenshtein, ScorerIndel} {
		s, err := NewScorer(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, s.Name())
	}
	_, err := NewScorer("soundex")
	assert.Error(t, err)
}

func TestScorers_MisspelledDrug(t *testing.T) {
	jw, _ := NewScorer(ScorerJaroWinkler)
	lev, _ := NewScorer(ScorerLevenshtein)
	indel, _ := NewScorer(ScorerIndel)

	assert.Equal(t, 85.0, jw.Score("阿斯匹林", "阿司匹林"))
	assert.Equal(t, 75.0, lev.Score("阿斯匹林", "阿司匹林"))
	assert.Equal(t, 75.0, indel.Score("阿斯匹林", "阿司匹林"))
}

func TestScorers_Bounds(t *testing.T) {
	for _, name := range []string{ScorerJaroWinkler, ScorerLevenshtein, ScorerIndel} {
		s, _ := NewScorer(name)
		assert.Equal(t, 100.0, s.Score("cdk4", "cdk4"), name)
		assert.Equal(t, 0.0, s.Score("", "cdk4"), name)
		v := s.Score("cdk4", "cdk6")
		assert.True(t, v > 0 && v < 100, name)
	}
}

func TestPartialScore(t *testing.T) {
	s, ok := partialScore("cdk", "CDK4")
	require.True(t, ok)
	assert.InDelta(t, 0.75*0.98, s, 1e-9)

	_, ok = partialScore("ab", "abcdefghij")
	assert.False(t, ok, "ratio below 0.3")

	_, ok = partialScore("xyz", "CDK4")
	assert.False(t, ok)

	// Longer superstrings of the same query never score higher.
	prev := 2.0
	for _, c := range []string{"阿司匹林", "阿司匹林片", "阿司匹林肠溶片", "阿司匹林肠溶胶囊剂"} {
		s, ok := partialScore("阿司匹林", c)
		require.True(t, ok, c)
		assert.Less(t, s, prev, c)
		prev = s
	}
}

//Personal.AI order the ending

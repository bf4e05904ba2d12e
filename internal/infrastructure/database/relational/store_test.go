package relational_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/relational"
	"github.com/turtacn/MedKG-Intelligence/internal/testutil"
	pkgerrors "github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *relational.Store
	ids   map[string]int64
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store, s.ids = testutil.NewFixtureStore(s.T())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestFindByExactNameOrStandardName() {
	e, err := s.store.FindByExactNameOrStandardName(s.ctx, "Palbociclib", medical.EntityAny)
	s.Require().NoError(err)
	s.Require().NotNil(e)
	s.Equal("Ibrance", e.Name)
	s.Equal(float64(4), mustNumber(s.T(), e.Attributes, "max_phase"))

	e, err = s.store.FindByExactNameOrStandardName(s.ctx, "Ibrance", medical.EntityGene)
	s.NoError(err)
	s.Nil(e)

	e, err = s.store.FindByExactNameOrStandardName(s.ctx, "ibrance", medical.EntityAny)
	s.NoError(err)
	s.Nil(e, "exact lookup is case-sensitive")
}

func (s *StoreSuite) TestFindByAlias() {
	e, err := s.store.FindByAlias(s.ctx, "哌柏西利", medical.EntityDrug)
	s.Require().NoError(err)
	s.Require().NotNil(e)
	s.Equal(s.ids["Ibrance"], e.ID)

	e, err = s.store.FindByAlias(s.ctx, "哌柏西利", medical.EntityDisease)
	s.NoError(err)
	s.Nil(e)
}

func (s *StoreSuite) TestGetByIDs() {
	got, err := s.store.GetByIDs(s.ctx, []int64{s.ids["CDK4"], s.ids["CDK6"], s.ids["CDK4"], 0, 9999})
	s.Require().NoError(err)
	s.Len(got, 2)
	s.Equal("CDK6", got[s.ids["CDK6"]].Name)

	e, err := s.store.GetByID(s.ctx, 9999)
	s.NoError(err)
	s.Nil(e)
}

func (s *StoreSuite) TestScanSubstring_MatchesGenericNameAndEscapes() {
	got, err := s.store.ScanSubstring(s.ctx, "阿司匹林", medical.EntityDrug)
	s.Require().NoError(err)
	s.Len(got, 3)
	for i := 1; i < len(got); i++ {
		s.Less(got[i-1].ID, got[i].ID)
	}

	got, err = s.store.ScanSubstring(s.ctx, "ibr", medical.EntityAny)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Ibrance", got[0].Name)

	got, err = s.store.ScanSubstring(s.ctx, "%", medical.EntityAny)
	s.NoError(err)
	s.Empty(got, "LIKE metacharacters are literal")
}

func (s *StoreSuite) TestSearchSubstring_IncludesAliases() {
	got, err := s.store.SearchSubstring(s.ctx, "aspirin", medical.EntityAny, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("阿司匹林", got[0].Name)

	got, err = s.store.SearchSubstring(s.ctx, "阿司匹林", medical.EntityDrug, 2)
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *StoreSuite) TestAliases() {
	aliases, err := s.store.AliasesOf(s.ctx, s.ids["阿司匹林"])
	s.Require().NoError(err)
	s.Equal([]string{"Aspirin", "乙酰水杨酸"}, aliases)

	aliases, err = s.store.AliasesOfName(s.ctx, "Breast Cancer")
	s.Require().NoError(err)
	s.Equal([]string{"乳癌"}, aliases)

	aliases, err = s.store.AliasesOf(s.ctx, s.ids["CDK6"])
	s.NoError(err)
	s.NotNil(aliases)
	s.Empty(aliases)
}

func (s *StoreSuite) TestGenericAndProducts() {
	g, err := s.store.FindGeneric(s.ctx, "阿司匹林")
	s.Require().NoError(err)
	s.Require().NotNil(g)
	s.Equal(s.ids["阿司匹林"], g.ID)

	products, err := s.store.FindProducts(s.ctx, "阿司匹林")
	s.Require().NoError(err)
	s.Require().Len(products, 2)
	s.Equal("阿司匹林片", products[0].Name)
	s.Equal("阿司匹林肠溶片", products[1].Name)
	s.Equal("肠溶片", products[1].DosageForm)
	s.False(products[1].IsGeneric)
}

func (s *StoreSuite) TestRelationsOf_BothDirections() {
	rels, err := s.store.RelationsOf(s.ctx, []int64{s.ids["CDK4"]}, medical.RelationTargets)
	s.Require().NoError(err)
	s.Require().Len(rels, 1)
	s.Equal(s.ids["Ibrance"], rels[0].SourceID)
	s.Equal("inhibitor", rels[0].Properties.GetString("mode_of_action"))

	rels, err = s.store.RelationsOf(s.ctx, []int64{s.ids["Ibrance"]}, medical.RelationTargets)
	s.Require().NoError(err)
	s.Require().Len(rels, 3)
	s.False(rels[2].Resolved())
	s.Equal("UNLISTED1", rels[2].TargetName)

	rels, err = s.store.RelationsOf(s.ctx, []int64{s.ids["乳腺癌"]}, "")
	s.Require().NoError(err)
	s.Len(rels, 2)

	rels, err = s.store.RelationsOf(s.ctx, nil, medical.RelationTargets)
	s.NoError(err)
	s.Empty(rels)
}

func (s *StoreSuite) TestCountsAndMetadata() {
	c, err := s.store.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(8), c.TotalEntities)
	s.Equal(int64(4), c.EntitiesByType[medical.EntityDrug])
	s.Equal(int64(2), c.EntitiesByType[medical.EntityGene])
	s.Equal(int64(2), c.EntitiesByType[medical.EntityDisease])
	s.Equal(int64(6), c.TotalRelations)
	s.Equal(int64(7), c.TotalAliases)

	gc, err := s.store.GenericCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), gc.GenericDrugs)
	s.Equal(int64(2), gc.ProductDrugs)
	s.Equal(int64(2), gc.UniqueGenericNames)

	meta, err := s.store.Metadata(s.ctx)
	s.Require().NoError(err)
	s.Equal("1.0", meta[kg.MetaVersion])
}

func (s *StoreSuite) TestStreaming() {
	var names []string
	s.Require().NoError(s.store.EachEntity(s.ctx, func(e *kg.Entity) error {
		names = append(names, e.Name)
		return nil
	}))
	s.Equal("阿司匹林", names[0])
	s.Len(names, 8)

	var aliases int
	s.Require().NoError(s.store.EachAlias(s.ctx, func(kg.Alias) error { aliases++; return nil }))
	s.Equal(7, aliases)

	stop := errors.New("stop")
	err := s.store.EachRelation(s.ctx, func(*kg.Relation) error { return stop })
	s.ErrorIs(err, stop)
}

func (s *StoreSuite) TestLoad_RollsBackOnError() {
	boom := errors.New("boom")
	err := s.store.Load(s.ctx, func(w kg.Writer) error {
		if err := w.Truncate(s.ctx); err != nil {
			return err
		}
		if _, err := w.InsertEntity(s.ctx, &kg.Entity{Name: "X", Type: medical.EntityGene}); err != nil {
			return err
		}
		return boom
	})
	s.Require().Error(err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeLoadFailed))
	s.ErrorIs(err, boom)

	c, err := s.store.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(8), c.TotalEntities)
}

func (s *StoreSuite) TestLoad_RenormalizeAndMetadataUpsert() {
	id := s.ids["阿司匹林片"]
	err := s.store.Load(s.ctx, func(w kg.Writer) error {
		drugs, err := w.ListEntities(s.ctx, medical.EntityDrug)
		if err != nil {
			return err
		}
		s.Len(drugs, 4)
		if err := w.UpdateNormalization(s.ctx, id, "阿司匹林", "片", true); err != nil {
			return err
		}
		return w.PutMetadata(s.ctx, kg.MetaVersion, "2.0")
	})
	s.Require().NoError(err)

	e, err := s.store.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.True(e.IsGeneric)

	meta, err := s.store.Metadata(s.ctx)
	s.Require().NoError(err)
	s.Equal("2.0", meta[kg.MetaVersion])

	err = s.store.Load(s.ctx, func(w kg.Writer) error {
		return w.UpdateNormalization(s.ctx, 9999, "", "", true)
	})
	s.True(pkgerrors.IsNotFound(err))
}

func (s *StoreSuite) TestWriter_RejectsInvalidRows() {
	err := s.store.Load(s.ctx, func(w kg.Writer) error {
		_, err := w.InsertEntity(s.ctx, &kg.Entity{Name: " ", Type: medical.EntityDrug})
		return err
	})
	s.True(pkgerrors.IsMalformedInput(err))

	err = s.store.Load(s.ctx, func(w kg.Writer) error {
		_, err := w.InsertAlias(s.ctx, s.ids["CDK4"], "")
		return err
	})
	s.True(pkgerrors.IsMalformedInput(err))
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}

func mustNumber(t *testing.T, a kg.Attributes, key string) float64 {
	t.Helper()
	v, ok := a.Get(key)
	require.True(t, ok)
	n, ok := v.AsNumber()
	require.True(t, ok)
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Folded substring scans
// ─────────────────────────────────────────────────────────────────────────────

func entityNames(entities []*kg.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Name)
	}
	return out
}

func TestSubstringScans_FoldNonASCII(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(t)
	ids := testutil.Seed(t, store, []testutil.EntitySeed{
		{Entity: kg.Entity{Name: "维生素Ｃ片", Type: medical.EntityDrug}, Aliases: []string{"ＶＩＴＡＭＩＮ Ｃ"}},
		{Entity: kg.Entity{Name: "ΑΛΦΑ-干扰素", Type: medical.EntityDrug}},
		{Entity: kg.Entity{Name: "Straße-Präparat", StandardName: "STRASSE", Type: medical.EntityDrug}},
	}, nil, nil)

	cases := []struct {
		pattern string
		want    []string
	}{
		{"维生素c", []string{"维生素Ｃ片"}},
		{"维生素Ｃ", []string{"维生素Ｃ片"}},
		{"αλφα", []string{"ΑΛΦΑ-干扰素"}},
		{"ΑΛΦΑ", []string{"ΑΛΦΑ-干扰素"}},
		{"STRASSE", []string{"Straße-Präparat"}},
		{"präparat", []string{"Straße-Präparat"}},
	}
	for _, tc := range cases {
		got, err := store.ScanSubstring(ctx, tc.pattern, medical.EntityAny)
		require.NoError(t, err, tc.pattern)
		assert.Equal(t, tc.want, entityNames(got), tc.pattern)
	}

	got, err := store.SearchSubstring(ctx, "vitamin c", medical.EntityDrug, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"维生素Ｃ片"}, entityNames(got), "aliases are matched folded")

	err = store.Load(ctx, func(w kg.Writer) error {
		return w.UpdateNormalization(ctx, ids["ΑΛΦΑ-干扰素"], "ＩＮＴＥＲＦＥＲＯＮ", "", false)
	})
	require.NoError(t, err)
	got, err = store.ScanSubstring(ctx, "interferon", medical.EntityDrug)
	require.NoError(t, err)
	assert.Equal(t, []string{"ΑΛΦΑ-干扰素"}, entityNames(got), "renormalized generic names are re-folded")
}

//Personal.AI order the ending

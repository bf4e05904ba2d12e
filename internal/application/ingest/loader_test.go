package ingest_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MedKG-Intelligence/internal/application/ingest"
	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/relational"
	"github.com/turtacn/MedKG-Intelligence/internal/testutil"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ============================================================================
// Doubles
// ============================================================================

type recordingPublisher struct {
	events []kg.SnapshotLoaded
	err    error
}

func (p *recordingPublisher) PublishSnapshotLoaded(_ context.Context, ev kg.SnapshotLoaded) error {
	p.events = append(p.events, ev)
	return p.err
}

type countingProjector struct {
	calls int
}

func (p *countingProjector) Sync(ctx context.Context, r kg.Reader) (int, error) {
	p.calls++
	c, err := r.Counts(ctx)
	if err != nil {
		return 0, err
	}
	return int(c.TotalRelations), nil
}

// failingMetaStore aborts every load at the metadata step.
type failingMetaStore struct {
	*relational.Store
}

func (s failingMetaStore) Load(ctx context.Context, fn func(kg.Writer) error) error {
	return s.Store.Load(ctx, func(w kg.Writer) error { return fn(failingWriter{w}) })
}

type failingWriter struct {
	kg.Writer
}

func (failingWriter) PutMetadata(context.Context, string, string) error {
	return fmt.Errorf("disk full")
}

// ============================================================================
// Suite
// ============================================================================

type LoaderSuite struct {
	suite.Suite
	ctx   context.Context
	store *relational.Store
	src   ingest.FileSource
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = testutil.NewMemoryStore(s.T())
	s.src = ingest.FileSource{Path: filepath.Join("testdata", "ontology.json")}
}

func (s *LoaderSuite) TestLoad_WritesDocument() {
	pub := &recordingPublisher{}
	proj := &countingProjector{}
	log := testutil.NewMockLogger()
	loader := ingest.NewLoader(s.store, log, ingest.WithPublisher(pub), ingest.WithProjector(proj))

	report, err := loader.Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)

	s.Equal(2, report.Entities[medical.EntityDrug])
	s.Equal(1, report.Entities[medical.EntityGene])
	s.Equal(1, report.Entities[medical.EntityDisease])
	s.EqualValues(4, report.TotalEntities())
	s.Equal(2, report.Relations[medical.RelationTargets])
	s.EqualValues(4, report.TotalRelations())
	s.Equal(3, report.Aliases)
	s.Equal(1, report.UnresolvedRelations)
	s.Equal(1, report.SkippedRelations)
	s.Equal(4, report.Projected)
	s.True(report.Published)
	s.True(log.HasMessage("warn", "ignoring unknown staged section"))

	raw, err := os.ReadFile(s.src.Path)
	s.Require().NoError(err)
	sum := sha256.Sum256(raw)
	s.Equal(hex.EncodeToString(sum[:]), report.Checksum)

	s.Require().Len(pub.events, 1)
	s.Equal(report.LoadID, pub.events[0].LoadID)
	s.Equal(report.Checksum, pub.events[0].Checksum)
	s.EqualValues(4, pub.events[0].TotalRelations)

	meta, err := s.store.Metadata(s.ctx)
	s.Require().NoError(err)
	s.Equal("2.0", meta[kg.MetaVersion])
	s.Equal("NMPA,TTD,ICD-10", meta[kg.MetaDataSources])
	s.Equal("4", meta[kg.MetaTotalEntities])
	s.Equal("4", meta[kg.MetaTotalRelations])
	s.Equal(report.Checksum, meta[kg.MetaSnapshotChecksum])
	s.Equal(report.LoadID, meta[kg.MetaLoadID])
	s.NotEmpty(meta[kg.MetaCreatedAt])
}

func (s *LoaderSuite) TestLoad_EntityFields() {
	_, err := ingest.NewLoader(s.store, nil).Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)

	product, err := s.store.FindByExactNameOrStandardName(s.ctx, "阿司匹林肠溶片", medical.EntityDrug)
	s.Require().NoError(err)
	s.Require().NotNil(product)
	s.Equal("阿司匹林", product.GenericName)
	s.Equal("肠溶片", product.DosageForm)
	s.False(product.IsGeneric)
	s.Equal("NMPA", product.Source)
	s.Equal("H123", product.Attributes.GetString("approval_number"))
	_, hasAliases := product.Attributes.Get("aliases")
	s.False(hasAliases)

	aliases, err := s.store.AliasesOf(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal([]string{"拜阿司匹灵"}, aliases)

	ibrance, err := s.store.FindByExactNameOrStandardName(s.ctx, "Palbociclib", medical.EntityDrug)
	s.Require().NoError(err)
	s.Require().NotNil(ibrance)
	s.True(ibrance.IsGeneric)
	s.Equal("TTD,DrugBank", ibrance.Source)
	phase, _ := ibrance.Attributes.Get("max_phase")
	n, ok := phase.AsNumber()
	s.True(ok)
	s.Equal(4.0, n)

	disease, err := s.store.FindByExactNameOrStandardName(s.ctx, "乳腺癌", medical.EntityDisease)
	s.Require().NoError(err)
	s.Equal("Breast Cancer", disease.StandardName)
	s.Equal("Unknown", disease.Source)
}

func (s *LoaderSuite) TestLoad_RelationsResolveByStandardName() {
	_, err := ingest.NewLoader(s.store, nil).Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)

	finder := kg.NewNeighborFinder(s.store)
	targets, err := finder.Neighbors(s.ctx, kg.NeighborQuery{
		EntityName: "Ibrance", RelationType: medical.RelationTargets,
		SourceType: medical.EntityDrug, TargetType: medical.EntityGene,
	})
	s.Require().NoError(err)
	s.Require().Len(targets, 1)
	s.Equal("CDK4", targets[0].Name)
	s.Equal("inhibitor", targets[0].Properties.GetString("mode_of_action"))

	diseases, err := finder.Neighbors(s.ctx, kg.NeighborQuery{EntityName: "CDK4", RelationType: medical.RelationAssociatedWith})
	s.Require().NoError(err)
	s.Require().Len(diseases, 1)
	s.Equal("乳腺癌", diseases[0].Name)

	var unresolved []*kg.Relation
	s.Require().NoError(s.store.EachRelation(s.ctx, func(r *kg.Relation) error {
		if !r.Resolved() {
			unresolved = append(unresolved, r)
		}
		return nil
	}))
	s.Require().Len(unresolved, 1)
	s.Equal("CDK9", unresolved[0].SourceName)
	s.Zero(unresolved[0].SourceID)
	s.NotZero(unresolved[0].TargetID)
}

func (s *LoaderSuite) TestLoad_SharedNameResolvesToFirstLoaded() {
	doc := `{"entities":{
		"genes":{"CDK4":{},"Cyclin-dependent kinase 4":{"standard_name":"CDK4"}},
		"drugs":{"Ibrance":{}}},
		"relations":{"target_drug":[{"target_name":"CDK4","drug_name":"Ibrance"}]}}`
	_, err := ingest.NewLoader(s.store, nil).Load(s.ctx, ingest.BytesSource{Label: "inline", Data: []byte(doc)}, ingest.LoadOptions{})
	s.Require().NoError(err)

	first, err := s.store.FindByExactNameOrStandardName(s.ctx, "CDK4", medical.EntityGene)
	s.Require().NoError(err)
	s.Require().NotNil(first)
	s.Equal("CDK4", first.Name)

	var rels []*kg.Relation
	s.Require().NoError(s.store.EachRelation(s.ctx, func(r *kg.Relation) error {
		rels = append(rels, r)
		return nil
	}))
	s.Require().Len(rels, 1)
	s.Equal(first.ID, rels[0].SourceID, "endpoint agrees with exact resolution")
}

func (s *LoaderSuite) TestLoad_ReplaceVersusAppend() {
	loader := ingest.NewLoader(s.store, nil)
	_, err := loader.Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)

	_, err = loader.Load(s.ctx, s.src, ingest.LoadOptions{Replace: true})
	s.Require().NoError(err)
	counts, err := s.store.Counts(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(4, counts.TotalEntities)

	_, err = loader.Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)
	counts, err = s.store.Counts(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(8, counts.TotalEntities)
}

func (s *LoaderSuite) TestLoad_InvalidDocument() {
	loader := ingest.NewLoader(s.store, nil)

	_, err := loader.Load(s.ctx, ingest.BytesSource{Label: "broken", Data: []byte(`{"entities": `)}, ingest.LoadOptions{})
	s.True(errors.IsCode(err, errors.ErrCodeSnapshotInvalid))

	_, err = loader.Load(s.ctx, ingest.BytesSource{Label: "array", Data: []byte(`[]`)}, ingest.LoadOptions{})
	s.True(errors.IsCode(err, errors.ErrCodeSnapshotInvalid))

	_, err = loader.Load(s.ctx, ingest.BytesSource{Label: "bad-info", Data: []byte(`{"entities":{"drugs":{"x":"y"}}}`)}, ingest.LoadOptions{})
	s.True(errors.IsCode(err, errors.ErrCodeSnapshotInvalid))

	_, err = loader.Load(s.ctx, ingest.FileSource{Path: filepath.Join("testdata", "missing.json")}, ingest.LoadOptions{})
	s.True(errors.IsCode(err, errors.ErrCodeSnapshotInvalid))

	counts, err := s.store.Counts(s.ctx)
	s.Require().NoError(err)
	s.Zero(counts.TotalEntities)
}

func (s *LoaderSuite) TestLoad_FailureRollsBack() {
	_, err := ingest.NewLoader(s.store, nil).Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)

	pub := &recordingPublisher{}
	_, err = ingest.NewLoader(failingMetaStore{s.store}, nil, ingest.WithPublisher(pub)).
		Load(s.ctx, s.src, ingest.LoadOptions{Replace: true})
	s.True(errors.IsCode(err, errors.ErrCodeLoadFailed))
	s.Empty(pub.events)

	counts, err := s.store.Counts(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(4, counts.TotalEntities)
	s.EqualValues(4, counts.TotalRelations)
}

func (s *LoaderSuite) TestLoad_PublishFailureKeepsLoad() {
	pub := &recordingPublisher{err: fmt.Errorf("broker down")}
	report, err := ingest.NewLoader(s.store, nil, ingest.WithPublisher(pub)).Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)
	s.False(report.Published)
	s.Len(pub.events, 1)
}

func (s *LoaderSuite) TestLoad_RedisLockSerializesLoads() {
	mr := miniredis.RunT(s.T())
	client, err := redis.NewClient(s.ctx, config.RedisConfig{Addr: mr.Addr()}, nil)
	s.Require().NoError(err)
	defer client.Close()

	holder := redis.NewMutex(client, "ingest", nil)
	ok, err := holder.TryLock(s.ctx)
	s.Require().NoError(err)
	s.Require().True(ok)

	loader := ingest.NewLoader(s.store, nil, ingest.WithLock(redis.NewMutex(client, "ingest", nil)))
	_, err = loader.Load(s.ctx, s.src, ingest.LoadOptions{})
	s.True(errors.IsCode(err, errors.ErrCodeConflict))

	s.Require().NoError(holder.Unlock(s.ctx))
	_, err = loader.Load(s.ctx, s.src, ingest.LoadOptions{})
	s.Require().NoError(err)
	s.False(mr.Exists("medkg:lock:ingest"))
}

func (s *LoaderSuite) TestRenormalize() {
	store := testutil.NewMemoryStore(s.T())
	entities := append([]testutil.EntitySeed{}, testutil.FixtureEntities...)
	entities = append(entities, testutil.EntitySeed{Entity: kg.Entity{Name: "布洛芬缓释胶囊", Type: medical.EntityDrug, IsGeneric: true}})
	testutil.Seed(s.T(), store, entities, nil, nil)

	loader := ingest.NewLoader(store, nil)
	updated, err := loader.Renormalize(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, updated)

	products, err := store.FindProducts(s.ctx, "布洛芬")
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	s.Equal("缓释胶囊", products[0].DosageForm)

	updated, err = loader.Renormalize(s.ctx)
	s.Require().NoError(err)
	s.Zero(updated)
}

// ============================================================================
// Parse
// ============================================================================

func TestParse_DocumentOrder(t *testing.T) {
	doc, err := ingest.Parse([]byte(`{"entities":{"genes":{"B":{},"A":{}},"drugs":{"Z片":{}}}}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range doc.Entities {
		got = append(got, e.Entity.Name)
	}
	want := []string{"B", "A", "Z片"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if doc.Entities[2].Entity.GenericName != "Z" || doc.Entities[2].Entity.DosageForm != "片" {
		t.Fatalf("drug not normalized: %+v", doc.Entities[2].Entity)
	}
}

//Personal.AI order the ending

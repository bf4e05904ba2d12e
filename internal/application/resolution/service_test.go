package resolution_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MedKG-Intelligence/internal/application/engine"
	"github.com/turtacn/MedKG-Intelligence/internal/application/resolution"
	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedKG-Intelligence/internal/intelligence/linker"
	"github.com/turtacn/MedKG-Intelligence/internal/testutil"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	eng       *engine.Engine
	mr        *miniredis.Miniredis
	collector prometheus.MetricsCollector
	svc       *resolution.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	store, _ := testutil.NewFixtureStore(s.T())
	s.eng = engine.New(func(context.Context) (kg.Store, error) { return store, nil }, nil)
	s.Require().NoError(s.eng.Start(s.ctx))
	s.T().Cleanup(func() { _ = s.eng.Close() })

	s.mr = miniredis.RunT(s.T())
	client, err := redis.NewClient(s.ctx, config.RedisConfig{Addr: s.mr.Addr()}, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = client.Close() })

	s.collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "medkg"}, nil)
	s.Require().NoError(err)

	s.svc = resolution.NewService(s.eng, resolution.Config{Threshold: 85, FuzzyFallback: true}, nil,
		resolution.WithCache(redis.NewRedisCache(client, nil)),
		resolution.WithMetrics(prometheus.NewAppMetrics(s.collector)),
	)
}

func (s *ServiceSuite) scrape() string {
	w := httptest.NewRecorder()
	s.collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func (s *ServiceSuite) cachedKeys() []string {
	var out []string
	for _, k := range s.mr.Keys() {
		if strings.HasPrefix(k, "medkg:resolve:g1:") {
			out = append(out, k)
		}
	}
	return out
}

func (s *ServiceSuite) TestDefaults() {
	d := s.svc.Defaults()
	s.True(d.FuzzyFallback)
	s.False(d.NormalizeToGeneric)
	s.Equal(85, d.Threshold)
}

func (s *ServiceSuite) TestResolve_CachedPerGeneration() {
	r, err := s.svc.Resolve(s.ctx, "Ibrance", s.svc.Defaults())
	s.Require().NoError(err)
	s.Require().NotNil(r)
	s.Equal(medical.MatchExact, r.Best().MatchType)
	s.Len(s.cachedKeys(), 1)

	again, err := s.svc.Resolve(s.ctx, "Ibrance", s.svc.Defaults())
	s.Require().NoError(err)
	s.Equal(r.Best().Entity.ID, again.Best().Entity.ID)
	s.Equal(r.Best().Confidence, again.Best().Confidence)
	s.Equal(4.0, mustNumber(again.Best().Entity.Attributes, "max_phase"))

	s.Contains(s.scrape(), `medkg_resolutions_total{match_type="exact"} 2`)
}

func (s *ServiceSuite) TestResolve_GenericRoundTripsThroughCache() {
	opts := s.svc.Defaults()
	opts.NormalizeToGeneric = true

	for i := 0; i < 2; i++ {
		r, err := s.svc.Resolve(s.ctx, "阿司匹林肠溶片", opts)
		s.Require().NoError(err)
		gm, ok := r.(*linker.GenericMatch)
		s.Require().True(ok, "attempt %d", i)
		s.Equal("阿司匹林", gm.GenericName)
		s.Len(gm.RelatedProducts, 2)
	}
}

func (s *ServiceSuite) TestResolve_MissIsNilAndCached() {
	for i := 0; i < 2; i++ {
		r, err := s.svc.Resolve(s.ctx, "zzzzqqq", s.svc.Defaults())
		s.Require().NoError(err)
		s.Nil(r)
	}
	s.Len(s.cachedKeys(), 1)
	s.Contains(s.scrape(), `medkg_resolutions_total{match_type="none"} 2`)
}

func (s *ServiceSuite) TestResolve_Validation() {
	_, err := s.svc.Resolve(s.ctx, " ", s.svc.Defaults())
	s.True(errors.IsMalformedInput(err))

	opts := s.svc.Defaults()
	opts.Threshold = -1
	_, err = s.svc.Resolve(s.ctx, "Ibrance", opts)
	s.True(errors.IsMalformedInput(err))
}

func (s *ServiceSuite) TestResolve_NoSnapshot() {
	s.Require().NoError(s.eng.Close())
	_, err := s.svc.Resolve(s.ctx, "Ibrance", s.svc.Defaults())
	s.True(errors.IsStoreUnavailable(err))
}

func (s *ServiceSuite) TestResolveBatch() {
	results, err := s.svc.ResolveBatch(s.ctx, []string{"CDK4", "nothing-here-xyz", "乳癌"}, s.svc.Defaults())
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.Equal("CDK4", results[0].Best().Entity.Name)
	s.Nil(results[1])
	s.Equal(medical.MatchAlias, results[2].Best().MatchType)

	_, err = s.svc.ResolveBatch(s.ctx, nil, s.svc.Defaults())
	s.True(errors.IsMalformedInput(err))
}

func (s *ServiceSuite) TestResolveBatch_TooLarge() {
	svc := resolution.NewService(s.eng, resolution.Config{MaxBatchSize: 2}, nil)
	_, err := svc.ResolveBatch(s.ctx, []string{"a", "b", "c"}, svc.Defaults())
	s.True(errors.IsMalformedInput(err))
}

func (s *ServiceSuite) TestSearch() {
	found, err := s.svc.Search(s.ctx, "阿司匹林", medical.EntityAny, 0)
	s.Require().NoError(err)
	s.Require().Len(found, 3)
	s.Equal("阿司匹林", found[0].Name)

	found, err = s.svc.Search(s.ctx, "cyclin", medical.EntityGene, 0)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("CDK4", found[0].Name)

	found, err = s.svc.Search(s.ctx, "CDK", medical.EntityAny, 1)
	s.Require().NoError(err)
	s.Len(found, 1)

	found, err = s.svc.Search(s.ctx, "no-such-thing", medical.EntityAny, 500)
	s.Require().NoError(err)
	s.NotNil(found)
	s.Empty(found)

	_, err = s.svc.Search(s.ctx, "", medical.EntityAny, 0)
	s.True(errors.IsMalformedInput(err))
	_, err = s.svc.Search(s.ctx, "x", "Protein", 0)
	s.True(errors.IsMalformedInput(err))
}

func mustNumber(a kg.Attributes, key string) float64 {
	v, _ := a.Get(key)
	n, _ := v.AsNumber()
	return n
}

//Personal.AI order the ending

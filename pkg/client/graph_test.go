package client

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

const neighborsBody = `{"name":"Ibrance","neighbors":[
	{"entity_id":3,"name":"CDK4","standard_name":"","type":"Gene","relation_id":1,"relation_type":"targets","properties":{"mode_of_action":"inhibitor"}}],"total":1}`

func TestGraph_Neighbors(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/entities/Ibrance/neighbors", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "targets", q.Get("relation"))
		assert.Equal(t, "Drug", q.Get("source_type"))
		_, hasTarget := q["target_type"]
		assert.False(t, hasTarget)
		w.Write([]byte(neighborsBody))
	}
	c := newTestClient(t, handler)

	out, err := c.Graph().Neighbors(context.Background(), "Ibrance", NeighborQuery{
		Relation:   medical.RelationTargets,
		SourceType: medical.EntityDrug,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "CDK4", out[0].Name)
	assert.Equal(t, medical.RelationTargets, out[0].RelationType)
	assert.Equal(t, "inhibitor", out[0].Properties["mode_of_action"])
}

func TestGraph_FixedRoutes(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		mu.Unlock()
		w.Write([]byte(neighborsBody))
	})
	ctx := context.Background()

	_, err := c.Graph().DrugTargets(ctx, "Ibrance")
	require.NoError(t, err)
	_, err = c.Graph().DrugDiseases(ctx, "Ibrance")
	require.NoError(t, err)
	_, err = c.Graph().TargetDrugs(ctx, "CDK4")
	require.NoError(t, err)
	_, err = c.Graph().TargetDrugs(ctx, "Cyclin D/CDK4")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/api/drugs/Ibrance/targets",
		"/api/drugs/Ibrance/diseases",
		"/api/targets/CDK4/drugs",
		"/api/targets/Cyclin%20D%2FCDK4/drugs",
	}, paths)
}

func TestGraph_Neighbors_EmptyName(t *testing.T) {
	c, _ := NewClient("http://api.example.com")
	_, err := c.Graph().DrugTargets(context.Background(), " ")
	assert.True(t, errors.IsMalformedInput(err))
}

func TestGraph_Neighbors_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"KG_006","message":"entity not found: Unknown"}`))
	})
	_, err := c.Graph().Neighbors(context.Background(), "Unknown", NeighborQuery{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestGraph_SearchGeneric(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generic/search", r.URL.Path)
		assert.Equal(t, "阿司匹林", r.URL.Query().Get("name"))
		w.Write([]byte(`{"generic_name":"阿司匹林","generic_entity":null,
			"products":[{"id":1,"name":"阿司匹林肠溶片","type":"Drug","generic_name":"阿司匹林","dosage_form":"肠溶片"}],"total_products":1}`))
	}
	c := newTestClient(t, handler)

	lookup, err := c.Graph().SearchGeneric(context.Background(), "阿司匹林")
	require.NoError(t, err)
	assert.Nil(t, lookup.GenericEntity)
	assert.Equal(t, 1, lookup.TotalProducts)
	assert.Equal(t, "肠溶片", lookup.Products[0].DosageForm)
}

func TestGraph_GenericProducts(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generic/products", r.URL.Path)
		w.Write([]byte(`{"generic_name":"阿司匹林","products":[{"id":1,"name":"阿司匹林肠溶片","type":"Drug"}],"total":1}`))
	}
	c := newTestClient(t, handler)

	products, err := c.Graph().GenericProducts(context.Background(), "阿司匹林")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(1), products[0].ID)
}

func TestGraph_Statistics(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/statistics", r.URL.Path)
		w.Write([]byte(`{"drugs":2,"genes":1,"diseases":1,"total_entities":4,"total_relations":4,"total_aliases":3,"version":"2.0"}`))
	}
	c := newTestClient(t, handler)

	stats, err := c.Graph().Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Int("total_entities"))
	assert.Equal(t, int64(2), stats.Int("drugs"))
	assert.Equal(t, "2.0", stats.Text("version"))
	assert.Zero(t, stats.Int("version"))
	assert.Empty(t, stats.Text("drugs"))
}

//Personal.AI order the ending

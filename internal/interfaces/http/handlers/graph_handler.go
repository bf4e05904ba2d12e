package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedKG-Intelligence/internal/application/query"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
)

// GraphHandler serves relationship queries.
type GraphHandler struct {
	query query.KGQueryService
}

func NewGraphHandler(q query.KGQueryService) *GraphHandler {
	return &GraphHandler{query: q}
}

type NeighborsResponse struct {
	Name      string        `json:"name"`
	Neighbors []kg.Neighbor `json:"neighbors"`
	Total     int           `json:"total"`
}

// Neighbors handles GET /api/entities/:name/neighbors?relation=&source_type=&target_type=
func (h *GraphHandler) Neighbors(c *gin.Context) {
	q := kg.NeighborQuery{EntityName: c.Param("name"), RelationType: relationTypeParam(c, "relation")}
	var err error
	if q.SourceType, err = entityTypeParam(c, "source_type"); err != nil {
		respondError(c, err)
		return
	}
	if q.TargetType, err = entityTypeParam(c, "target_type"); err != nil {
		respondError(c, err)
		return
	}
	out, err := h.query.GetNeighbors(c.Request.Context(), q)
	h.respond(c, q.EntityName, out, err)
}

// DrugTargets handles GET /api/drugs/:name/targets
func (h *GraphHandler) DrugTargets(c *gin.Context) { h.fixed(c, h.query.DrugTargets) }

// TargetDrugs handles GET /api/targets/:name/drugs
func (h *GraphHandler) TargetDrugs(c *gin.Context) { h.fixed(c, h.query.TargetDrugs) }

// DrugDiseases handles GET /api/drugs/:name/diseases
func (h *GraphHandler) DrugDiseases(c *gin.Context) { h.fixed(c, h.query.DrugIndications) }

func (h *GraphHandler) fixed(c *gin.Context, fn func(context.Context, string) ([]kg.Neighbor, error)) {
	name := c.Param("name")
	out, err := fn(c.Request.Context(), name)
	h.respond(c, name, out, err)
}

func (h *GraphHandler) respond(c *gin.Context, name string, out []kg.Neighbor, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []kg.Neighbor{}
	}
	respondOK(c, NeighborsResponse{Name: name, Neighbors: out, Total: len(out)})
}

//Personal.AI order the ending

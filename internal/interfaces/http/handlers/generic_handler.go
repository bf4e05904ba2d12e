package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedKG-Intelligence/internal/application/query"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
)

// GenericHandler serves generic-name lookups and the statistics report.
type GenericHandler struct {
	query query.KGQueryService
}

func NewGenericHandler(q query.KGQueryService) *GenericHandler {
	return &GenericHandler{query: q}
}

type ProductsResponse struct {
	GenericName string       `json:"generic_name"`
	Products    []*kg.Entity `json:"products"`
	Total       int          `json:"total"`
}

// Search handles GET /api/generic/search?name=
func (h *GenericHandler) Search(c *gin.Context) {
	lookup, err := h.query.SearchByGenericName(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, lookup)
}

// Products handles GET /api/generic/products?name=
func (h *GenericHandler) Products(c *gin.Context) {
	name := c.Query("name")
	products, err := h.query.GenericProducts(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, ProductsResponse{GenericName: name, Products: products, Total: len(products)})
}

// Statistics handles GET /api/statistics
func (h *GenericHandler) Statistics(c *gin.Context) {
	st, err := h.query.GetStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, st)
}

//Personal.AI order the ending

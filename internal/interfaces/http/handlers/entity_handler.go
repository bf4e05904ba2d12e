package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedKG-Intelligence/internal/application/query"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/intelligence/linker"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// Resolver is the resolution surface the entity routes need.
type Resolver interface {
	Defaults() linker.Options
	Resolve(ctx context.Context, text string, opts linker.Options) (linker.Result, error)
	ResolveBatch(ctx context.Context, texts []string, opts linker.Options) ([]linker.Result, error)
	Search(ctx context.Context, keyword string, t medical.EntityType, limit int) ([]*kg.Entity, error)
}

// EntityHandler serves resolution, fuzzy search and alias listing.
type EntityHandler struct {
	resolver Resolver
	query    query.KGQueryService
	logger   logging.Logger
}

func NewEntityHandler(resolver Resolver, q query.KGQueryService, logger logging.Logger) *EntityHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EntityHandler{resolver: resolver, query: q, logger: logger}
}

// ResolveResponse reports one resolution.  Result is null when nothing
// qualified.
type ResolveResponse struct {
	Query  string        `json:"query"`
	Found  bool          `json:"found"`
	Result linker.Result `json:"result"`
}

// BatchResolveRequest is the body of POST /api/entities/resolve.  Unset
// options fall back to the server defaults.
type BatchResolveRequest struct {
	Texts     []string `json:"texts"`
	Type      string   `json:"type"`
	Threshold *int     `json:"threshold"`
	Fuzzy     *bool    `json:"fuzzy"`
	Normalize *bool    `json:"normalize"`
}

type BatchResolveResponse struct {
	Results  []ResolveResponse `json:"results"`
	Total    int               `json:"total"`
	Resolved int               `json:"resolved"`
}

type SearchResponse struct {
	Keyword  string       `json:"keyword"`
	Entities []*kg.Entity `json:"entities"`
	Total    int          `json:"total"`
}

type AliasesResponse struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Total   int      `json:"total"`
}

func newResolveResponse(text string, r linker.Result) ResolveResponse {
	return ResolveResponse{Query: text, Found: r != nil, Result: r}
}

// Resolve handles GET /api/entities/search?name=&type=&fuzzy=&normalize=&threshold=
func (h *EntityHandler) Resolve(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		respondError(c, errors.MalformedInput("name is required"))
		return
	}
	opts, err := h.optionsFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.resolver.Resolve(c.Request.Context(), name, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newResolveResponse(name, result))
}

func (h *EntityHandler) optionsFromQuery(c *gin.Context) (linker.Options, error) {
	opts := h.resolver.Defaults()
	var err error
	if opts.Type, err = entityTypeParam(c, "type"); err != nil {
		return opts, err
	}
	if opts.FuzzyFallback, err = boolParam(c, "fuzzy", opts.FuzzyFallback); err != nil {
		return opts, err
	}
	if opts.NormalizeToGeneric, err = boolParam(c, "normalize", opts.NormalizeToGeneric); err != nil {
		return opts, err
	}
	if opts.Threshold, err = intParam(c, "threshold", opts.Threshold); err != nil {
		return opts, err
	}
	return opts, nil
}

// ResolveBatch handles POST /api/entities/resolve
func (h *EntityHandler) ResolveBatch(c *gin.Context) {
	var req BatchResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeMalformedInput, "invalid request body"))
		return
	}

	opts := h.resolver.Defaults()
	t, err := medical.ParseEntityType(req.Type)
	if err != nil {
		respondError(c, errors.MalformedInput("invalid type").WithDetail(req.Type))
		return
	}
	opts.Type = t
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.Fuzzy != nil {
		opts.FuzzyFallback = *req.Fuzzy
	}
	if req.Normalize != nil {
		opts.NormalizeToGeneric = *req.Normalize
	}

	results, err := h.resolver.ResolveBatch(c.Request.Context(), req.Texts, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := BatchResolveResponse{Results: make([]ResolveResponse, len(results)), Total: len(results)}
	for i, r := range results {
		resp.Results[i] = newResolveResponse(req.Texts[i], r)
		if r != nil {
			resp.Resolved++
		}
	}
	respondOK(c, resp)
}

// Search handles GET /api/entities/fuzzy?keyword=&type=&limit=
func (h *EntityHandler) Search(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	t, err := entityTypeParam(c, "type")
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	found, err := h.resolver.Search(c.Request.Context(), keyword, t, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, SearchResponse{Keyword: keyword, Entities: found, Total: len(found)})
}

// Aliases handles GET /api/entities/:name/aliases
func (h *EntityHandler) Aliases(c *gin.Context) {
	name := c.Param("name")
	aliases, err := h.query.Aliases(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, AliasesResponse{Name: name, Aliases: aliases, Total: len(aliases)})
}

//Personal.AI order the ending

package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// Entity is one node of the knowledge graph.
type Entity struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	StandardName string                 `json:"standard_name"`
	Type         medical.EntityType     `json:"type"`
	Source       string                 `json:"source"`
	GenericName  string                 `json:"generic_name,omitempty"`
	DosageForm   string                 `json:"dosage_form,omitempty"`
	IsGeneric    bool                   `json:"is_generic"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
}

// Match is an entity together with the tier that found it.
type Match struct {
	Entity      *Entity           `json:"entity"`
	MatchType   medical.MatchType `json:"match_type"`
	Confidence  float64           `json:"confidence"`
	Query       string            `json:"query"`
	MatchedText string            `json:"matched_text,omitempty"`
	Canonical   string            `json:"canonical,omitempty"`
}

// Result is a resolution outcome.  When Normalized is set the server
// re-expressed a branded product through its generic name and the
// generic-name fields are populated; otherwise the Match fields are.
type Result struct {
	Match
	Normalized bool `json:"normalized"`

	MatchedProduct  *Match    `json:"matched_product,omitempty"`
	GenericName     string    `json:"generic_name,omitempty"`
	GenericEntity   *Entity   `json:"generic_entity,omitempty"`
	RelatedProducts []*Entity `json:"related_products,omitempty"`
}

// Best returns the match that produced r.
func (r *Result) Best() *Match {
	if r.Normalized && r.MatchedProduct != nil {
		return r.MatchedProduct
	}
	return &r.Match
}

// Resolution is the answer for one query text.  Result is nil when nothing
// qualified.
type Resolution struct {
	Query  string  `json:"query"`
	Found  bool    `json:"found"`
	Result *Result `json:"result"`
}

// ResolveOptions overrides the server's resolution defaults.  Nil fields
// keep the default.
type ResolveOptions struct {
	Type      medical.EntityType
	Threshold *int
	Fuzzy     *bool
	Normalize *bool
}

// BatchResolution is the answer for POST /api/entities/resolve.
type BatchResolution struct {
	Results  []Resolution `json:"results"`
	Total    int          `json:"total"`
	Resolved int          `json:"resolved"`
}

type batchResolveRequest struct {
	Texts     []string `json:"texts"`
	Type      string   `json:"type,omitempty"`
	Threshold *int     `json:"threshold,omitempty"`
	Fuzzy     *bool    `json:"fuzzy,omitempty"`
	Normalize *bool    `json:"normalize,omitempty"`
}

type searchResponse struct {
	Keyword  string    `json:"keyword"`
	Entities []*Entity `json:"entities"`
	Total    int       `json:"total"`
}

type aliasesResponse struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Total   int      `json:"total"`
}

// ─────────────────────────────────────────────────────────────────────────────
// EntitiesClient
// ─────────────────────────────────────────────────────────────────────────────

// EntitiesClient resolves mentions and searches entities.
type EntitiesClient struct {
	client *Client
}

// Resolve maps one free-text mention to its best entity.
func (e *EntitiesClient) Resolve(ctx context.Context, text string, opts *ResolveOptions) (*Resolution, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.MalformedInput("text must not be empty")
	}
	params := map[string]string{"name": text}
	if opts != nil {
		params["type"] = string(opts.Type)
		if opts.Threshold != nil {
			params["threshold"] = strconv.Itoa(*opts.Threshold)
		}
		if opts.Fuzzy != nil {
			params["fuzzy"] = strconv.FormatBool(*opts.Fuzzy)
		}
		if opts.Normalize != nil {
			params["normalize"] = strconv.FormatBool(*opts.Normalize)
		}
	}

	var out Resolution
	if err := e.client.get(ctx, "/api/entities/search"+query(params), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveBatch resolves texts in one request.  Results keep the input order.
func (e *EntitiesClient) ResolveBatch(ctx context.Context, texts []string, opts *ResolveOptions) (*BatchResolution, error) {
	if len(texts) == 0 {
		return nil, errors.MalformedInput("texts must not be empty")
	}
	req := batchResolveRequest{Texts: texts}
	if opts != nil {
		req.Type = string(opts.Type)
		req.Threshold = opts.Threshold
		req.Fuzzy = opts.Fuzzy
		req.Normalize = opts.Normalize
	}

	var out BatchResolution
	if err := e.client.post(ctx, "/api/entities/resolve", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search lists entities whose name, standard name or alias contains
// keyword.  A zero limit uses the server default.
func (e *EntitiesClient) Search(ctx context.Context, keyword string, t medical.EntityType, limit int) ([]*Entity, error) {
	params := map[string]string{"keyword": keyword, "type": string(t)}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var out searchResponse
	if err := e.client.get(ctx, "/api/entities/fuzzy"+query(params), &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// Aliases lists the alias texts of the named entity.
func (e *EntitiesClient) Aliases(ctx context.Context, name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.MalformedInput("name must not be empty")
	}
	var out aliasesResponse
	if err := e.client.get(ctx, "/api/entities/"+url.PathEscape(name)+"/aliases", &out); err != nil {
		return nil, err
	}
	return out.Aliases, nil
}

//Personal.AI order the ending

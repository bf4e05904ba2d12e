package linker

import (
	"encoding/json"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// Result is either a *Match or a *GenericMatch.  A nil Result means the
// text did not resolve.
type Result interface {
	// Best returns the match that produced the result.
	Best() *Match
	// Normalized reports whether the result was re-expressed through the
	// drug's generic name.
	Normalized() bool

	sealed()
}

// Match is a single resolved entity with the tier that found it.
type Match struct {
	Entity      *kg.Entity        `json:"entity"`
	MatchType   medical.MatchType `json:"match_type"`
	Confidence  float64           `json:"confidence"`
	Query       string            `json:"query"`
	MatchedText string            `json:"matched_text,omitempty"`
	// Canonical names the owner when an approximate hit landed on alias text.
	Canonical string `json:"canonical,omitempty"`
}

func (m *Match) Best() *Match     { return m }
func (m *Match) Normalized() bool { return false }
func (*Match) sealed()            {}

func (m *Match) MarshalJSON() ([]byte, error) {
	type plain Match
	return json.Marshal(struct {
		*plain
		Normalized bool `json:"normalized"`
	}{(*plain)(m), false})
}

// GenericMatch re-expresses a branded product through its generic name.
type GenericMatch struct {
	Product         *Match       `json:"matched_product"`
	GenericName     string       `json:"generic_name"`
	GenericEntity   *kg.Entity   `json:"generic_entity"`
	RelatedProducts []*kg.Entity `json:"related_products"`
}

func (g *GenericMatch) Best() *Match     { return g.Product }
func (g *GenericMatch) Normalized() bool { return true }
func (*GenericMatch) sealed()            {}

func (g *GenericMatch) MarshalJSON() ([]byte, error) {
	type plain GenericMatch
	related := g.RelatedProducts
	if related == nil {
		related = []*kg.Entity{}
	}
	return json.Marshal(struct {
		*plain
		RelatedProducts []*kg.Entity `json:"related_products"`
		Normalized      bool         `json:"normalized"`
	}{(*plain)(g), related, true})
}

//Personal.AI order the ending

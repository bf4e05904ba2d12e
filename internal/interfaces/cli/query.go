package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MedKG-Intelligence/internal/application/query"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/internal/intelligence/linker"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

func parseTypeFlag(flag, value string) (medical.EntityType, error) {
	t, err := medical.ParseEntityType(value)
	if err != nil {
		return t, errors.Wrap(err, errors.ErrCodeMalformedInput, "invalid --"+flag)
	}
	return t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// resolve
// ─────────────────────────────────────────────────────────────────────────────

type resolveOptions struct {
	entityType string
	threshold  int
	normalize  bool
	noFuzzy    bool
}

// NewResolveCmd resolves one or more mentions against the store.
func NewResolveCmd() *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve <text>...",
		Short: "Resolve free-text mentions to knowledge-graph entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.entityType, "type", "", "restrict candidates to drug, disease or gene")
	f.IntVar(&opts.threshold, "threshold", -1, "approximate-match cut-off 0..100 (default: linker.threshold)")
	f.BoolVar(&opts.normalize, "normalize", false, "re-express drug products through their generic name")
	f.BoolVar(&opts.noFuzzy, "no-fuzzy", false, "disable the partial-match tier")
	return cmd
}

func runResolve(cmd *cobra.Command, texts []string, opts *resolveOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	t, err := parseTypeFlag("type", opts.entityType)
	if err != nil {
		return err
	}

	a := newApp(cc)
	defer a.Close()
	ctx := cmd.Context()
	eng, err := a.StartedEngine(ctx)
	if err != nil {
		return err
	}
	svc, _, err := a.Services(ctx, eng)
	if err != nil {
		return err
	}

	lo := svc.Defaults()
	lo.Type = t
	if cmd.Flags().Changed("threshold") {
		lo.Threshold = opts.threshold
	}
	if opts.normalize {
		lo.NormalizeToGeneric = true
	}
	if opts.noFuzzy {
		lo.FuzzyFallback = false
	}

	var results []linker.Result
	if len(texts) == 1 {
		r, err := svc.Resolve(ctx, texts[0], lo)
		if err != nil {
			return err
		}
		results = []linker.Result{r}
	} else if results, err = svc.ResolveBatch(ctx, texts, lo); err != nil {
		return err
	}

	view := make(resolveView, len(texts))
	for i, text := range texts {
		view[i] = resolveItem{Query: text, Found: results[i] != nil, Result: results[i]}
	}
	return PrintResult(cmd, view)
}

type resolveItem struct {
	Query  string        `json:"query"`
	Found  bool          `json:"found"`
	Result linker.Result `json:"result"`
}

type resolveView []resolveItem

func (resolveView) TableHeaders() []string {
	return []string{"QUERY", "ENTITY", "TYPE", "MATCH", "CONFIDENCE", "GENERIC"}
}

func (v resolveView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, item := range v {
		if item.Result == nil {
			rows = append(rows, []string{item.Query, "-", "-", "none", "-", ""})
			continue
		}
		best := item.Result.Best()
		generic := ""
		if g, ok := item.Result.(*linker.GenericMatch); ok {
			generic = g.GenericName
		}
		rows = append(rows, []string{
			item.Query,
			best.Entity.Name,
			string(best.Entity.Type),
			string(best.MatchType),
			strconv.FormatFloat(best.Confidence, 'f', 1, 64),
			generic,
		})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// search
// ─────────────────────────────────────────────────────────────────────────────

// NewSearchCmd lists entities whose names or aliases contain a keyword.
func NewSearchCmd() *cobra.Command {
	var (
		entityType string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "List entities whose name, standard name or alias contains a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			t, err := parseTypeFlag("type", entityType)
			if err != nil {
				return err
			}
			a := newApp(cc)
			defer a.Close()
			eng, err := a.StartedEngine(cmd.Context())
			if err != nil {
				return err
			}
			svc, _, err := a.Services(cmd.Context(), eng)
			if err != nil {
				return err
			}
			found, err := svc.Search(cmd.Context(), args[0], t, limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, entityView(found))
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "restrict results to drug, disease or gene")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default: linker.search_limit)")
	return cmd
}

type entityView []*kg.Entity

func (entityView) TableHeaders() []string {
	return []string{"ID", "NAME", "STANDARD NAME", "TYPE", "SOURCE"}
}

func (v entityView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, e := range v {
		rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.Name, e.StandardName, string(e.Type), e.Source})
	}
	return rows
}

func (v entityView) JSONValue() interface{} { return []*kg.Entity(v) }

// ─────────────────────────────────────────────────────────────────────────────
// neighbors
// ─────────────────────────────────────────────────────────────────────────────

// NewNeighborsCmd lists the entities related to a named entity.
func NewNeighborsCmd() *cobra.Command {
	var relation, sourceType, targetType string
	cmd := &cobra.Command{
		Use:   "neighbors <name>",
		Short: "List entities related to the named entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			q := kg.NeighborQuery{
				EntityName:   args[0],
				RelationType: medical.RelationType(strings.TrimSpace(relation)),
			}
			if q.SourceType, err = parseTypeFlag("source-type", sourceType); err != nil {
				return err
			}
			if q.TargetType, err = parseTypeFlag("target-type", targetType); err != nil {
				return err
			}

			a := newApp(cc)
			defer a.Close()
			eng, err := a.StartedEngine(cmd.Context())
			if err != nil {
				return err
			}
			_, qs, err := a.Services(cmd.Context(), eng)
			if err != nil {
				return err
			}
			found, err := qs.GetNeighbors(cmd.Context(), q)
			if err != nil {
				return err
			}
			return PrintResult(cmd, neighborView(found))
		},
	}
	f := cmd.Flags()
	f.StringVar(&relation, "relation", "", "relation type filter (targets, treats, associated_with, ...)")
	f.StringVar(&sourceType, "source-type", "", "type of the named entity")
	f.StringVar(&targetType, "target-type", "", "type of the returned neighbors")
	return cmd
}

type neighborView []kg.Neighbor

func (neighborView) TableHeaders() []string {
	return []string{"ID", "NAME", "TYPE", "RELATION", "PROPERTIES"}
}

func (v neighborView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, n := range v {
		props, _ := n.Properties.Encode()
		if props == "{}" {
			props = ""
		}
		rows = append(rows, []string{strconv.FormatInt(n.EntityID, 10), n.Name, string(n.Type), string(n.RelationType), props})
	}
	return rows
}

func (v neighborView) JSONValue() interface{} { return []kg.Neighbor(v) }

// ─────────────────────────────────────────────────────────────────────────────
// stats
// ─────────────────────────────────────────────────────────────────────────────

// NewStatsCmd reports entity, relation and generic-name counts.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report entity, relation and generic-name counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			a := newApp(cc)
			defer a.Close()
			eng, err := a.StartedEngine(cmd.Context())
			if err != nil {
				return err
			}
			_, qs, err := a.Services(cmd.Context(), eng)
			if err != nil {
				return err
			}
			stats, err := qs.GetStatistics(cmd.Context())
			if err != nil {
				return err
			}
			return PrintResult(cmd, statsView{stats})
		},
	}
}

type statsView struct{ *query.Statistics }

func (statsView) TableHeaders() []string { return []string{"KEY", "VALUE"} }

func (v statsView) TableRows() [][]string {
	flat := v.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprint(flat[k])})
	}
	return rows
}

func (v statsView) JSONValue() interface{} { return v.Statistics }

//Personal.AI order the ending

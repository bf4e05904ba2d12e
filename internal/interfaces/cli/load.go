package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/MedKG-Intelligence/internal/application/ingest"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// loadLockName serializes load and renormalize runs across processes.
const loadLockName = "load"

type loadOptions struct {
	fromObject bool
	object     string
	replace    bool
	upload     bool
}

// NewLoadCmd imports a staged ontology document into the store.
func NewLoadCmd() *cobra.Command {
	opts := &loadOptions{}
	cmd := &cobra.Command{
		Use:   "load [file]",
		Short: "Import a staged ontology document into the store",
		Long: "Load parses a staged ontology document from a local file or, with --from-object,\n" +
			"from the configured MinIO bucket, and writes it into the store in one transaction.\n" +
			"Without a file argument the document at store.snapshot_path is loaded.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.fromObject, "from-object", false, "read the document from object storage instead of a file")
	f.StringVar(&opts.object, "object", "", "object key (default: storage.minio.object)")
	f.BoolVar(&opts.replace, "replace", false, "empty every table before inserting")
	f.BoolVar(&opts.upload, "upload", false, "archive the loaded file to object storage")
	return cmd
}

func runLoad(cmd *cobra.Command, args []string, opts *loadOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	path := cc.Config.Store.SnapshotPath
	if len(args) > 0 {
		path = args[0]
	}
	switch {
	case opts.fromObject && len(args) > 0:
		return errors.MalformedInput("a file argument and --from-object are mutually exclusive")
	case !opts.fromObject && path == "":
		return errors.MalformedInput("either a file argument, store.snapshot_path or --from-object is required")
	case opts.fromObject && opts.upload:
		return errors.MalformedInput("--upload only applies to file sources")
	}

	ctx := cmd.Context()
	a := newApp(cc)
	defer a.Close()

	var (
		src  ingest.Source
		repo *minio.SnapshotRepository
	)
	if opts.fromObject || opts.upload {
		if repo, _, err = a.Snapshots(ctx); err != nil {
			return err
		}
		if repo == nil {
			return errors.MalformedInput("object storage is disabled").WithDetail("set storage.minio.enabled")
		}
		if opts.fromObject {
			src = repo.Source(opts.object)
		}
	}
	if src == nil {
		src = ingest.FileSource{Path: path}
	}

	loader, err := newLoader(ctx, a, true)
	if err != nil {
		return err
	}
	report, err := loader.Load(ctx, src, ingest.LoadOptions{Replace: opts.replace})
	if err != nil {
		return err
	}

	view := loadView{Report: report}
	if opts.upload {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeMalformedInput, "failed to re-read document for upload")
		}
		res, err := repo.Upload(ctx, opts.object, data, report.Checksum)
		if err != nil {
			// The store is already committed; archiving is best effort.
			a.logger.Warn("document archive failed", logging.Err(err))
		} else {
			view.Archived = res.ObjectKey
		}
	}
	return PrintResult(cmd, view)
}

// newLoader wires the loader to every enabled side effect: the redis load
// lock, the Neo4j projection and the Kafka announcement.
func newLoader(ctx context.Context, a *app, withEvents bool) (*ingest.Loader, error) {
	store, err := a.openStore(ctx, storeWrite)
	if err != nil {
		return nil, err
	}
	a.onClose(store.Close)

	opts := []ingest.Option{ingest.WithMetrics(a.Metrics())}

	rc, err := a.Redis(ctx)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		opts = append(opts, ingest.WithLock(redis.NewMutex(rc, loadLockName, a.logger)))
	}

	graph, _, err := a.Graph(ctx)
	if err != nil {
		return nil, err
	}
	if graph != nil {
		opts = append(opts, ingest.WithProjector(graph))
	}

	if withEvents {
		pub, err := a.Publisher("medkg-cli")
		if err != nil {
			return nil, err
		}
		if pub != nil {
			opts = append(opts, ingest.WithPublisher(pub))
		}
	}
	return ingest.NewLoader(store, a.logger, opts...), nil
}

type loadView struct {
	*ingest.Report
	Archived string `json:"archived_object,omitempty"`
}

func (loadView) TableHeaders() []string { return []string{"KEY", "VALUE"} }

func (v loadView) TableRows() [][]string {
	r := v.Report
	rows := [][]string{
		{"load_id", r.LoadID},
		{"source", r.Source},
		{"snapshot_checksum", r.Checksum},
	}
	types := make([]medical.EntityType, 0, len(r.Entities))
	for t := range r.Entities {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		rows = append(rows, []string{"entities." + string(t), strconv.Itoa(r.Entities[t])})
	}
	rels := make([]medical.RelationType, 0, len(r.Relations))
	for t := range r.Relations {
		rels = append(rels, t)
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i] < rels[j] })
	for _, t := range rels {
		rows = append(rows, []string{"relations." + string(t), strconv.Itoa(r.Relations[t])})
	}
	rows = append(rows,
		[]string{"aliases", strconv.Itoa(r.Aliases)},
		[]string{"unresolved_relations", strconv.Itoa(r.UnresolvedRelations)},
		[]string{"skipped_relations", strconv.Itoa(r.SkippedRelations)},
		[]string{"projected", strconv.Itoa(r.Projected)},
		[]string{"published", strconv.FormatBool(r.Published)},
		[]string{"duration", r.Duration.String()},
	)
	if v.Archived != "" {
		rows = append(rows, []string{"archived_object", v.Archived})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// renormalize
// ─────────────────────────────────────────────────────────────────────────────

// NewRenormalizeCmd re-derives the generic-name fields of every drug.
func NewRenormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renormalize",
		Short: "Re-derive generic name, dosage form and generic flag for every drug",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			a := newApp(cc)
			defer a.Close()
			loader, err := newLoader(cmd.Context(), a, false)
			if err != nil {
				return err
			}
			updated, err := loader.Renormalize(cmd.Context())
			if err != nil {
				return err
			}
			if cc.OutputFormat == OutputJSON {
				return PrintResult(cmd, map[string]int{"updated": updated})
			}
			PrintSuccess(cmd, fmt.Sprintf("%d drug rows updated", updated))
			return nil
		},
	}
}

//Personal.AI order the ending

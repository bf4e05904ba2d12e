package ingest

import (
	"context"
	"os"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// Source yields the raw staged ontology document.
type Source interface {
	// Name identifies the source in logs, events and the load report.
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// FileSource reads a staged document from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file://" + s.Path }

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotInvalid, "read staged document").WithDetail(s.Path)
	}
	return raw, nil
}

// BytesSource serves an in-memory document.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Name() string { return s.Label }

func (s BytesSource) Fetch(context.Context) ([]byte, error) { return s.Data, nil }

//Personal.AI order the ending

package sqlite

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

func TestOpen_MissingFileIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	store, err := Open(context.Background(), config.SQLiteConfig{Path: path}, nil, Options{})
	assert.Nil(t, store)
	assert.True(t, errors.IsStoreUnavailable(err))
}

func TestOpen_EmptyPathAndDirectory(t *testing.T) {
	_, err := Open(context.Background(), config.SQLiteConfig{}, nil, Options{})
	assert.True(t, errors.IsStoreUnavailable(err))

	_, err = Open(context.Background(), config.SQLiteConfig{Path: t.TempDir()}, nil, Options{})
	assert.True(t, errors.IsStoreUnavailable(err))
}

func TestOpen_CreateThenReattachReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kg.db")

	store, err := Open(ctx, config.SQLiteConfig{Path: path}, nil, Options{Create: true})
	require.NoError(t, err)
	err = store.Load(ctx, func(w kg.Writer) error {
		_, err := w.InsertEntity(ctx, &kg.Entity{Name: "Ibrance", Type: medical.EntityDrug})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ro, err := Open(ctx, config.SQLiteConfig{Path: path, ReadOnly: true}, nil, Options{})
	require.NoError(t, err)
	defer ro.Close()

	e, err := ro.FindByExactNameOrStandardName(ctx, "Ibrance", medical.EntityAny)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Ibrance", e.Name)

	err = ro.Load(ctx, func(w kg.Writer) error { return w.Truncate(ctx) })
	assert.Error(t, err, "read-only stores reject writes")
}

func TestOpen_ReadOnlyRequiresSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bare.db")

	db, err := Open(ctx, config.SQLiteConfig{Path: path}, nil, Options{Create: true})
	require.NoError(t, err)
	_, err = db.DB().ExecContext(ctx, "DROP TABLE relations")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, config.SQLiteConfig{Path: path, ReadOnly: true}, nil, Options{})
	assert.True(t, errors.IsStoreUnavailable(err))
}

func TestOpen_RejectsSchemaWithoutFoldedColumns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := Open(ctx, config.SQLiteConfig{Path: path}, nil, Options{Create: true})
	require.NoError(t, err)
	_, err = db.DB().ExecContext(ctx, "ALTER TABLE aliases DROP COLUMN alias_folded")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, config.SQLiteConfig{Path: path, ReadOnly: true}, nil, Options{})
	assert.True(t, errors.IsStoreUnavailable(err))

	_, err = Open(ctx, config.SQLiteConfig{Path: path}, nil, Options{})
	assert.True(t, errors.IsStoreUnavailable(err), "read-write attach does not add columns to existing tables")
}

func TestOpen_Memory(t *testing.T) {
	store, err := Open(context.Background(), config.SQLiteConfig{Path: MemoryPath}, nil, Options{})
	require.NoError(t, err)
	defer store.Close()

	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.TotalEntities)
}

func TestDSN(t *testing.T) {
	got := dsn(config.SQLiteConfig{Path: "/data/kg.db", ReadOnly: true, BusyTimeout: 2 * time.Second}, false)
	require.True(t, strings.HasPrefix(got, "file:/data/kg.db?"))

	q, err := url.ParseQuery(strings.SplitN(got, "?", 2)[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"foreign_keys(1)", "busy_timeout(2000)"}, q["_pragma"])
	assert.Equal(t, "ro", q.Get("mode"))

	mem := dsn(config.SQLiteConfig{Path: MemoryPath}, true)
	assert.True(t, strings.HasPrefix(mem, MemoryPath+"?"))
	assert.NotContains(t, mem, "mode=ro")
	assert.Contains(t, mem, url.QueryEscape("busy_timeout(5000)"))
}

//Personal.AI order the ending

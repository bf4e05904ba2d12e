//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/testutil"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// startPostgres launches an empty PostgreSQL server and returns its config.
func startPostgres(t *testing.T) config.PostgresConfig {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "medkg",
			"POSTGRES_PASSWORD": "medkg-secret",
			"POSTGRES_DB":       "medkg",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return config.PostgresConfig{
		Host:         host,
		Port:         port.Int(),
		User:         "medkg",
		Password:     "medkg-secret",
		DBName:       "medkg",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
}

func TestStore_MigrateSeedAndQuery(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	store, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Ping(ctx))

	ids := testutil.SeedFixture(t, store)

	owner, err := store.FindByAlias(ctx, "拜阿司匹灵", medical.EntityAny)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, ids["阿司匹林肠溶片"], owner.ID)

	byStandard, err := store.FindByExactNameOrStandardName(ctx, "Palbociclib", medical.EntityDrug)
	require.NoError(t, err)
	require.NotNil(t, byStandard)
	assert.Equal(t, "Ibrance", byStandard.Name)
	v, ok := byStandard.Attributes.Get("max_phase")
	require.True(t, ok)
	assert.NotNil(t, v)

	found, err := store.ScanSubstring(ctx, "阿司匹林", medical.EntityDrug)
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestMigrator_Lifecycle(t *testing.T) {
	cfg := startPostgres(t)
	m := NewMigrator(cfg, nil)

	st, err := m.Status()
	require.NoError(t, err)
	assert.Zero(t, st.Version)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "no pending migrations is not an error")

	st, err = m.Status()
	require.NoError(t, err)
	assert.Positive(t, st.Version)
	assert.False(t, st.Dirty)
	applied := st.Version

	require.NoError(t, m.Down(1))
	st, err = m.Status()
	require.NoError(t, err)
	assert.Less(t, st.Version, applied)

	require.NoError(t, m.Force(int(applied)))
	st, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, applied, st.Version)
}

//Personal.AI order the ending

//go:build integration

package minio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/MedKG-Intelligence/internal/config"
)

// startMinIO launches a MinIO server and returns a client bound to a fresh bucket.
func startMinIO(t *testing.T) *MinIOClient {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "medkg",
			"MINIO_ROOT_PASSWORD": "medkg-secret",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	client, err := NewMinIOClient(ctx, config.MinIOConfig{
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: "medkg",
		SecretKey: "medkg-secret",
		Bucket:    "medkg-it",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	return client
}

func TestSnapshotRepository_RoundTrip(t *testing.T) {
	client := startMinIO(t)
	repo := NewSnapshotRepository(client, nil)
	ctx := context.Background()

	doc := []byte(`{"metadata":{"version":"2.0"},"entities":{"drugs":{"阿司匹林":{}}}}`)
	_, err := repo.Upload(ctx, "", doc, "c0ffee")
	require.NoError(t, err)

	src := repo.Source("")
	assert.Equal(t, "s3://medkg-it/"+config.DefaultMinIOObject, src.Name())
	got, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	status, err := client.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

//Personal.AI order the ending

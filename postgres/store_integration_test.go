package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/deepnoodle-ai/browserflow"
)

// startPostgres spins up a throwaway Postgres container and returns a store
// connected to it. Skipped in short mode and when Docker is unavailable.
func startPostgres(t *testing.T) *FlowStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv("DOCKER_HOST") == "" {
		if _, err := os.Stat("/var/run/docker.sock"); err != nil {
			t.Skip("docker is not available")
		}
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("browserflow_test"),
		tcpostgres.WithUsername("browserflow"),
		tcpostgres.WithPassword("browserflow"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		testcontainers.CleanupContainer(t, container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Initialize(ctx))
	return store
}

func TestFlowStoreIntegration(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		flow := mockFlow("search for cats on google")
		require.NoError(t, store.SaveFlow(ctx, "my_flow", flow))

		loaded, err := store.LoadFlow(ctx, "my_flow")
		require.NoError(t, err)
		require.Equal(t, flow, loaded)
	})

	t.Run("overwrite is last write wins", func(t *testing.T) {
		require.NoError(t, store.SaveFlow(ctx, "my_flow", mockFlow("second task")))
		loaded, err := store.LoadFlow(ctx, "my_flow")
		require.NoError(t, err)
		require.Equal(t, "second task", loaded.OriginalUserTask)
	})

	t.Run("list newest first", func(t *testing.T) {
		// Ensure a later created_at for deterministic ordering.
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, store.SaveFlow(ctx, "another_flow", mockFlow("another task")))

		summaries, err := store.ListFlows(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		require.Equal(t, "another_flow", summaries[0].Name)
		require.Equal(t, 1, summaries[0].StepCount)
		require.Positive(t, summaries[0].SizeBytes)
	})

	t.Run("missing flow", func(t *testing.T) {
		_, err := store.LoadFlow(ctx, "missing")
		require.True(t, browserflow.IsNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteFlow(ctx, "another_flow"))
		err := store.DeleteFlow(ctx, "another_flow")
		require.True(t, browserflow.IsNotFound(err))
	})
}

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	cat, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog", "runs.db"))
	require.NoError(t, err)
	defer cat.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []RunMetadata{
		{ID: "a", Model: "sir", Method: "rk4", Status: "completed", Steps: 100, FinalTime: 10, Timestamp: base},
		{ID: "b", Model: "sir", Method: "rkf45", Status: "cancelled", Steps: 7, FinalTime: 3, Timestamp: base.Add(time.Minute)},
		{ID: "c", Model: "seir", Method: "euler", Status: "completed", Steps: 10, FinalTime: 1, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, cat.Record(ctx, e))
	}

	runs, err := cat.Runs(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, "c", runs[0].ID)

	runs, err = cat.Runs(ctx, "sir")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "b", runs[0].ID)
	require.Equal(t, "rkf45", runs[0].Method)
	require.True(t, runs[0].Timestamp.Equal(base.Add(time.Minute)))

	counts, err := cat.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"completed": 2, "cancelled": 1}, counts)

	// re-recording replaces
	entries[1].Status = "failed"
	require.NoError(t, cat.Record(ctx, entries[1]))
	require.NoError(t, cat.Forget(ctx, "a"))
	counts, err = cat.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"completed": 1, "failed": 1}, counts)
}

func TestOpenCatalog_CreatesParentThroughFilesystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "nested")
	cat, err := OpenCatalog(filepath.Join(dir, "catalog.db"), osfs.OsFs)
	require.NoError(t, err)
	defer cat.Close()

	fi, err := osfs.OsFs.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	require.NoError(t, cat.Record(context.Background(), RunMetadata{ID: "x", Model: "sir", Method: "rk4", Status: "completed"}))
}

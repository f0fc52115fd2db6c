package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"soundgrid/internal/grid/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRepository(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	runRepositoryTests(t, repo)
}

func TestFileRepositoryCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := NewFileRepository(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileRepositoryCorruptFileReadsEmpty(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(repo.Path(), []byte("{not json"), 0o644))

	grids, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, grids)
}

func TestFileRepositoryReadFailureIsAnError(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(repo.Path(), 0o755))

	grids, err := repo.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, grids)
}

func TestFileRepositoryWritesIndentedArray(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), []model.Grid{
		{ID: "1", Name: "A", Grid: json.RawMessage(`[[0,1],[1,0]]`)},
	}))

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[\n    {\n        \"id\": \"1\""), "got %q", raw)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "A", decoded[0]["name"])

	// Only the collection file remains; temp files are cleaned up.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestFileRepositoryRespectsCanceledContext(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Save(ctx, nil), context.Canceled)
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

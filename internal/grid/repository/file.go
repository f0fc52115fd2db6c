package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"soundgrid/internal/grid/model"
	"soundgrid/pkg/logger"
)

// FileName is the collection file inside the data directory.
const FileName = "grids.json"

// FileRepository stores the collection as one pretty-printed JSON array.
type FileRepository struct {
	path string
}

// NewFileRepository creates dir if needed and returns a repository backed by
// dir/grids.json.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &FileRepository{path: filepath.Join(dir, FileName)}, nil
}

// Path is the collection file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the collection. Missing and corrupt files both read as empty;
// any other read failure is returned so callers never overwrite data they
// could not see.
func (r *FileRepository) Load(ctx context.Context) ([]model.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Grid{}, nil
		}
		logger.Sugar.Errorf("Failed to read %s: %v", r.path, err)
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var grids []model.Grid
	if err := json.Unmarshal(data, &grids); err != nil {
		logger.Sugar.Warnf("Corrupt collection file %s, treating as empty: %v", r.path, err)
		return []model.Grid{}, nil
	}
	if grids == nil {
		grids = []model.Grid{}
	}
	return grids, nil
}

// Save writes grids to a temp file in the same directory and renames it over
// the collection file.
func (r *FileRepository) Save(ctx context.Context, grids []model.Grid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if grids == nil {
		grids = []model.Grid{}
	}
	b, err := json.MarshalIndent(grids, "", "    ")
	if err != nil {
		return fmt.Errorf("encode grids: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".grids-*.json")
	if err != nil {
		logger.Sugar.Errorf("Failed to create temp file for %s: %v", r.path, err)
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		logger.Sugar.Errorf("Failed to write %s: %v", tmpName, err)
		return fmt.Errorf("write grids: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		logger.Sugar.Errorf("Failed to replace %s: %v", r.path, err)
		return fmt.Errorf("replace grids file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (r *FileRepository) Close() error {
	return nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return nil
}

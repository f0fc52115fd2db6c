// Package repository persists the grid collection as a whole. Every backend
// exposes the same two primitives: load the full collection and replace it.
package repository

import (
	"context"
	"fmt"
	"path/filepath"

	"soundgrid/config/database"
	"soundgrid/internal/grid/model"
)

// Repository is implemented by every storage backend.
type Repository interface {
	// Load returns the stored collection in insertion order. A missing
	// collection is an empty slice, not an error.
	Load(ctx context.Context) ([]model.Grid, error)

	// Save replaces the stored collection with grids.
	Save(ctx context.Context, grids []model.Grid) error

	Close() error
}

// New builds the Repository named by backend.
//
// Supported backends:
//
//	"json"     - dataDir/grids.json (default)
//	"sqlite"   - dataDir/grids.db
//	"postgres" - databaseURL
//	"memory"   - in-memory, lost on restart
func New(ctx context.Context, backend, dataDir, databaseURL string) (Repository, error) {
	switch backend {
	case "json", "":
		repo, err := NewFileRepository(dataDir)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "memory":
		return NewMemoryRepository(), nil
	case "sqlite":
		if err := ensureDir(dataDir); err != nil {
			return nil, err
		}
		db, err := database.Connect(ctx, "sqlite3", filepath.Join(dataDir, "grids.db"))
		if err != nil {
			return nil, err
		}
		return openSQL(ctx, db, SQLite)
	case "postgres":
		db, err := database.Connect(ctx, "postgres", databaseURL)
		if err != nil {
			return nil, err
		}
		return openSQL(ctx, db, Postgres)
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, postgres, memory)", backend)
	}
}

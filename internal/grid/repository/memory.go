package repository

import (
	"context"
	"sync"

	"soundgrid/internal/grid/model"
)

// MemoryRepository keeps the collection in memory. Data is lost on restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	grids []model.Grid

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{grids: []model.Grid{}}
}

func (m *MemoryRepository) Load(ctx context.Context) ([]model.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.grids), nil
}

func (m *MemoryRepository) Save(ctx context.Context, grids []model.Grid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.grids = cloneAll(grids)
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}

func cloneAll(src []model.Grid) []model.Grid {
	dst := make([]model.Grid, len(src))
	for i, g := range src {
		dst[i] = g.Clone()
	}
	return dst
}

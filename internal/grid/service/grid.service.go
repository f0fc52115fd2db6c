package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"soundgrid/internal/grid/model"
	"soundgrid/internal/grid/repository"
	"soundgrid/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("invalid data")
	ErrNotFound   = errors.New("grid not found")
)

// Notifier receives an event after each committed write.
type Notifier interface {
	Notify(event model.GridEvent)
}

type actorKey struct{}

// WithUser attaches the acting user to ctx. The id is copied onto the change
// events of writes made with that context.
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, userID)
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

type nopNotifier struct{}

func (nopNotifier) Notify(model.GridEvent) {}

// GridService implements the record-store operations over a Repository.
// Every operation loads the full collection; writes hold an exclusive lock for
// the whole load-mutate-save cycle so concurrent writers cannot lose updates.
type GridService struct {
	Repo     repository.Repository
	Notifier Notifier

	mu    sync.RWMutex
	newID func() string
}

func NewGridService(repo repository.Repository, notifier Notifier) *GridService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &GridService{
		Repo:     repo,
		Notifier: notifier,
		newID:    func() string { return uuid.NewString() },
	}
}

// List returns the collection in stored order.
func (s *GridService) List(ctx context.Context) ([]model.Grid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grids, err := s.Repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load grids: %w", err)
	}
	return grids, nil
}

func (s *GridService) Create(ctx context.Context, req model.GridRequest) (*model.Grid, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	grid := model.Grid{ID: s.newID(), Name: req.Name, Grid: req.Grid}
	err := s.commit(ctx, func(grids []model.Grid) ([]model.Grid, error) {
		return append(grids, grid), nil
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create grid %s: %v", grid.ID, err)
		return nil, err
	}

	s.Notifier.Notify(model.GridEvent{Type: model.GridCreated, GridID: grid.ID, UserID: userFrom(ctx), Grid: &grid})
	return &grid, nil
}

// GetOne looks id up in the stored collection.
func (s *GridService) GetOne(ctx context.Context, id string) (*model.Grid, error) {
	grids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if idx := indexOf(grids, id); idx >= 0 {
		return &grids[idx], nil
	}
	return nil, ErrNotFound
}

// Update overwrites name and grid of the record with the given id. The id and
// the record's position are preserved.
func (s *GridService) Update(ctx context.Context, id string, req model.GridRequest) (*model.Grid, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var updated model.Grid
	err := s.commit(ctx, func(grids []model.Grid) ([]model.Grid, error) {
		idx := indexOf(grids, id)
		if idx < 0 {
			return nil, ErrNotFound
		}
		grids[idx].Name = req.Name
		grids[idx].Grid = req.Grid
		updated = grids[idx]
		return grids, nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Sugar.Errorf("Failed to update grid %s: %v", id, err)
		}
		return nil, err
	}

	s.Notifier.Notify(model.GridEvent{Type: model.GridUpdated, GridID: id, UserID: userFrom(ctx), Grid: &updated})
	return &updated, nil
}

func (s *GridService) Delete(ctx context.Context, id string) error {
	err := s.commit(ctx, func(grids []model.Grid) ([]model.Grid, error) {
		remaining := make([]model.Grid, 0, len(grids))
		for _, g := range grids {
			if g.ID != id {
				remaining = append(remaining, g)
			}
		}
		if len(remaining) == len(grids) {
			return nil, ErrNotFound
		}
		return remaining, nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Sugar.Errorf("Failed to delete grid %s: %v", id, err)
		}
		return err
	}

	s.Notifier.Notify(model.GridEvent{Type: model.GridDeleted, GridID: id, UserID: userFrom(ctx)})
	return nil
}

// commit runs one serialized load-mutate-save cycle. If fn returns an error
// nothing is written.
func (s *GridService) commit(ctx context.Context, fn func([]model.Grid) ([]model.Grid, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	grids, err := s.Repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load grids: %w", err)
	}
	next, err := fn(grids)
	if err != nil {
		return err
	}
	if err := s.Repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save grids: %w", err)
	}
	return nil
}

func validate(req model.GridRequest) error {
	switch {
	case !req.HasName && !req.HasGrid:
		return fmt.Errorf("%w: name and grid are required", ErrValidation)
	case !req.HasName:
		return fmt.Errorf("%w: name is required", ErrValidation)
	case !req.HasGrid:
		return fmt.Errorf("%w: grid is required", ErrValidation)
	}
	return nil
}

func indexOf(grids []model.Grid, id string) int {
	for i := range grids {
		if grids[i].ID == id {
			return i
		}
	}
	return -1
}

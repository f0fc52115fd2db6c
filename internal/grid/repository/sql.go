package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"soundgrid/internal/grid/model"
	"soundgrid/pkg/logger"
)

// Dialect holds the statements that differ between SQL backends.
type Dialect struct {
	Name        string
	CreateTable string
	Insert      string
}

var (
	Postgres = Dialect{
		Name: "postgres",
		CreateTable: `CREATE TABLE IF NOT EXISTS grids (
			seq INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			grid JSONB
		)`,
		Insert: `INSERT INTO grids (seq, id, name, grid) VALUES ($1, $2, $3, $4)`,
	}
	SQLite = Dialect{
		Name: "sqlite",
		CreateTable: `CREATE TABLE IF NOT EXISTS grids (
			seq INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			grid TEXT
		)`,
		Insert: `INSERT INTO grids (seq, id, name, grid) VALUES (?, ?, ?, ?)`,
	}
)

const (
	selectGrids = `SELECT id, name, grid FROM grids ORDER BY seq ASC`
	deleteGrids = `DELETE FROM grids`
)

// SQLRepository stores one row per grid, ordered by position. Save rewrites
// the whole table inside a transaction so the collection is replaced as a unit.
type SQLRepository struct {
	DB      *sql.DB
	dialect Dialect
}

func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{DB: db, dialect: dialect}
}

// Migrate creates the grids table if it does not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, r.dialect.CreateTable); err != nil {
		logger.Sugar.Errorf("Failed to create grids table (%s): %v", r.dialect.Name, err)
		return fmt.Errorf("create grids table: %w", err)
	}
	return nil
}

func (r *SQLRepository) Load(ctx context.Context) ([]model.Grid, error) {
	rows, err := r.DB.QueryContext(ctx, selectGrids)
	if err != nil {
		logger.Sugar.Errorf("Failed to load grids: %v", err)
		return nil, fmt.Errorf("query grids: %w", err)
	}
	defer rows.Close()

	grids := []model.Grid{}
	for rows.Next() {
		var g model.Grid
		var payload []byte
		if err := rows.Scan(&g.ID, &g.Name, &payload); err != nil {
			logger.Sugar.Errorf("Failed to scan grid row: %v", err)
			return nil, fmt.Errorf("scan grid: %w", err)
		}
		if payload == nil {
			payload = []byte("null")
		}
		g.Grid = json.RawMessage(payload)
		grids = append(grids, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grids: %w", err)
	}
	return grids, nil
}

func (r *SQLRepository) Save(ctx context.Context, grids []model.Grid) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		logger.Sugar.Errorf("Failed to begin grids transaction: %v", err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteGrids); err != nil {
		logger.Sugar.Errorf("Failed to clear grids: %v", err)
		return fmt.Errorf("clear grids: %w", err)
	}
	for i, g := range grids {
		payload := string(g.Grid)
		if payload == "" {
			payload = "null"
		}
		if _, err := tx.ExecContext(ctx, r.dialect.Insert, i, g.ID, g.Name, payload); err != nil {
			logger.Sugar.Errorf("Failed to insert grid %s: %v", g.ID, err)
			return fmt.Errorf("insert grid %s: %w", g.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		logger.Sugar.Errorf("Failed to commit grids: %v", err)
		return fmt.Errorf("commit grids: %w", err)
	}
	return nil
}

func (r *SQLRepository) Close() error {
	return r.DB.Close()
}

func openSQL(ctx context.Context, db *sql.DB, dialect Dialect) (Repository, error) {
	repo := NewSQLRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"soundgrid/config/database"
	"soundgrid/internal/grid/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRepository(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, "sqlite3", filepath.Join(t.TempDir(), "grids.db"))
	require.NoError(t, err)

	repo, err := openSQL(ctx, db, SQLite)
	require.NoError(t, err)
	defer repo.Close()

	runRepositoryTests(t, repo)
}

func TestPostgresRepositoryMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS grids").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSQLRepository(db, Postgres)
	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, grid FROM grids ORDER BY seq").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "grid"}).
			AddRow("id-1", "A", []byte(`[[0, 1], [1, 0]]`)).
			AddRow("id-2", "B", nil))

	repo := NewSQLRepository(db, Postgres)
	grids, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, grids, 2)
	assert.Equal(t, "id-1", grids[0].ID)
	assert.JSONEq(t, `[[0,1],[1,0]]`, string(grids[0].Grid))
	assert.Equal(t, "null", string(grids[1].Grid))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryLoadError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, grid FROM grids").WillReturnError(errors.New("connection reset"))

	_, err = NewSQLRepository(db, Postgres).Load(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositorySaveReplacesRowsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM grids").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO grids \(seq, id, name, grid\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs(0, "id-1", "A", `[[0,1],[1,0]]`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grids").
		WithArgs(1, "id-2", "B", "null").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	repo := NewSQLRepository(db, Postgres)
	err = repo.Save(context.Background(), []model.Grid{
		{ID: "id-1", Name: "A", Grid: json.RawMessage(`[[0,1],[1,0]]`)},
		{ID: "id-2", Name: "B"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositorySaveRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM grids").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO grids").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewSQLRepository(db, Postgres).Save(context.Background(), []model.Grid{
		{ID: "id-1", Name: "A", Grid: json.RawMessage(`[]`)},
	})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

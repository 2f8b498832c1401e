package project

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/model"
	"taskdash/internal/sqldb"
)

func reposForTests(t *testing.T) map[string]Repository {
	t.Helper()

	fileRepo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)

	db, err := sqldb.Open(context.Background(), sqldb.DriverSQLite, filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepo(),
		"file":   fileRepo,
		"sqlite": NewSQLRepo(db),
	}
}

func TestRepository_CreateListDelete(t *testing.T) {
	for name, repo := range reposForTests(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p, err := repo.Create(ctx, model.Project{Name: " New Project ", Description: "from dashboard"})
			require.NoError(t, err)
			assert.Equal(t, model.ProjectID(1), p.ID)
			assert.Equal(t, "New Project", p.Name)

			got, err := repo.Get(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, "from dashboard", got.Description)

			_, err = repo.Create(ctx, model.Project{Name: "  "})
			assert.ErrorIs(t, err, ErrInvalid)

			list, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)

			require.NoError(t, repo.Delete(ctx, p.ID))
			assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)
			_, err = repo.Get(ctx, p.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileRepo_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileRepo(dir)
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Project{Name: "P1"})
	require.NoError(t, err)

	reopened, err := NewFileRepo(dir)
	require.NoError(t, err)
	p, err := reopened.Create(ctx, model.Project{Name: "P2"})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectID(2), p.ID)
}

package task

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/model"
	"taskdash/internal/sqldb"
)

func strPtr(s string) *string { return &s }

func reposForTests(t *testing.T) map[string]Repo {
	t.Helper()

	fileRepo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)

	db, err := sqldb.Open(context.Background(), sqldb.DriverSQLite, filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Repo{
		"memory": NewMemoryRepo(),
		"file":   fileRepo,
		"sqlite": NewSQLRepo(db),
	}
}

func TestRepo_CreateGetList(t *testing.T) {
	for name, repo := range reposForTests(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t1, err := repo.Create(ctx, model.Task{Task: "  Draft agenda ", Meeting: "M1", Project: "P1"})
			require.NoError(t, err)
			assert.Equal(t, model.TaskID(1), t1.ID)
			assert.Equal(t, "Draft agenda", t1.Task)
			assert.False(t, t1.CreatedAt.IsZero())

			got, err := repo.Get(ctx, t1.ID)
			require.NoError(t, err)
			assert.Equal(t, t1.Task, got.Task)
			assert.Equal(t, "M1", got.Meeting)

			t2, err := repo.Create(ctx, model.Task{Task: "Review", Meeting: "M2", Project: "P2"})
			require.NoError(t, err)
			assert.Equal(t, model.TaskID(2), t2.ID)

			list, err := repo.List(ctx, ListFilter{})
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, t1.ID, list[0].ID)
			assert.Equal(t, t2.ID, list[1].ID)

			list, err = repo.List(ctx, ListFilter{Project: "P2"})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "Review", list[0].Task)
		})
	}
}

func TestRepo_UpdateDelete(t *testing.T) {
	for name, repo := range reposForTests(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := repo.Create(ctx, model.Task{Task: "Old", Meeting: "M1"})
			require.NoError(t, err)

			updated, err := repo.Update(ctx, created.ID, Patch{Task: strPtr("New")})
			require.NoError(t, err)
			assert.Equal(t, "New", updated.Task)
			assert.Equal(t, "M1", updated.Meeting)

			_, err = repo.Update(ctx, created.ID, Patch{Task: strPtr("   ")})
			assert.ErrorIs(t, err, ErrInvalid)

			got, err := repo.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "New", got.Task)

			require.NoError(t, repo.Delete(ctx, created.ID))
			_, err = repo.Get(ctx, created.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)

			_, err = repo.Update(ctx, 999, Patch{Task: strPtr("x")})
			assert.ErrorIs(t, err, ErrNotFound)

			list, err := repo.List(ctx, ListFilter{})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestRepo_CreateRequiresDescription(t *testing.T) {
	for name, repo := range reposForTests(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Create(context.Background(), model.Task{Meeting: "M1"})
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestFileRepo_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileRepo(dir)
	require.NoError(t, err)
	a, err := repo.Create(ctx, model.Task{Task: "A"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Task{Task: "B"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, a.ID))

	reopened, err := NewFileRepo(dir)
	require.NoError(t, err)
	list, err := reopened.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Task)

	c, err := reopened.Create(ctx, model.Task{Task: "C"})
	require.NoError(t, err)
	assert.Equal(t, model.TaskID(3), c.ID)
}

func TestPatchFromFields(t *testing.T) {
	p := PatchFromFields(model.Fields{"task_id": 4, "task": "T", "unknown": "x"})
	require.NotNil(t, p.Task)
	assert.Equal(t, "T", *p.Task)
	assert.Nil(t, p.Meeting)
	assert.Nil(t, p.Project)
	assert.False(t, p.Empty())
	assert.True(t, PatchFromFields(model.Fields{"task_id": 4}).Empty())
}

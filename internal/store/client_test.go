package store

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/dashboard"
	"taskdash/internal/model"
	"taskdash/internal/project"
	"taskdash/internal/task"
)

func newAPIServer(t *testing.T) (*Client, task.Repo) {
	t.Helper()
	tasks := task.NewMemoryRepo()
	th := task.NewHandler(tasks)
	ph := project.NewHandler(project.NewMemoryRepo())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks", th.TasksRoot)
	mux.HandleFunc("/api/tasks/", th.TasksSub)
	mux.HandleFunc("/api/projects", ph.Root)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second), tasks
}

func TestClient_TaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newAPIServer(t)

	list, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := c.CreateTask(ctx, model.Fields{"task": "Draft agenda", "meeting": "M1", "project": "P1"})
	require.NoError(t, err)
	assert.Equal(t, model.TaskID(1), created.ID)

	updated, err := c.UpdateTask(ctx, model.Fields{"task_id": int64(1), "meeting": "M2"})
	require.NoError(t, err)
	assert.Equal(t, "M2", updated.Meeting)
	assert.Equal(t, "Draft agenda", updated.Task)

	require.NoError(t, c.DeleteTask(ctx, 1))
	list, err = c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClient_StatusErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := newAPIServer(t)

	err := c.DeleteTask(ctx, 9)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "task not found", se.Message)

	_, err = c.CreateTask(ctx, model.Fields{"meeting": "M1"})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)

	_, err = c.UpdateTask(ctx, model.Fields{"task": "no id"})
	assert.Error(t, err)
}

func TestClient_Projects(t *testing.T) {
	ctx := context.Background()
	c, _ := newAPIServer(t)

	p, err := c.CreateProject(ctx, model.Fields{"name": "New Project", "description": "d"})
	require.NoError(t, err)
	assert.Equal(t, "New Project", p.Name)

	ps, err := c.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
}

func TestClient_ChangesURL(t *testing.T) {
	u, err := NewClient("http://localhost:8080", 0).ChangesURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/changes", u)

	u, err = NewClient("https://tasks.example.com/", 0).ChangesURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://tasks.example.com/api/changes", u)
}

func TestClient_DrivesController(t *testing.T) {
	ctx := context.Background()
	c, tasks := newAPIServer(t)
	_, err := tasks.Create(ctx, model.Task{Task: "Draft agenda", Meeting: "M1", Project: "P1"})
	require.NoError(t, err)

	ctrl := dashboard.NewController(c, dashboard.Options{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, ctrl.Refresh(ctx))
	row, ok := ctrl.Find(1)
	require.True(t, ok)

	ctrl.Delete(row)
	require.NoError(t, ctrl.ConfirmDelete(ctx))
	assert.Equal(t, dashboard.ModeIdle, ctrl.State().Mode)
	assert.Empty(t, ctrl.Tasks())
}

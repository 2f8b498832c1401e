package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/dashboard"
	"taskdash/internal/live"
	"taskdash/internal/model"
	"taskdash/internal/project"
	"taskdash/internal/task"
)

var (
	_ dashboard.TaskStore = (*Local)(nil)
	_ dashboard.TaskStore = (*Client)(nil)
)

type recorder struct {
	mu     sync.Mutex
	events []live.Event
}

func (r *recorder) Publish(ev live.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Entity+":"+ev.Op)
	}
	return out
}

func TestLocal_WritesPublishChanges(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s := NewLocal(task.NewMemoryRepo(), project.NewMemoryRepo(), rec)

	created, err := s.CreateTask(ctx, model.Fields{"task": "Draft agenda", "meeting": "M1", "project": "P1"})
	require.NoError(t, err)
	assert.Equal(t, model.TaskID(1), created.ID)

	updated, err := s.UpdateTask(ctx, model.Fields{"task_id": "1", "task": "Draft agenda v2"})
	require.NoError(t, err)
	assert.Equal(t, "Draft agenda v2", updated.Task)
	assert.Equal(t, "M1", updated.Meeting)

	p, err := s.CreateProject(ctx, model.Fields{"name": "New Project"})
	require.NoError(t, err)
	assert.Equal(t, "New Project", p.Name)

	require.NoError(t, s.DeleteTask(ctx, 1))
	list, err := s.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, []string{"task:created", "task:updated", "project:created", "task:deleted"}, rec.ops())
}

func TestLocal_ErrorsDoNotPublish(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s := NewLocal(task.NewMemoryRepo(), project.NewMemoryRepo(), rec)

	_, err := s.UpdateTask(ctx, model.Fields{"task": "no id"})
	assert.ErrorIs(t, err, task.ErrInvalid)

	err = s.DeleteTask(ctx, 42)
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = s.CreateProject(ctx, model.Fields{"description": "no name"})
	assert.ErrorIs(t, err, project.ErrInvalid)

	assert.Empty(t, rec.ops())
}

func TestLocal_NilPublisher(t *testing.T) {
	s := NewLocal(task.NewMemoryRepo(), project.NewMemoryRepo(), nil)
	_, err := s.CreateTask(context.Background(), model.Fields{"task": "x"})
	assert.NoError(t, err)
}

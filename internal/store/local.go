// Package store provides the TaskStore implementations the dashboard
// writes through: Local for the server's own repositories and Client for
// a remote taskdash API.
package store

import (
	"context"
	"fmt"

	"taskdash/internal/live"
	"taskdash/internal/model"
	"taskdash/internal/project"
	"taskdash/internal/task"
)

// Publisher receives a change event after every successful write.
type Publisher interface {
	Publish(ev live.Event)
}

type Local struct {
	tasks    task.Repo
	projects project.Repository
	pub      Publisher
}

// NewLocal wraps the repositories. pub may be nil.
func NewLocal(tasks task.Repo, projects project.Repository, pub Publisher) *Local {
	return &Local{tasks: tasks, projects: projects, pub: pub}
}

func (s *Local) publish(entity, op string, id int64) {
	if s.pub != nil {
		s.pub.Publish(live.NewEvent(entity, op, id))
	}
}

func (s *Local) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.tasks.List(ctx, task.ListFilter{})
}

func (s *Local) CreateTask(ctx context.Context, fields model.Fields) (model.Task, error) {
	t, err := s.tasks.Create(ctx, task.FromFields(fields))
	if err != nil {
		return model.Task{}, err
	}
	s.publish("task", task.OpCreated, int64(t.ID))
	return t, nil
}

// UpdateTask applies the fields present in the payload to the task named
// by its task_id.
func (s *Local) UpdateTask(ctx context.Context, fields model.Fields) (model.Task, error) {
	id, ok := fields.TaskID()
	if !ok {
		return model.Task{}, fmt.Errorf("%w: task_id is required", task.ErrInvalid)
	}
	t, err := s.tasks.Update(ctx, id, task.PatchFromFields(fields))
	if err != nil {
		return model.Task{}, err
	}
	s.publish("task", task.OpUpdated, int64(t.ID))
	return t, nil
}

func (s *Local) DeleteTask(ctx context.Context, id model.TaskID) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.publish("task", task.OpDeleted, int64(id))
	return nil
}

func (s *Local) CreateProject(ctx context.Context, fields model.Fields) (model.Project, error) {
	p, err := s.projects.Create(ctx, model.ProjectFromFields(fields))
	if err != nil {
		return model.Project{}, err
	}
	s.publish("project", task.OpCreated, int64(p.ID))
	return p, nil
}

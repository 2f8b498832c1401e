package task

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"taskdash/internal/model"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrInvalid  = errors.New("task description is required")
)

// Patch represents a partial update.
// nil pointer => "no change"
type Patch struct {
	Task    *string `json:"task,omitempty"`
	Meeting *string `json:"meeting,omitempty"`
	Project *string `json:"project,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Task == nil && p.Meeting == nil && p.Project == nil
}

// PatchFromFields picks the editable columns out of a form payload.
// Unknown keys are ignored.
func PatchFromFields(f model.Fields) Patch {
	var p Patch
	if v, ok := f.String(model.FieldTask); ok {
		p.Task = &v
	}
	if v, ok := f.String(model.FieldMeeting); ok {
		p.Meeting = &v
	}
	if v, ok := f.String(model.FieldProject); ok {
		p.Project = &v
	}
	return p
}

// FromFields builds a new row from a form payload.
func FromFields(f model.Fields) model.Task {
	var t model.Task
	applyPatch(&t, PatchFromFields(f))
	return t
}

type ListFilter struct {
	// Project / Meeting: "" = any, otherwise exact match.
	Project string
	Meeting string
}

type Repo interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id model.TaskID) (model.Task, error)
	Update(ctx context.Context, id model.TaskID, patch Patch) (model.Task, error)
	Delete(ctx context.Context, id model.TaskID) error
	List(ctx context.Context, filter ListFilter) ([]model.Task, error)
}

func normalizeTask(t *model.Task) {
	t.Task = strings.TrimSpace(t.Task)
	t.Meeting = strings.TrimSpace(t.Meeting)
	t.Project = strings.TrimSpace(t.Project)
}

func validateTask(t model.Task) error {
	if t.Task == "" {
		return ErrInvalid
	}
	return nil
}

func applyPatch(t *model.Task, p Patch) {
	if p.Task != nil {
		t.Task = *p.Task
	}
	if p.Meeting != nil {
		t.Meeting = *p.Meeting
	}
	if p.Project != nil {
		t.Project = *p.Project
	}
	normalizeTask(t)
}

func (f ListFilter) matches(t model.Task) bool {
	if p := strings.TrimSpace(f.Project); p != "" && t.Project != p {
		return false
	}
	if m := strings.TrimSpace(f.Meeting); m != "" && t.Meeting != m {
		return false
	}
	return true
}

// sortTasks orders rows by id so the table is stable across refreshes.
func sortTasks(ts []model.Task) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
}

type MemoryRepo struct {
	mu     sync.RWMutex
	tasks  map[model.TaskID]model.Task
	nextID model.TaskID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: map[model.TaskID]model.Task{}}
}

func (r *MemoryRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	_ = ctx
	normalizeTask(&t)
	if err := validateTask(t); err != nil {
		return model.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	t.ID = r.nextID
	t.CreatedAt = now
	t.UpdatedAt = now

	r.tasks[t.ID] = t
	return t, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id model.TaskID) (model.Task, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id model.TaskID, p Patch) (model.Task, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	applyPatch(&t, p)
	if err := validateTask(t); err != nil {
		return model.Task{}, err
	}
	t.UpdatedAt = time.Now().UTC()

	r.tasks[id] = t
	return t, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id model.TaskID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]model.Task, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if filter.matches(t) {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out, nil
}

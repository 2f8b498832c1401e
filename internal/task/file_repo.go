package task

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"taskdash/internal/model"
)

type fileState struct {
	NextID model.TaskID          `json:"nextId"`
	Tasks  map[string]model.Task `json:"tasks"`
}

func newFileState() fileState {
	return fileState{Tasks: map[string]model.Task{}}
}

func fileKey(id model.TaskID) string {
	return strconv.FormatInt(int64(id), 10)
}

// FileRepo is a persistent task repository backed by one JSON document.
// Every write rewrites the document.
type FileRepo struct {
	mu   sync.RWMutex
	path string
	s    fileState
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &FileRepo{
		path: filepath.Join(dataDir, "tasks.json"),
		s:    newFileState(),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepo) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.s = newFileState()
			return nil
		}
		return err
	}

	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Tasks == nil {
		loaded.Tasks = map[string]model.Task{}
	}
	for _, t := range loaded.Tasks {
		if t.ID > loaded.NextID {
			loaded.NextID = t.ID
		}
	}
	r.s = loaded
	return nil
}

func (r *FileRepo) saveLocked() error {
	b, err := json.MarshalIndent(r.s, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *FileRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	_ = ctx
	normalizeTask(&t)
	if err := validateTask(t); err != nil {
		return model.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	r.s.NextID++
	t.ID = r.s.NextID
	t.CreatedAt = now
	t.UpdatedAt = now

	r.s.Tasks[fileKey(t.ID)] = t
	if err := r.saveLocked(); err != nil {
		delete(r.s.Tasks, fileKey(t.ID))
		return model.Task{}, err
	}
	return t, nil
}

func (r *FileRepo) Get(ctx context.Context, id model.TaskID) (model.Task, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.s.Tasks[fileKey(id)]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

func (r *FileRepo) Update(ctx context.Context, id model.TaskID, p Patch) (model.Task, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.s.Tasks[fileKey(id)]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	t := prev
	applyPatch(&t, p)
	if err := validateTask(t); err != nil {
		return model.Task{}, err
	}
	t.UpdatedAt = time.Now().UTC()

	r.s.Tasks[fileKey(id)] = t
	if err := r.saveLocked(); err != nil {
		r.s.Tasks[fileKey(id)] = prev
		return model.Task{}, err
	}
	return t, nil
}

func (r *FileRepo) Delete(ctx context.Context, id model.TaskID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.s.Tasks[fileKey(id)]
	if !ok {
		return ErrNotFound
	}
	delete(r.s.Tasks, fileKey(id))
	if err := r.saveLocked(); err != nil {
		r.s.Tasks[fileKey(id)] = prev
		return err
	}
	return nil
}

func (r *FileRepo) List(ctx context.Context, filter ListFilter) ([]model.Task, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Task, 0, len(r.s.Tasks))
	for _, t := range r.s.Tasks {
		if filter.matches(t) {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out, nil
}

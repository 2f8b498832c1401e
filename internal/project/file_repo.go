package project

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"taskdash/internal/model"
)

type fileState struct {
	NextID   model.ProjectID `json:"nextId"`
	Projects []model.Project `json:"projects"`
}

// FileRepo keeps projects in data/projects.json.
type FileRepo struct {
	mu   sync.RWMutex
	path string
	s    fileState
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &FileRepo{path: filepath.Join(dataDir, "projects.json")}

	b, err := os.ReadFile(r.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &r.s); err != nil {
			return nil, err
		}
	}
	for _, p := range r.s.Projects {
		if p.ID > r.s.NextID {
			r.s.NextID = p.ID
		}
	}
	return r, nil
}

func (r *FileRepo) saveLocked() error {
	b, err := json.MarshalIndent(r.s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, b, 0o644)
}

func (r *FileRepo) Create(ctx context.Context, p model.Project) (model.Project, error) {
	_ = ctx
	if err := normalize(&p); err != nil {
		return model.Project{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	r.s.NextID++
	p.ID = r.s.NextID
	p.CreatedAt = now
	p.UpdatedAt = now
	r.s.Projects = append(r.s.Projects, p)
	if err := r.saveLocked(); err != nil {
		r.s.Projects = r.s.Projects[:len(r.s.Projects)-1]
		return model.Project{}, err
	}
	return p, nil
}

func (r *FileRepo) Get(ctx context.Context, id model.ProjectID) (model.Project, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.s.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Project{}, ErrNotFound
}

func (r *FileRepo) List(ctx context.Context) ([]model.Project, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]model.Project{}, r.s.Projects...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FileRepo) Delete(ctx context.Context, id model.ProjectID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.s.Projects {
		if p.ID != id {
			continue
		}
		prev := append([]model.Project{}, r.s.Projects...)
		r.s.Projects = append(r.s.Projects[:i], r.s.Projects[i+1:]...)
		if err := r.saveLocked(); err != nil {
			r.s.Projects = prev
			return err
		}
		return nil
	}
	return ErrNotFound
}

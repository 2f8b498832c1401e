package project

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskdash/internal/model"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	m      map[model.ProjectID]model.Project
	nextID model.ProjectID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		m: make(map[model.ProjectID]model.Project),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, p model.Project) (model.Project, error) {
	_ = ctx
	if err := normalize(&p); err != nil {
		return model.Project{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	r.m[p.ID] = p
	return p, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id model.ProjectID) (model.Project, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.m[id]
	if !ok {
		return model.Project{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]model.Project, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := make([]model.Project, 0, len(r.m))
	for _, p := range r.m {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id model.ProjectID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.m[id]; !ok {
		return ErrNotFound
	}
	delete(r.m, id)
	return nil
}

package project

import (
	"context"
	"errors"
	"strings"

	"taskdash/internal/model"
)

var (
	ErrNotFound = errors.New("project not found")
	ErrInvalid  = errors.New("project name is required")
)

type Repository interface {
	Create(ctx context.Context, p model.Project) (model.Project, error)
	Get(ctx context.Context, id model.ProjectID) (model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	Delete(ctx context.Context, id model.ProjectID) error
}

func normalize(p *model.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Name == "" {
		return ErrInvalid
	}
	return nil
}

// Package project manages projects scoped to their owning user.
package project

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
	"taskhub/internal/service/validate"
	"taskhub/pkg/logger"
	"taskhub/pkg/metrics"
)

const resourceName = "project"

type Service struct {
	projects repository.ProjectStore
	logger   *zap.Logger
}

func NewService(projects repository.ProjectStore, logger *zap.Logger) *Service {
	return &Service{projects: projects, logger: logger}
}

type CreateInput struct {
	Name        string  `json:"name" validate:"required,notblank,max=255"`
	Description *string `json:"description"`
}

// UpdateInput is a partial update. Absent fields are left unchanged; a
// null description clears it.
type UpdateInput struct {
	Name        *string                `json:"name" validate:"omitempty,notblank,max=255"`
	Description model.Nullable[string] `json:"description"`
}

// List returns the principal's projects, newest first.
func (s *Service) List(ctx context.Context, principal *model.User) ([]model.Project, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	return s.projects.ListByUser(ctx, principal.ID)
}

func (s *Service) Create(ctx context.Context, principal *model.User, in CreateInput) (*model.Project, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	p := &model.Project{
		UserID:      principal.ID,
		Name:        in.Name,
		Description: emptyToNil(in.Description),
	}
	if err := s.projects.Insert(ctx, p); err != nil {
		return nil, err
	}

	metrics.IncrementResourceMutation(resourceName, "create")
	logger.WithTrace(ctx, s.logger).Info("Project created",
		zap.Int64("project_id", p.ID),
		zap.Int64("user_id", principal.ID),
	)
	return p, nil
}

func (s *Service) Get(ctx context.Context, principal *model.User, id int64) (*model.Project, error) {
	return s.load(ctx, principal, id, "view")
}

func (s *Service) Update(ctx context.Context, principal *model.User, id int64, in UpdateInput) (*model.Project, error) {
	p, err := s.load(ctx, principal, id, "update")
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description.Set {
		p.Description = emptyToNil(in.Description.Ptr())
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, notFound(err)
	}

	metrics.IncrementResourceMutation(resourceName, "update")
	return p, nil
}

// Delete removes the project. Its tasks are kept and lose their project.
func (s *Service) Delete(ctx context.Context, principal *model.User, id int64) error {
	p, err := s.load(ctx, principal, id, "delete")
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, p); err != nil {
		return notFound(err)
	}

	metrics.IncrementResourceMutation(resourceName, "delete")
	logger.WithTrace(ctx, s.logger).Info("Project deleted",
		zap.Int64("project_id", p.ID),
		zap.Int64("user_id", principal.ID),
	)
	return nil
}

// load fetches the project and runs the ownership guard. A missing row is
// reported before ownership is considered.
func (s *Service) load(ctx context.Context, principal *model.User, id int64, action string) (*model.Project, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := policy.Authorize(principal, p, action, resourceName); err != nil {
		return nil, err
	}
	return p, nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Project not found.")
	}
	return err
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

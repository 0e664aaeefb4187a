// Package task manages tasks scoped to their owning user and optionally
// grouped under one of the user's projects.
package task

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
	"taskhub/internal/service/validate"
	"taskhub/pkg/logger"
	"taskhub/pkg/metrics"
)

const resourceName = "task"

const msgInvalidProject = "The selected project_id is invalid."

type Options struct {
	// EnforceProjectOwnership requires project_id to name a project of the
	// caller. When false only existence is checked.
	EnforceProjectOwnership bool
}

type Service struct {
	tasks    repository.TaskStore
	projects repository.ProjectStore
	opts     Options
	logger   *zap.Logger
}

func NewService(tasks repository.TaskStore, projects repository.ProjectStore, opts Options, logger *zap.Logger) *Service {
	return &Service{
		tasks:    tasks,
		projects: projects,
		opts:     opts,
		logger:   logger,
	}
}

type CreateInput struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"required,oneof=pending in_progress completed"`
	Priority    string  `json:"priority" validate:"required,oneof=low medium high"`
	DueDate     *string `json:"due_date" validate:"omitempty,date"`
	ProjectID   *int64  `json:"project_id"`
}

// UpdateInput is a partial update. Absent fields are left unchanged; null
// clears description, due_date and project_id.
type UpdateInput struct {
	Title       *string                `json:"title" validate:"omitempty,notblank,max=255"`
	Description model.Nullable[string] `json:"description"`
	Status      *string                `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    *string                `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     model.Nullable[string] `json:"due_date" validate:"omitempty,date"`
	ProjectID   model.Nullable[int64]  `json:"project_id"`
}

// List returns the principal's tasks, newest first, narrowed by filter.
func (s *Service) List(ctx context.Context, principal *model.User, filter model.TaskFilter) ([]model.Task, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	filter.Status = strings.TrimSpace(filter.Status)
	filter.Priority = strings.TrimSpace(filter.Priority)
	return s.tasks.ListByUser(ctx, principal.ID, filter)
}

func (s *Service) Create(ctx context.Context, principal *model.User, in CreateInput) (*model.Task, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.ProjectID != nil {
		if err := s.checkProject(ctx, principal, *in.ProjectID); err != nil {
			return nil, err
		}
	}

	t := &model.Task{
		UserID:      principal.ID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: emptyToNil(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
	}
	if in.DueDate != nil {
		due, err := parseDueDate(*in.DueDate)
		if err != nil {
			return nil, err
		}
		t.DueDate = &due
	}
	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, err
	}

	metrics.IncrementResourceMutation(resourceName, "create")
	logger.WithTrace(ctx, s.logger).Info("Task created",
		zap.Int64("task_id", t.ID),
		zap.Int64("user_id", principal.ID),
	)
	return t, nil
}

func (s *Service) Get(ctx context.Context, principal *model.User, id int64) (*model.Task, error) {
	return s.load(ctx, principal, id, "view")
}

// Update applies the fields present in in. Status may move between any two
// values; there is no workflow.
func (s *Service) Update(ctx context.Context, principal *model.User, id int64, in UpdateInput) (*model.Task, error) {
	t, err := s.load(ctx, principal, id, "update")
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	var due *time.Time
	if in.DueDate.Valid {
		parsed, err := parseDueDate(in.DueDate.Value)
		if err != nil {
			return nil, err
		}
		due = &parsed
	}
	if in.ProjectID.Valid {
		if err := s.checkProject(ctx, principal, in.ProjectID.Value); err != nil {
			return nil, err
		}
	}

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description.Set {
		t.Description = emptyToNil(in.Description.Ptr())
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate.Set {
		t.DueDate = due
	}
	if in.ProjectID.Set {
		t.ProjectID = in.ProjectID.Ptr()
	}

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, notFound(err)
	}

	metrics.IncrementResourceMutation(resourceName, "update")
	return t, nil
}

func (s *Service) Delete(ctx context.Context, principal *model.User, id int64) error {
	t, err := s.load(ctx, principal, id, "delete")
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, t); err != nil {
		return notFound(err)
	}

	metrics.IncrementResourceMutation(resourceName, "delete")
	logger.WithTrace(ctx, s.logger).Info("Task deleted",
		zap.Int64("task_id", t.ID),
		zap.Int64("user_id", principal.ID),
	)
	return nil
}

func (s *Service) load(ctx context.Context, principal *model.User, id int64, action string) (*model.Task, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	t, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := policy.Authorize(principal, t, action, resourceName); err != nil {
		return nil, err
	}
	return t, nil
}

// parseDueDate rejects values the date rule lets through, such as an empty
// string, which omitempty skips.
func parseDueDate(s string) (time.Time, error) {
	due, err := validate.ParseDate(s)
	if err != nil {
		return time.Time{}, apperr.FieldInvalid("due_date", "The due_date field must be a valid date.")
	}
	return due, nil
}

// checkProject validates a project_id reference. A foreign project gets the
// same answer as a missing one so ids of other users are not disclosed.
func (s *Service) checkProject(ctx context.Context, principal *model.User, projectID int64) error {
	p, err := s.projects.FindByID(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.FieldInvalid("project_id", msgInvalidProject)
	}
	if err != nil {
		return err
	}
	if s.opts.EnforceProjectOwnership && !policy.CanAccess(p, principal) {
		logger.WithTrace(ctx, s.logger).Warn("Rejected foreign project reference",
			zap.Int64("project_id", projectID),
			zap.Int64("user_id", principal.ID),
		)
		return apperr.FieldInvalid("project_id", msgInvalidProject)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Task not found.")
	}
	return err
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contracts "taskhub/contracts/mq"
	"taskhub/internal/model"
	"taskhub/pkg/outbox"
	"taskhub/pkg/trace"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	events *outbox.Repository
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, events *outbox.Repository, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		events: events,
		logger: logger,
	}
}

func projectEvent(ctx context.Context, p *model.Project) contracts.ProjectPayload {
	return contracts.ProjectPayload{
		ProjectID:  p.ID,
		UserID:     p.UserID,
		Name:       p.Name,
		OccurredAt: time.Now().UTC(),
		TraceID:    trace.FromContext(ctx),
	}
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Inserting project",
		zap.Int64("user_id", p.UserID),
		zap.String("name", p.Name),
	)

	query := `
        INSERT INTO projects (user_id, name, description)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at
    `
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, p.UserID, p.Name, p.Description).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		return recordEvent(ctx, tx, r.events, contracts.AggregateProject, p.ID, contracts.RoutingProjectCreated, projectEvent(ctx, p))
	})
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return err
	}

	r.logger.Info("Project inserted successfully",
		zap.Int64("id", p.ID),
		zap.Int64("user_id", p.UserID),
	)
	return nil
}

const projectColumns = `id, user_id, name, description, created_at, updated_at`

func scanProject(row pgx.Row, p *model.Project) error {
	return row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProjectRepository) ListByUser(ctx context.Context, userID int64) ([]model.Project, error) {
	query := `
        SELECT ` + projectColumns + `
        FROM projects
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query projects", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	var p model.Project
	if err := scanProject(r.db.QueryRow(ctx, query, id), &p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Update writes the mutable columns of p. Ownership never changes.
func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	query := `
        UPDATE projects
        SET name = $1, description = $2, updated_at = NOW()
        WHERE id = $3
        RETURNING updated_at
    `
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, p.Name, p.Description, p.ID).Scan(&p.UpdatedAt); err != nil {
			return notFound(err)
		}
		return recordEvent(ctx, tx, r.events, contracts.AggregateProject, p.ID, contracts.RoutingProjectUpdated, projectEvent(ctx, p))
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("Failed to update project", zap.Int64("id", p.ID), zap.Error(err))
	}
	return err
}

// Delete removes the project. Its tasks keep existing with project_id NULL.
func (r *ProjectRepository) Delete(ctx context.Context, p *model.Project) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, p.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return recordEvent(ctx, tx, r.events, contracts.AggregateProject, p.ID, contracts.RoutingProjectDeleted, projectEvent(ctx, p))
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("Failed to delete project", zap.Int64("id", p.ID), zap.Error(err))
	}
	return err
}

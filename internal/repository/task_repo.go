package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contracts "taskhub/contracts/mq"
	"taskhub/internal/model"
	"taskhub/pkg/outbox"
	"taskhub/pkg/trace"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	events *outbox.Repository
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, events *outbox.Repository, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, events: events, logger: logger}
}

func taskEvent(ctx context.Context, t *model.Task) contracts.TaskPayload {
	return contracts.TaskPayload{
		TaskID:     t.ID,
		UserID:     t.UserID,
		ProjectID:  t.ProjectID,
		Title:      t.Title,
		Status:     t.Status,
		Priority:   t.Priority,
		DueDate:    t.DueDate,
		OccurredAt: time.Now().UTC(),
		TraceID:    trace.FromContext(ctx),
	}
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.Int64("user_id", t.UserID),
		zap.String("status", t.Status),
		zap.String("priority", t.Priority),
	)
	query := `
        INSERT INTO tasks (user_id, project_id, title, description, status, priority, due_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			t.UserID,
			t.ProjectID,
			t.Title,
			t.Description,
			t.Status,
			t.Priority,
			t.DueDate,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return err
		}
		return recordEvent(ctx, tx, r.events, contracts.AggregateTask, t.ID, contracts.RoutingTaskCreated, taskEvent(ctx, t))
	})
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int64("user_id", t.UserID),
		)
		return err
	}
	r.logger.Info("Task inserted successfully",
		zap.Int64("task_id", t.ID),
		zap.Int64("user_id", t.UserID),
	)
	return nil
}

const taskColumns = `id, user_id, project_id, title, description, status, priority, due_date, created_at, updated_at`

func scanTask(row pgx.Row, t *model.Task) error {
	return row.Scan(
		&t.ID,
		&t.UserID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// ListByUser returns the user's tasks, newest first. Empty filter fields are
// not applied.
func (r *TaskRepository) ListByUser(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := scanTask(rows, &t); err != nil {
			r.logger.Error("Failed to scan task row",
				zap.Error(err),
				zap.Int64("user_id", userID),
			)
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	var t model.Task
	if err := scanTask(r.db.QueryRow(ctx, query, id), &t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Update writes the mutable columns of t. Ownership never changes.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task) error {
	query := `
        UPDATE tasks
        SET project_id = $1, title = $2, description = $3, status = $4,
            priority = $5, due_date = $6, updated_at = NOW()
        WHERE id = $7
        RETURNING updated_at
    `
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			t.ProjectID,
			t.Title,
			t.Description,
			t.Status,
			t.Priority,
			t.DueDate,
			t.ID,
		).Scan(&t.UpdatedAt)
		if err != nil {
			return notFound(err)
		}
		return recordEvent(ctx, tx, r.events, contracts.AggregateTask, t.ID, contracts.RoutingTaskUpdated, taskEvent(ctx, t))
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("Failed to update task", zap.Int64("task_id", t.ID), zap.Error(err))
	}
	return err
}

func (r *TaskRepository) Delete(ctx context.Context, t *model.Task) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, t.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return recordEvent(ctx, tx, r.events, contracts.AggregateTask, t.ID, contracts.RoutingTaskDeleted, taskEvent(ctx, t))
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("Failed to delete task", zap.Int64("task_id", t.ID), zap.Error(err))
	}
	return err
}

package repository

import (
	"context"
	"errors"
	"time"

	"taskhub/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the users.email unique index rejects
	// an insert.
	ErrDuplicateEmail = errors.New("email already exists")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

type TokenStore interface {
	Insert(ctx context.Context, t *model.AccessToken) error
	FindByID(ctx context.Context, id string) (*model.AccessToken, error)
	// Delete removes the token; deleting a missing token is not an error.
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ProjectStore interface {
	Insert(ctx context.Context, p *model.Project) error
	ListByUser(ctx context.Context, userID int64) ([]model.Project, error)
	FindByID(ctx context.Context, id int64) (*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, p *model.Project) error
}

type TaskStore interface {
	Insert(ctx context.Context, t *model.Task) error
	ListByUser(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error)
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, t *model.Task) error
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contracts "taskhub/contracts/mq"
	"taskhub/internal/model"
	"taskhub/pkg/outbox"
	"taskhub/pkg/trace"
)

type UserRepository struct {
	db     *pgxpool.Pool
	events *outbox.Repository
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, events *outbox.Repository, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, events: events, logger: logger}
}

// CreateUser inserts a new user. A concurrent registration of the same email
// surfaces as ErrDuplicateEmail from the unique index.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (name, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash, u.Role).
			Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		return recordEvent(ctx, tx, r.events, contracts.AggregateUser, u.ID, contracts.RoutingUserRegistered,
			contracts.UserRegisteredPayload{
				UserID:     u.ID,
				Email:      u.Email,
				Role:       u.Role,
				OccurredAt: time.Now().UTC(),
				TraceID:    trace.FromContext(ctx),
			})
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		r.logger.Error("Failed to insert user", zap.Error(err))
		return err
	}

	r.logger.Info("User inserted successfully", zap.Int64("user_id", u.ID))
	return nil
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindByEmail returns user by email, compared case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindByID returns user by id.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

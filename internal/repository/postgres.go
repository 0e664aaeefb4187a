package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"taskhub/pkg/outbox"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// notFound maps pgx.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// recordEvent writes a domain event into the outbox inside tx. A nil events
// repository means publishing is disabled.
func recordEvent(ctx context.Context, tx pgx.Tx, events *outbox.Repository, aggregateType string, id int64, routingKey string, payload any) error {
	if events == nil {
		return nil
	}
	event, err := outbox.NewEvent(aggregateType, id, routingKey, payload)
	if err != nil {
		return err
	}
	return events.InsertEvent(ctx, tx, event)
}

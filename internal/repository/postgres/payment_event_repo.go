// internal/repository/postgres/payment_event_repo.go
package postgres

import (
	"context"
	"fmt"

	"fanclash-service/internal/domain/notification"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentEventRepository persists the rows the main backend's notification
// fan-out consumes. This service only produces events.
type PaymentEventRepository struct {
	db *pgxpool.Pool
}

func NewPaymentEventRepository(db *pgxpool.Pool) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Insert(ctx context.Context, ev *notification.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (transaction_id, user_id, title, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		ev.TransactionID, ev.UserID, ev.Title, ev.Message,
	).Scan(&ev.ID, &ev.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert payment event: %w", err)
	}

	return nil
}

// ListByTransaction returns events for one transaction, oldest first.
func (r *PaymentEventRepository) ListByTransaction(ctx context.Context, transactionID int64) ([]notification.PaymentEvent, error) {
	query := `
		SELECT id, transaction_id, user_id, title, message, created_at
		FROM payment_events
		WHERE transaction_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	defer rows.Close()

	var events []notification.PaymentEvent
	for rows.Next() {
		var ev notification.PaymentEvent
		if err := rows.Scan(&ev.ID, &ev.TransactionID, &ev.UserID, &ev.Title, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

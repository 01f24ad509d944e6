// internal/repository/postgres/payment_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fanclash-service/internal/domain/payment"
	xerrors "fanclash-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const transactionColumns = `
	id, payment_reference, transaction_type,
	user_id, phone_number, amount,
	merchant_request_id, checkout_request_id,
	response_code, response_description, customer_message,
	status, result_code, result_desc, mpesa_receipt,
	account_reference, created_at, updated_at, completed_at
`

// Insert creates a transaction record. Uniqueness of checkout_request_id is
// enforced by the schema; the gateway never reuses correlation ids within a
// shortcode.
func (r *PaymentRepository) Insert(ctx context.Context, t *payment.Transaction) error {
	query := `
		INSERT INTO payment_transactions (
			payment_reference, transaction_type,
			user_id, phone_number, amount,
			merchant_request_id, checkout_request_id,
			response_code, response_description, customer_message,
			status, account_reference
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		t.PaymentReference, t.TransactionType,
		t.UserID, t.PhoneNumber, t.Amount,
		t.MerchantRequestID, t.CheckoutRequestID,
		t.ResponseCode, t.ResponseDescription, t.CustomerMessage,
		t.Status, t.AccountReference,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// FindByCheckoutID retrieves a transaction by its CheckoutRequestID.
func (r *PaymentRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*payment.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_transactions WHERE checkout_request_id = $1`, transactionColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, checkoutID))
}

// FindByMerchantID retrieves a transaction by its MerchantRequestID.
func (r *PaymentRepository) FindByMerchantID(ctx context.Context, merchantID string) (*payment.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_transactions WHERE merchant_request_id = $1`, transactionColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, merchantID))
}

// FindByBothIDs matches on both correlation identifiers together. Matching
// a single id could pair a callback with an unrelated attempt that happens
// to share one identifier.
func (r *PaymentRepository) FindByBothIDs(ctx context.Context, checkoutID, merchantID string) (*payment.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_transactions
		WHERE checkout_request_id = $1 AND merchant_request_id = $2
	`, transactionColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, checkoutID, merchantID))
}

// FindByEitherID builds a filter from whichever identifiers are present.
func (r *PaymentRepository) FindByEitherID(ctx context.Context, checkoutID, merchantID string) (*payment.Transaction, error) {
	switch {
	case checkoutID != "" && merchantID != "":
		return r.FindByBothIDs(ctx, checkoutID, merchantID)
	case checkoutID != "":
		return r.FindByCheckoutID(ctx, checkoutID)
	case merchantID != "":
		return r.FindByMerchantID(ctx, merchantID)
	default:
		return nil, xerrors.ErrInvalidInput
	}
}

// UpdateStatus transitions a transaction out of pending. The filter matches
// both correlation ids and requires the row to still be pending, which makes
// duplicate callback deliveries no-ops. Reports whether a row was updated.
func (r *PaymentRepository) UpdateStatus(
	ctx context.Context,
	checkoutID, merchantID string,
	status payment.TransactionStatus,
	resultCode *int32,
	resultDesc, mpesaReceipt *string,
) (bool, error) {
	query := `
		UPDATE payment_transactions
		SET status = $3,
		    result_code = $4,
		    result_desc = $5,
		    mpesa_receipt = COALESCE($6, mpesa_receipt),
		    updated_at = NOW(),
		    completed_at = CASE WHEN $7 THEN NOW() ELSE completed_at END
		WHERE checkout_request_id = $1
		  AND merchant_request_id = $2
		  AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query,
		checkoutID, merchantID,
		status, resultCode, resultDesc, mpesaReceipt,
		status.IsTerminal(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// List retrieves transactions newest first.
func (r *PaymentRepository) List(ctx context.Context, limit, offset int) ([]payment.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, transactionColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []payment.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}

	return transactions, rows.Err()
}

// Stats aggregates per-status counts and completed volume.
func (r *PaymentRepository) Stats(ctx context.Context) (*payment.TransactionStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0)
		FROM payment_transactions
	`

	var stats payment.TransactionStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalTransactions,
		&stats.PendingTransactions,
		&stats.CompletedTransactions,
		&stats.FailedTransactions,
		&stats.ExpiredTransactions,
		&stats.CompletedAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transaction stats: %w", err)
	}

	if stats.TotalTransactions > 0 {
		stats.SuccessRate = float64(stats.CompletedTransactions) / float64(stats.TotalTransactions) * 100
	}

	return &stats, nil
}

// FindStalePending returns pending transactions older than the cutoff, for
// the expiry sweep.
func (r *PaymentRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]payment.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_transactions
		WHERE status = 'pending' AND created_at < NOW() - $1::interval
		ORDER BY created_at
		LIMIT $2
	`, transactionColumns)

	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending transactions: %w", err)
	}
	defer rows.Close()

	var transactions []payment.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}

	return transactions, rows.Err()
}

func (r *PaymentRepository) scanOne(row pgx.Row) (*payment.Transaction, error) {
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTransaction(row pgx.Row) (*payment.Transaction, error) {
	var t payment.Transaction
	err := row.Scan(
		&t.ID, &t.PaymentReference, &t.TransactionType,
		&t.UserID, &t.PhoneNumber, &t.Amount,
		&t.MerchantRequestID, &t.CheckoutRequestID,
		&t.ResponseCode, &t.ResponseDescription, &t.CustomerMessage,
		&t.Status, &t.ResultCode, &t.ResultDesc, &t.MpesaReceipt,
		&t.AccountReference, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

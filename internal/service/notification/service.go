// internal/service/notification/service.go
package notification

import (
	"context"
	"fmt"
	"time"

	"fanclash-service/internal/domain/notification"
	"fanclash-service/internal/domain/payment"

	"go.uber.org/zap"
)

// EventStore persists payment events for the fan-out owned by the main
// backend.
type EventStore interface {
	Insert(ctx context.Context, ev *notification.PaymentEvent) error
	ListByTransaction(ctx context.Context, transactionID int64) ([]notification.PaymentEvent, error)
}

// Service records payment outcome events. Dispatch is fire-and-forget: a
// detached task whose errors are logged, never surfaced to the payment flow.
type Service struct {
	events EventStore
	logger *zap.Logger
}

func NewNotificationService(events EventStore, logger *zap.Logger) *Service {
	return &Service{events: events, logger: logger}
}

// PaymentResolved records an event for a transaction that reached a terminal
// state. It returns immediately; the write happens on a detached goroutine.
func (s *Service) PaymentResolved(t *payment.Transaction) {
	ev := &notification.PaymentEvent{
		TransactionID: t.ID,
		UserID:        t.UserID,
		Title:         titleFor(t.Status),
		Message:       messageFor(t),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.events.Insert(ctx, ev); err != nil {
			s.logger.Error("failed to record payment event",
				zap.Int64("transaction_id", t.ID),
				zap.Error(err),
			)
		}
	}()
}

// Events returns the recorded outcome events for one transaction, oldest
// first.
func (s *Service) Events(ctx context.Context, transactionID int64) ([]notification.PaymentEvent, error) {
	return s.events.ListByTransaction(ctx, transactionID)
}

func titleFor(status payment.TransactionStatus) string {
	switch status {
	case payment.TransactionStatusCompleted:
		return "Payment received"
	case payment.TransactionStatusExpired:
		return "Payment expired"
	default:
		return "Payment failed"
	}
}

func messageFor(t *payment.Transaction) string {
	switch t.Status {
	case payment.TransactionStatusCompleted:
		return fmt.Sprintf("Your payment of KES %.2f was received. Ref %s.", t.Amount, t.PaymentReference)
	case payment.TransactionStatusExpired:
		return fmt.Sprintf("Your payment of KES %.2f was not confirmed in time. Ref %s.", t.Amount, t.PaymentReference)
	default:
		reason := t.ResultDesc.String
		if reason == "" {
			reason = "the payment was not completed"
		}
		return fmt.Sprintf("Your payment of KES %.2f failed: %s. Ref %s.", t.Amount, reason, t.PaymentReference)
	}
}

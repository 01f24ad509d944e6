package notification

import (
	"context"
	"database/sql"
	"testing"
	"time"

	domain "fanclash-service/internal/domain/notification"
	"fanclash-service/internal/domain/payment"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEventStore struct {
	inserted chan *domain.PaymentEvent
	events   []domain.PaymentEvent
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{inserted: make(chan *domain.PaymentEvent, 1)}
}

func (s *fakeEventStore) Insert(ctx context.Context, ev *domain.PaymentEvent) error {
	s.inserted <- ev
	return nil
}

func (s *fakeEventStore) ListByTransaction(ctx context.Context, transactionID int64) ([]domain.PaymentEvent, error) {
	return s.events, nil
}

func awaitEvent(t *testing.T, store *fakeEventStore) *domain.PaymentEvent {
	t.Helper()
	select {
	case ev := <-store.inserted:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event recorded")
		return nil
	}
}

func TestPaymentResolved(t *testing.T) {
	t.Run("completed payment records a received event", func(t *testing.T) {
		store := newFakeEventStore()
		svc := NewNotificationService(store, zap.NewNop())

		svc.PaymentResolved(&payment.Transaction{
			ID:               42,
			UserID:           sql.NullInt64{Int64: 7, Valid: true},
			Amount:           150,
			PaymentReference: "PAY-01ARZ3NDEKTSV4RRFFQ69G5FAV",
			Status:           payment.TransactionStatusCompleted,
		})

		ev := awaitEvent(t, store)
		require.EqualValues(t, 42, ev.TransactionID)
		require.EqualValues(t, 7, ev.UserID.Int64)
		require.Equal(t, "Payment received", ev.Title)
		require.Contains(t, ev.Message, "KES 150.00")
		require.Contains(t, ev.Message, "PAY-01ARZ3NDEKTSV4RRFFQ69G5FAV")
	})

	t.Run("failed payment carries the gateway reason", func(t *testing.T) {
		store := newFakeEventStore()
		svc := NewNotificationService(store, zap.NewNop())

		svc.PaymentResolved(&payment.Transaction{
			ID:         43,
			Amount:     99.5,
			Status:     payment.TransactionStatusFailed,
			ResultDesc: sql.NullString{String: "Request cancelled by user", Valid: true},
		})

		ev := awaitEvent(t, store)
		require.Equal(t, "Payment failed", ev.Title)
		require.Contains(t, ev.Message, "Request cancelled by user")
	})

	t.Run("expired payment records an expiry event", func(t *testing.T) {
		store := newFakeEventStore()
		svc := NewNotificationService(store, zap.NewNop())

		svc.PaymentResolved(&payment.Transaction{
			ID:     44,
			Amount: 100,
			Status: payment.TransactionStatusExpired,
		})

		ev := awaitEvent(t, store)
		require.Equal(t, "Payment expired", ev.Title)
	})
}

func TestEvents(t *testing.T) {
	store := newFakeEventStore()
	store.events = []domain.PaymentEvent{
		{ID: 1, TransactionID: 42, Title: "Payment received"},
	}
	svc := NewNotificationService(store, zap.NewNop())

	events, err := svc.Events(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Payment received", events[0].Title)
}

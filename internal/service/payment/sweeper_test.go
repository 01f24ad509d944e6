package payment

import (
	"context"
	"testing"
	"time"

	domain "fanclash-service/internal/domain/payment"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweep(t *testing.T) {
	t.Run("stale pending transactions are expired", func(t *testing.T) {
		f := newFixture()
		result := f.initiate(t)

		stored, err := f.store.FindByCheckoutID(context.Background(), result.CheckoutRequestID)
		require.NoError(t, err)
		f.store.stalePending = []domain.Transaction{*stored}

		sweeper := NewSweeper(f.store, f.cache, f.hub, f.notify, time.Minute, 2*time.Minute, zap.NewNop())
		require.NoError(t, sweeper.Sweep(context.Background()))

		reloaded, err := f.store.FindByCheckoutID(context.Background(), result.CheckoutRequestID)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusExpired, reloaded.Status)
		require.Equal(t, "no callback received before expiry", reloaded.ResultDesc.String)
		require.True(t, reloaded.CompletedAt.Valid)

		// Pollers and subscribers learn about the expiry the same way they
		// learn about callbacks.
		snap, _ := f.cache.Get(context.Background(), result.CheckoutRequestID)
		require.NotNil(t, snap)
		require.False(t, snap.Success)
		require.Equal(t, domain.TransactionStatusExpired, snap.Status)
		require.Len(t, f.hub.updates, 1)
		require.Equal(t, domain.TransactionStatusExpired, f.hub.updates[0].Status)
		require.Equal(t, 1, f.notify.count())
	})

	t.Run("row resolved by a racing callback is left alone", func(t *testing.T) {
		f := newFixture()
		result := f.initiate(t)

		stored, err := f.store.FindByCheckoutID(context.Background(), result.CheckoutRequestID)
		require.NoError(t, err)
		f.store.stalePending = []domain.Transaction{*stored}

		// Callback lands between the stale scan and the guarded update.
		f.service.HandleSTKCallback(context.Background(),
			stkCallback(result.CheckoutRequestID, result.MerchantRequestID, 0, "ok"))

		sweeper := NewSweeper(f.store, f.cache, f.hub, f.notify, time.Minute, 2*time.Minute, zap.NewNop())
		require.NoError(t, sweeper.Sweep(context.Background()))

		reloaded, err := f.store.FindByCheckoutID(context.Background(), result.CheckoutRequestID)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusCompleted, reloaded.Status)
		require.Equal(t, 1, f.notify.count())
	})

	t.Run("empty scan is a no-op", func(t *testing.T) {
		f := newFixture()

		sweeper := NewSweeper(f.store, f.cache, f.hub, f.notify, time.Minute, 2*time.Minute, zap.NewNop())
		require.NoError(t, sweeper.Sweep(context.Background()))

		require.Empty(t, f.hub.updates)
		require.Zero(t, f.notify.count())
	})
}

// internal/service/payment/sweeper.go
package payment

import (
	"context"
	"time"

	"fanclash-service/internal/domain/payment"

	"go.uber.org/zap"
)

const sweepBatchSize = 500

// Sweeper expires transactions whose callback never arrived. Without it a
// lost delivery leaves a row pending forever and the client polling for a
// verdict that will never come.
type Sweeper struct {
	store    TransactionStore
	cache    StatusCache
	hub      StatusPublisher
	notify   Notifier
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
}

func NewSweeper(
	store TransactionStore,
	cache StatusCache,
	hub StatusPublisher,
	notify Notifier,
	interval, maxAge time.Duration,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		store:    store,
		cache:    cache,
		hub:      hub,
		notify:   notify,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("payment expiry sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("max_age", w.maxAge),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("payment expiry sweeper stopped")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("payment expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep expires one batch of stale pending transactions. The guarded update
// skips any row a racing callback resolves first.
func (w *Sweeper) Sweep(ctx context.Context) error {
	stale, err := w.store.FindStalePending(ctx, w.maxAge, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	desc := "no callback received before expiry"
	expired := 0

	for i := range stale {
		t := &stale[i]

		updated, err := w.store.UpdateStatus(ctx, t.CheckoutRequestID, t.MerchantRequestID,
			payment.TransactionStatusExpired, nil, &desc, nil)
		if err != nil {
			w.logger.Error("failed to expire transaction",
				zap.String("checkout_request_id", t.CheckoutRequestID),
				zap.Error(err),
			)
			continue
		}
		if !updated {
			// A callback won the race; leave it alone.
			continue
		}
		expired++

		t.Status = payment.TransactionStatusExpired
		now := time.Now()
		t.UpdatedAt = now

		snap := snapshotOf(t)
		snap.ResultDesc = desc
		if err := w.cache.Put(ctx, t.CheckoutRequestID, snap); err != nil {
			w.logger.Warn("failed to cache expired status", zap.Error(err))
		}

		w.hub.Publish(&payment.StatusUpdate{
			CheckoutRequestID: t.CheckoutRequestID,
			MerchantRequestID: t.MerchantRequestID,
			Status:            payment.TransactionStatusExpired,
			ResultDesc:        desc,
			UpdatedAt:         now,
		})

		w.notify.PaymentResolved(t)
	}

	if expired > 0 {
		w.logger.Info("expired stale pending transactions", zap.Int("count", expired))
	}

	return nil
}

// internal/service/payment/payment_service.go
package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fanclash-service/internal/domain/payment"
	"fanclash-service/internal/mpesa"
	xerrors "fanclash-service/internal/pkg/errors"
	"fanclash-service/internal/pkg/reference"

	"go.uber.org/zap"
)

// Gateway is the slice of the Daraja client this service needs.
type Gateway interface {
	InitiateSTKPush(ctx context.Context, phoneNumber, amount, accountReference, transactionDesc string) (*mpesa.STKPushResponse, error)
	SendB2CPayment(ctx context.Context, phoneNumber, amount, commandID, remarks, occasion string) (*mpesa.B2CResponse, error)
}

// TransactionStore is the persistence contract for payment attempts.
type TransactionStore interface {
	Insert(ctx context.Context, t *payment.Transaction) error
	FindByCheckoutID(ctx context.Context, checkoutID string) (*payment.Transaction, error)
	FindByBothIDs(ctx context.Context, checkoutID, merchantID string) (*payment.Transaction, error)
	FindByEitherID(ctx context.Context, checkoutID, merchantID string) (*payment.Transaction, error)
	UpdateStatus(ctx context.Context, checkoutID, merchantID string, status payment.TransactionStatus, resultCode *int32, resultDesc, mpesaReceipt *string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]payment.Transaction, error)
	Stats(ctx context.Context) (*payment.TransactionStats, error)
	FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]payment.Transaction, error)
}

// StatusCache stores terminal snapshots for the polling fast path.
type StatusCache interface {
	Put(ctx context.Context, checkoutID string, snap *payment.StatusSnapshot) error
	Get(ctx context.Context, checkoutID string) (*payment.StatusSnapshot, error)
}

// StatusPublisher pushes transitions to live subscribers.
type StatusPublisher interface {
	Publish(update *payment.StatusUpdate)
}

// Notifier hands off payment outcome events; implementations must not block.
type Notifier interface {
	PaymentResolved(t *payment.Transaction)
}

type PaymentService struct {
	gateway Gateway
	store   TransactionStore
	cache   StatusCache
	hub     StatusPublisher
	notify  Notifier
	logger  *zap.Logger
}

func NewPaymentService(
	gateway Gateway,
	store TransactionStore,
	cache StatusCache,
	hub StatusPublisher,
	notify Notifier,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		gateway: gateway,
		store:   store,
		cache:   cache,
		hub:     hub,
		notify:  notify,
		logger:  logger,
	}
}

// InitiateSTKPush validates the request, submits the push to the gateway and
// persists a pending transaction keyed by the returned correlation ids.
func (s *PaymentService) InitiateSTKPush(ctx context.Context, input *payment.STKPushInput) (*payment.InitiationResult, error) {
	amount, err := mpesa.ParseAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.InitiateSTKPush(ctx, input.PhoneNumber, input.Amount, input.AccountReference, input.TransactionDesc)
	if err != nil {
		return nil, err
	}

	accountRef := input.AccountReference
	if accountRef == "" {
		accountRef = "FanClash"
	}

	t := &payment.Transaction{
		PaymentReference:    reference.NewPaymentReference(),
		TransactionType:     payment.TransactionTypeSTKPush,
		UserID:              nullableID(input.UserID),
		PhoneNumber:         mpesa.FormatPhoneNumber(input.PhoneNumber),
		Amount:              amount,
		MerchantRequestID:   resp.MerchantRequestID,
		CheckoutRequestID:   resp.CheckoutRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
		Status:              payment.TransactionStatusPending,
		AccountReference:    accountRef,
	}

	// The gateway accepted the push; a persistence failure must not hide the
	// correlation ids from the client. The reconciler tolerates callbacks for
	// attempts that were never recorded.
	if err := s.store.Insert(ctx, t); err != nil {
		s.logger.Error("failed to persist pending transaction",
			zap.String("checkout_request_id", resp.CheckoutRequestID),
			zap.Error(err),
		)
	}

	return &payment.InitiationResult{
		PaymentReference:    t.PaymentReference,
		MerchantRequestID:   resp.MerchantRequestID,
		CheckoutRequestID:   resp.CheckoutRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
	}, nil
}

// SendB2CPayment pays a customer out. The conversation identifier pair is
// stored in the correlation id columns so the result callback reconciles
// through the same path as STK pushes.
func (s *PaymentService) SendB2CPayment(ctx context.Context, input *payment.B2CInput) (*payment.InitiationResult, error) {
	if !mpesa.ValidCommandIDs[input.CommandID] {
		return nil, fmt.Errorf("%w: unknown command id %q", xerrors.ErrInvalidInput, input.CommandID)
	}

	amount, err := mpesa.ParseAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.SendB2CPayment(ctx, input.PhoneNumber, input.Amount, input.CommandID, input.Remarks, input.Occasion)
	if err != nil {
		return nil, err
	}

	t := &payment.Transaction{
		PaymentReference:    reference.NewPaymentReference(),
		TransactionType:     payment.TransactionTypeB2C,
		UserID:              nullableID(input.UserID),
		PhoneNumber:         mpesa.FormatPhoneNumber(input.PhoneNumber),
		Amount:              amount,
		MerchantRequestID:   resp.OriginatorConversationID,
		CheckoutRequestID:   resp.ConversationID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		Status:              payment.TransactionStatusPending,
		AccountReference:    input.Remarks,
	}

	if err := s.store.Insert(ctx, t); err != nil {
		s.logger.Error("failed to persist pending B2C transaction",
			zap.String("conversation_id", resp.ConversationID),
			zap.Error(err),
		)
	}

	return &payment.InitiationResult{
		PaymentReference:    t.PaymentReference,
		MerchantRequestID:   resp.OriginatorConversationID,
		CheckoutRequestID:   resp.ConversationID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
	}, nil
}

// HandleSTKCallback reconciles an asynchronous STK result with its pending
// transaction. The returned ack is what the HTTP layer sends the gateway;
// it is a protocol requirement, not an application-level outcome.
func (s *PaymentService) HandleSTKCallback(ctx context.Context, data *mpesa.STKCallbackData) mpesa.CallbackAck {
	if data.MerchantRequestID == "" || data.CheckoutRequestID == "" {
		s.logger.Warn("callback missing correlation identifiers, ignoring")
		return mpesa.AckRejected
	}

	status := payment.TransactionStatusFailed
	if data.ResultCode == 0 {
		status = payment.TransactionStatusCompleted
	}

	resultCode := int32(data.ResultCode)
	var receipt *string
	if r, ok := data.ReceiptNumber(); ok {
		receipt = &r
	}

	s.applyTransition(ctx, data.CheckoutRequestID, data.MerchantRequestID, status, &resultCode, &data.ResultDesc, receipt, data)

	// The gateway retries delivery indefinitely on anything other than a
	// success acknowledgement.
	return mpesa.AckSuccess
}

// HandleB2CResult reconciles the B2C result callback.
func (s *PaymentService) HandleB2CResult(ctx context.Context, data *mpesa.B2CResultData) mpesa.CallbackAck {
	if data.OriginatorConversationID == "" || data.ConversationID == "" {
		s.logger.Warn("B2C result missing conversation identifiers, ignoring")
		return mpesa.AckRejected
	}

	status := payment.TransactionStatusFailed
	if data.ResultCode == 0 {
		status = payment.TransactionStatusCompleted
	}

	resultCode := int32(data.ResultCode)
	var receipt *string
	if data.TransactionID != "" {
		receipt = &data.TransactionID
	}

	s.applyTransition(ctx, data.ConversationID, data.OriginatorConversationID, status, &resultCode, &data.ResultDesc, receipt, nil)

	return mpesa.AckSuccess
}

// HandleB2CTimeout marks a queued B2C request as failed after the gateway
// reports it timed out before processing.
func (s *PaymentService) HandleB2CTimeout(ctx context.Context, data *mpesa.B2CResultData) mpesa.CallbackAck {
	if data.OriginatorConversationID == "" || data.ConversationID == "" {
		s.logger.Warn("B2C timeout missing conversation identifiers, ignoring")
		return mpesa.AckRejected
	}

	desc := data.ResultDesc
	if desc == "" {
		desc = "Request timed out in queue"
	}
	resultCode := int32(data.ResultCode)
	if resultCode == 0 {
		resultCode = 1
	}

	s.applyTransition(ctx, data.ConversationID, data.OriginatorConversationID, payment.TransactionStatusFailed, &resultCode, &desc, nil, nil)

	return mpesa.AckSuccess
}

// applyTransition performs the guarded pending -> terminal update and the
// follow-up side effects: status cache, live push, outcome event.
func (s *PaymentService) applyTransition(
	ctx context.Context,
	checkoutID, merchantID string,
	status payment.TransactionStatus,
	resultCode *int32,
	resultDesc, receipt *string,
	stk *mpesa.STKCallbackData,
) {
	updated, err := s.store.UpdateStatus(ctx, checkoutID, merchantID, status, resultCode, resultDesc, receipt)
	if err != nil {
		s.logger.Error("failed to apply callback transition",
			zap.String("checkout_request_id", checkoutID),
			zap.Error(err),
		)
		return
	}

	if !updated {
		// Either the attempt was never recorded locally, or a duplicate
		// delivery raced the first one. Both are acknowledged and dropped.
		if existing, ferr := s.store.FindByBothIDs(ctx, checkoutID, merchantID); ferr == nil && existing.Status.IsTerminal() {
			s.logger.Info("ignoring callback for terminal transaction",
				zap.String("checkout_request_id", checkoutID),
				zap.String("status", string(existing.Status)),
			)
		} else {
			s.logger.Warn("callback matched no pending transaction",
				zap.String("checkout_request_id", checkoutID),
				zap.String("merchant_request_id", merchantID),
			)
		}
		return
	}

	t, err := s.store.FindByBothIDs(ctx, checkoutID, merchantID)
	if err != nil {
		s.logger.Error("failed to reload transaction after transition", zap.Error(err))
		return
	}

	if stk != nil && status == payment.TransactionStatusCompleted {
		if paid, ok := stk.Amount(); ok {
			// Audit only. A mismatch is logged, never reconciled here.
			if paid != t.Amount {
				s.logger.Warn("callback amount differs from requested amount",
					zap.String("checkout_request_id", checkoutID),
					zap.Float64("requested", t.Amount),
					zap.Float64("paid", paid),
				)
			} else {
				s.logger.Info("payment amount confirmed",
					zap.String("checkout_request_id", checkoutID),
					zap.Float64("amount", paid),
				)
			}
		}
	}

	snap := snapshotOf(t)
	if err := s.cache.Put(ctx, checkoutID, snap); err != nil {
		s.logger.Warn("failed to cache terminal status", zap.Error(err))
	}

	s.hub.Publish(&payment.StatusUpdate{
		CheckoutRequestID: t.CheckoutRequestID,
		MerchantRequestID: t.MerchantRequestID,
		Status:            t.Status,
		ResultCode:        resultCodePtr(t),
		ResultDesc:        t.ResultDesc.String,
		UpdatedAt:         t.UpdatedAt,
	})

	s.notify.PaymentResolved(t)
}

// CheckByCheckoutID returns the status snapshot for a checkout id. An id the
// service has never seen reports pending; a poller cannot distinguish a typo
// from an in-flight attempt.
func (s *PaymentService) CheckByCheckoutID(ctx context.Context, checkoutID string) *payment.StatusSnapshot {
	if snap, err := s.cache.Get(ctx, checkoutID); err == nil && snap != nil {
		return snap
	} else if err != nil {
		s.logger.Warn("status cache read failed", zap.Error(err))
	}

	t, err := s.store.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		if !xerrors.Is(err, xerrors.ErrNotFound) {
			s.logger.Error("status lookup failed", zap.String("checkout_request_id", checkoutID), zap.Error(err))
		}
		return &payment.StatusSnapshot{Success: false, Status: payment.TransactionStatusPending}
	}

	return snapshotOf(t)
}

// CheckByEitherID looks a transaction up by whichever correlation ids are
// present. Unlike CheckByCheckoutID, an unknown id is an ErrNotFound.
func (s *PaymentService) CheckByEitherID(ctx context.Context, filters *payment.StatusQueryFilters) (*payment.StatusSnapshot, error) {
	if filters.CheckoutRequestID == "" && filters.MerchantRequestID == "" {
		return nil, fmt.Errorf("%w: at least one of checkout_request_id or merchant_request_id is required", xerrors.ErrInvalidInput)
	}

	t, err := s.store.FindByEitherID(ctx, filters.CheckoutRequestID, filters.MerchantRequestID)
	if err != nil {
		return nil, err
	}

	return snapshotOf(t), nil
}

// List returns transactions newest first.
func (s *PaymentService) List(ctx context.Context, filters *payment.ListFilters) ([]payment.Transaction, error) {
	limit := filters.Limit
	if limit == 0 {
		limit = 50
	}
	return s.store.List(ctx, limit, filters.Offset)
}

// Stats aggregates transaction counts and completed volume.
func (s *PaymentService) Stats(ctx context.Context) (*payment.TransactionStats, error) {
	return s.store.Stats(ctx)
}

func snapshotOf(t *payment.Transaction) *payment.StatusSnapshot {
	updatedAt := t.UpdatedAt
	return &payment.StatusSnapshot{
		Success:           t.Status == payment.TransactionStatusCompleted,
		Status:            t.Status,
		CheckoutRequestID: t.CheckoutRequestID,
		MerchantRequestID: t.MerchantRequestID,
		Amount:            t.Amount,
		ResultCode:        resultCodePtr(t),
		ResultDesc:        t.ResultDesc.String,
		UpdatedAt:         &updatedAt,
	}
}

func resultCodePtr(t *payment.Transaction) *int32 {
	if !t.ResultCode.Valid {
		return nil
	}
	code := t.ResultCode.Int32
	return &code
}

func nullableID(id int64) (n sql.NullInt64) {
	if id > 0 {
		n.Int64 = id
		n.Valid = true
	}
	return n
}

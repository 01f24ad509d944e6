// internal/handlers/payment/payment_handler.go
package payment

import (
	"net/http"

	"fanclash-service/internal/domain/payment"
	xerrors "fanclash-service/internal/pkg/errors"
	"fanclash-service/internal/pkg/response"
	service "fanclash-service/internal/service/payment"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// InitiateSTKPush triggers a payment prompt on the payer's phone.
func (h *PaymentHandler) InitiateSTKPush(c *gin.Context) {
	var req payment.STKPushInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.paymentService.InitiateSTKPush(c.Request.Context(), &req)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrInvalidAmount) || xerrors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "invalid payment request", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to initiate payment", err)
		return
	}

	response.Success(c, http.StatusOK, "payment initiated, awaiting confirmation", result)
}

// SendB2CPayment pays out to a customer phone.
func (h *PaymentHandler) SendB2CPayment(c *gin.Context) {
	var req payment.B2CInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.paymentService.SendB2CPayment(c.Request.Context(), &req)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrInvalidAmount) || xerrors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "invalid payout request", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to send payout", err)
		return
	}

	response.Success(c, http.StatusOK, "payout submitted", result)
}

// CheckStatus polls the outcome of an STK push by checkout request id. The
// response body is the snapshot itself; unknown ids report pending.
func (h *PaymentHandler) CheckStatus(c *gin.Context) {
	var req payment.CheckoutStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "checkout_request_id is required", err)
		return
	}

	snap := h.paymentService.CheckByCheckoutID(c.Request.Context(), req.CheckoutRequestID)
	c.JSON(http.StatusOK, snap)
}

// QueryStatus polls by whichever correlation ids are supplied as query
// parameters. Unknown ids 404 here, unlike CheckStatus.
func (h *PaymentHandler) QueryStatus(c *gin.Context) {
	var filters payment.StatusQueryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	snap, err := h.paymentService.CheckByEitherID(c.Request.Context(), &filters)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "at least one identifier is required", err)
			return
		}
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "transaction not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to query status", err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// ListTransactions enumerates payment attempts newest first.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	var filters payment.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	transactions, err := h.paymentService.List(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list transactions", err)
		return
	}

	response.Success(c, http.StatusOK, "transactions retrieved", gin.H{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// GetStats aggregates transaction counts and completed volume.
func (h *PaymentHandler) GetStats(c *gin.Context) {
	stats, err := h.paymentService.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to aggregate stats", err)
		return
	}

	response.Success(c, http.StatusOK, "stats retrieved", stats)
}

// internal/handlers/payment/callback_handler.go
package payment

import (
	"net/http"

	"fanclash-service/internal/mpesa"
	service "fanclash-service/internal/service/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallbackHandler receives the gateway's asynchronous result deliveries.
// Whatever happens internally, the gateway gets HTTP 200 with a gateway-format
// acknowledgement; a non-200 or missing ResultCode triggers indefinite
// redelivery.
type CallbackHandler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

func NewCallbackHandler(paymentService *service.PaymentService, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// STKCallback handles Body.stkCallback result deliveries.
func (h *CallbackHandler) STKCallback(c *gin.Context) {
	var envelope mpesa.STKCallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Warn("unparseable STK callback body", zap.Error(err))
		c.JSON(http.StatusOK, mpesa.AckRejected)
		return
	}

	ack := h.paymentService.HandleSTKCallback(c.Request.Context(), &envelope.Body.StkCallback)
	c.JSON(http.StatusOK, ack)
}

// B2CResult handles Result envelope deliveries for payouts.
func (h *CallbackHandler) B2CResult(c *gin.Context) {
	var envelope mpesa.B2CResultEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Warn("unparseable B2C result body", zap.Error(err))
		c.JSON(http.StatusOK, mpesa.AckRejected)
		return
	}

	ack := h.paymentService.HandleB2CResult(c.Request.Context(), &envelope.Result)
	c.JSON(http.StatusOK, ack)
}

// B2CTimeout handles queue-timeout deliveries for payouts.
func (h *CallbackHandler) B2CTimeout(c *gin.Context) {
	var envelope mpesa.B2CResultEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Warn("unparseable B2C timeout body", zap.Error(err))
		c.JSON(http.StatusOK, mpesa.AckRejected)
		return
	}

	ack := h.paymentService.HandleB2CTimeout(c.Request.Context(), &envelope.Result)
	c.JSON(http.StatusOK, ack)
}

// internal/domain/payment/dto.go
package payment

import "time"

type STKPushInput struct {
	PhoneNumber      string `json:"phone_number" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	UserID           int64  `json:"user_id"`
	AccountReference string `json:"account_reference"`
	TransactionDesc  string `json:"transaction_desc"`
}

type B2CInput struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	UserID      int64  `json:"user_id"`
	CommandID   string `json:"command_id" binding:"required"`
	Remarks     string `json:"remarks" binding:"required"`
	Occasion    string `json:"occasion"`
}

type CheckoutStatusInput struct {
	CheckoutRequestID string `json:"checkout_request_id" binding:"required"`
}

type StatusQueryFilters struct {
	CheckoutRequestID string `form:"checkout_request_id"`
	MerchantRequestID string `form:"merchant_request_id"`
}

// StatusSnapshot is what pollers receive. An id the service has never seen
// reports status "pending" with Success=false, same as a genuinely in-flight
// attempt.
type StatusSnapshot struct {
	Success           bool              `json:"success"`
	Status            TransactionStatus `json:"status"`
	CheckoutRequestID string            `json:"checkout_request_id,omitempty"`
	MerchantRequestID string            `json:"merchant_request_id,omitempty"`
	Amount            float64           `json:"amount,omitempty"`
	ResultCode        *int32            `json:"result_code,omitempty"`
	ResultDesc        string            `json:"result_desc,omitempty"`
	UpdatedAt         *time.Time        `json:"updated_at,omitempty"`
}

type InitiationResult struct {
	PaymentReference    string `json:"payment_reference"`
	MerchantRequestID   string `json:"merchant_request_id"`
	CheckoutRequestID   string `json:"checkout_request_id"`
	ResponseCode        string `json:"response_code"`
	ResponseDescription string `json:"response_description"`
	CustomerMessage     string `json:"customer_message,omitempty"`
}

type ListFilters struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// StatusUpdate is pushed to websocket subscribers when a transaction
// leaves the pending state.
type StatusUpdate struct {
	CheckoutRequestID string            `json:"checkout_request_id"`
	MerchantRequestID string            `json:"merchant_request_id"`
	Status            TransactionStatus `json:"status"`
	ResultCode        *int32            `json:"result_code,omitempty"`
	ResultDesc        string            `json:"result_desc,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

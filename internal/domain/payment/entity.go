// internal/domain/payment/entity.go
package payment

import (
	"database/sql"
	"time"
)

type TransactionType string

const (
	TransactionTypeSTKPush TransactionType = "stk_push"
	TransactionTypeB2C     TransactionType = "b2c"
)

type TransactionStatus string

const (
	TransactionStatusInitiated TransactionStatus = "initiated"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusExpired   TransactionStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusExpired
}

type Transaction struct {
	ID               int64           `json:"id" db:"id"`
	PaymentReference string          `json:"payment_reference" db:"payment_reference"`
	TransactionType  TransactionType `json:"transaction_type" db:"transaction_type"`

	// Who is paying / being paid
	UserID      sql.NullInt64 `json:"user_id,omitempty" db:"user_id"`
	PhoneNumber string        `json:"phone_number" db:"phone_number"`
	Amount      float64       `json:"amount" db:"amount"`

	// Correlation identifiers returned by the gateway at initiation time.
	// For B2C these carry OriginatorConversationID / ConversationID.
	MerchantRequestID string `json:"merchant_request_id" db:"merchant_request_id"`
	CheckoutRequestID string `json:"checkout_request_id" db:"checkout_request_id"`

	// Initiation echo
	ResponseCode        string `json:"response_code" db:"response_code"`
	ResponseDescription string `json:"response_description" db:"response_description"`
	CustomerMessage     string `json:"customer_message,omitempty" db:"customer_message"`

	Status TransactionStatus `json:"status" db:"status"`

	// Callback outcome, present only after reconciliation
	ResultCode   sql.NullInt32  `json:"result_code,omitempty" db:"result_code"`
	ResultDesc   sql.NullString `json:"result_desc,omitempty" db:"result_desc"`
	MpesaReceipt sql.NullString `json:"mpesa_receipt,omitempty" db:"mpesa_receipt"`

	AccountReference string `json:"account_reference" db:"account_reference"`

	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	CompletedAt sql.NullTime `json:"completed_at,omitempty" db:"completed_at"`
}

type TransactionStats struct {
	TotalTransactions     int64   `json:"total_transactions"`
	PendingTransactions   int64   `json:"pending_transactions"`
	CompletedTransactions int64   `json:"completed_transactions"`
	FailedTransactions    int64   `json:"failed_transactions"`
	ExpiredTransactions   int64   `json:"expired_transactions"`
	CompletedAmount       float64 `json:"completed_amount"`
	SuccessRate           float64 `json:"success_rate"`
}

// internal/domain/notification/entity.go
package notification

import (
	"database/sql"
	"time"
)

// PaymentEvent is the record handed to the notification fan-out owned by the
// main app backend. This service only writes them; delivery is external.
type PaymentEvent struct {
	ID            int64         `json:"id" db:"id"`
	TransactionID int64         `json:"transaction_id" db:"transaction_id"`
	UserID        sql.NullInt64 `json:"user_id,omitempty" db:"user_id"`
	Title         string        `json:"title" db:"title"`
	Message       string        `json:"message" db:"message"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

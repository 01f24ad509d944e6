// internal/pkg/reference/reference.go
package reference

import (
	"github.com/oklog/ulid/v2"
)

// NewPaymentReference generates a sortable unique reference for a payment
// attempt, e.g. PAY-01J8ZC3A9W....
func NewPaymentReference() string {
	return "PAY-" + ulid.Make().String()
}

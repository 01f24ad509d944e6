// internal/mpesa/phone.go
package mpesa

import "strings"

// FormatPhoneNumber normalizes Kenyan phone numbers to the 254XXXXXXXXX
// format Daraja requires. Three shapes are recognized:
//
//	254712345678 -> 254712345678
//	0712345678   -> 254712345678
//	712345678    -> 254712345678
//
// Anything else is passed through unchanged and left for the gateway to
// reject; there is no further local validation.
func FormatPhoneNumber(phone string) string {
	phone = strings.TrimSpace(phone)

	switch {
	case len(phone) == 12 && strings.HasPrefix(phone, "254"):
		return phone
	case len(phone) == 10 && strings.HasPrefix(phone, "0"):
		return "254" + phone[1:]
	case len(phone) == 9:
		return "254" + phone
	default:
		return phone
	}
}

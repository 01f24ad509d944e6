package mpesa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already international", "254712345678", "254712345678"},
		{"leading zero", "0712345678", "254712345678"},
		{"bare nine digits", "712345678", "254712345678"},
		{"leading zero with whitespace", " 0712345678 ", "254712345678"},
		{"newer kenyan prefix", "0110123456", "254110123456"},
		{"plus prefix passed through", "+254712345678", "+254712345678"},
		{"too short passed through", "12345", "12345"},
		{"foreign number passed through", "44771234567", "44771234567"},
		{"empty passed through", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatPhoneNumber(tt.input))
		})
	}
}

package momo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"local form", "0912345678", "+211912345678"},
		{"already canonical", "+211912345678", "+211912345678"},
		{"country code without plus", "211912345678", "+211912345678"},
		{"bare subscriber number", "912345678", "+211912345678"},
		{"spaces and dashes", " 091-234-5678 ", "+211912345678"},
		{"parentheses", "(0)912345678", "+211912345678"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestValidateNumber(t *testing.T) {
	valid := []string{
		"0912345678",
		"0921234567",
		"0951234567",
		"0971234567",
		"+211912345678",
		"211971234567",
	}
	for _, number := range valid {
		assert.True(t, ValidateNumber(number), "expected %s to be valid", number)
	}

	// Unknown prefix, wrong length, wrong country.
	invalid := []string{
		"",
		"0812345678",
		"091234567",
		"09123456789",
		"+254712345678",
		"not-a-number",
	}
	for _, number := range invalid {
		assert.False(t, ValidateNumber(number), "expected %s to be invalid", number)
	}
}

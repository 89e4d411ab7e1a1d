package internal_contactstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"dashed domestic", "555-123-4567", "+15551234567"},
		{"eleven digits with trunk prefix", "15551234567", "+15551234567"},
		{"international with separators", "+44 20 7946 0958", "+442079460958"},
		{"already canonical", "+15551234567", "+15551234567"},
		{"parenthesized", "(555) 123-4567", "+15551234567"},
		{"unknown length gets plus", "123456", "+123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestMatchVariants(t *testing.T) {
	variants := matchVariants("+15551234567")
	assert.Equal(t, []string{"+15551234567", "15551234567", "5551234567"}, variants)
}

func TestMatchVariantsShortNumber(t *testing.T) {
	// Ten digits or fewer have no distinct last-10 form.
	variants := matchVariants("+123456")
	assert.Equal(t, []string{"+123456", "123456"}, variants)
}

package utils

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
		{"formatted brazilian number", "+55 (11) 98765-4321", "5511987654321"},
		{"already normalized", "5511987654321", "5511987654321"},
		{"dots and spaces", "55.11.98765 4321", "5511987654321"},
		{"letters stripped", "phone: 5511987654321", "5511987654321"},
		{"empty", "", ""},
		{"no digits", "abc-def", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "mozilla/5.0 (iphone)", NormalizeUserAgent("  Mozilla/5.0 (iPhone) "))
	assert.Equal(t, "unknown", NormalizeUserAgent(""))
	assert.Equal(t, "unknown", NormalizeUserAgent("   "))
}

func TestNormalizePixKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"phone with country prefix", "+5511987654321", "11987654321"},
		{"email passes through", "maria@example.com", "maria@example.com"},
		{"cpf passes through", "12345678901", "12345678901"},
		{"random key passes through", "a1b2c3d4-e5f6-7890-abcd-ef1234567890", "a1b2c3d4-e5f6-7890-abcd-ef1234567890"},
		{"trimmed", "  maria@example.com  ", "maria@example.com"},
		{"plus55 with non digits untouched", "+55maria", "+55maria"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePixKey(tt.input))
		})
	}
}

func TestGenerateReferralCode(t *testing.T) {
	code, err := GenerateReferralCode(8)
	assert.NoError(t, err)
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.Contains(t, referralCodeAlphabet, string(r))
	}

	// Ambiguous characters never appear
	assert.NotContains(t, referralCodeAlphabet, "0")
	assert.NotContains(t, referralCodeAlphabet, "O")
	assert.NotContains(t, referralCodeAlphabet, "1")
	assert.NotContains(t, referralCodeAlphabet, "I")
}

func TestGenerateHexToken(t *testing.T) {
	token, err := GenerateHexToken(32)
	assert.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := GenerateHexToken(32)
	assert.NoError(t, err)
	assert.NotEqual(t, token, other)
}

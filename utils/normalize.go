// Package utils provides utility functions for the application.
package utils

import (
	"strings"
)

// NormalizePhone strips every non-digit character so the same person
// submitted as "+55 (11) 98765-4321" and "5511987654321" compares equal.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnknownUserAgent stands in for a missing user agent. Fingerprint checks
// skip it so two agent-less submissions never match each other on it.
const UnknownUserAgent = "unknown"

// NormalizeUserAgent trims and lowercases a user agent string.
// Empty input normalizes to UnknownUserAgent.
func NormalizeUserAgent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownUserAgent
	}
	return strings.ToLower(s)
}

// NormalizePixKey trims a pix key and strips a leading +55 country prefix
// from phone-shaped keys. Email, CPF and random keys pass through trimmed.
func NormalizePixKey(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+55"); ok && isDigits(rest) {
		return rest
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

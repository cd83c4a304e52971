package web

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSecurityHeadersAllPresent(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Security-Policy", "default-src 'self'")
	headers.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")

	checks, ratio := checkSecurityHeaders(headers)
	require.Len(t, checks, 5)
	assert.Equal(t, 1.0, ratio)
	for _, check := range checks {
		assert.True(t, check.Present, "%s should be present", check.Name)
		assert.False(t, check.Weak, "%s should not be weak", check.Name)
	}
}

func TestCheckSecurityHeadersNonePresent(t *testing.T) {
	checks, ratio := checkSecurityHeaders(http.Header{})
	require.Len(t, checks, 5)
	assert.Equal(t, 0.0, ratio)
	for _, check := range checks {
		assert.False(t, check.Present)
	}
}

func TestGradeHeaderWeakValues(t *testing.T) {
	cases := []struct {
		name  string
		value string
		weak  bool
	}{
		{"Content-Security-Policy", "default-src 'self' 'unsafe-inline'", true},
		{"Content-Security-Policy", "script-src 'unsafe-eval'", true},
		{"Content-Security-Policy", "default-src 'self'", false},
		{"Strict-Transport-Security", "max-age=300", true},
		{"Strict-Transport-Security", "max-age=63072000", false},
		{"X-Frame-Options", "ALLOW-FROM https://evil.example", true},
		{"X-Frame-Options", "SAMEORIGIN", false},
		{"X-Content-Type-Options", "sniff", true},
		{"X-Content-Type-Options", "nosniff", false},
		{"Referrer-Policy", "unsafe-url", true},
		{"Referrer-Policy", "no-referrer", false},
	}
	for _, tc := range cases {
		weak, note := gradeHeader(tc.name, tc.value)
		assert.Equal(t, tc.weak, weak, "%s: %s", tc.name, tc.value)
		if tc.weak {
			assert.NotEmpty(t, note)
		}
	}
}

func TestParseMaxAge(t *testing.T) {
	age, ok := parseMaxAge("max-age=31536000; includesubdomains")
	require.True(t, ok)
	assert.Equal(t, 31536000, age)

	_, ok = parseMaxAge("includesubdomains")
	assert.False(t, ok)

	_, ok = parseMaxAge("max-age=never")
	assert.False(t, ok)
}

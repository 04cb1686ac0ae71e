package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "regular email", email: "alice@example.com"},
		{name: "uppercase email", email: "ALICE@EXAMPLE.COM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			assert.NotContains(t, got, "@")
			assert.NotContains(t, got, tt.email)
			assert.Contains(t, got, "user:")
			// Deterministic for correlation.
			assert.Equal(t, got, AnonymizeEmail(tt.email))
		})
	}
}

func TestAnonymizeEmailEmpty(t *testing.T) {
	assert.Equal(t, "", AnonymizeEmail(""))
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))

	token := "super-secret-session-id"
	got := SanitizeToken(token)
	assert.NotContains(t, got, token)
	assert.Equal(t, "[secret:23 chars]", got)
}

func TestErrAttr(t *testing.T) {
	attr := Err(nil)
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "", attr.Value.String())

	attr = Err(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), attr.Value.String())
}

func TestNewLoggerFormats(t *testing.T) {
	jsonLogger := NewLogger(FormatJSON, slog.LevelInfo)
	textLogger := NewLogger(FormatText, slog.LevelDebug)
	assert.NotNil(t, jsonLogger)
	assert.NotNil(t, textLogger)
	assert.False(t, jsonLogger.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, textLogger.Enabled(t.Context(), slog.LevelDebug))
}

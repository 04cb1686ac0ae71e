package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kollabhq/kollab/internal/apierr"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "valid", password: "Aa1!xxxx"},
		{name: "valid long", password: strings.Repeat("Aa1!", 60)},
		{name: "too short", password: "Aa1!xxx", wantErr: "at least 8"},
		{name: "too long", password: "Aa1!" + strings.Repeat("x", 252), wantErr: "at most 255"},
		{name: "no lowercase", password: "AA1!XXXX", wantErr: "lowercase"},
		{name: "no uppercase", password: "aa1!xxxx", wantErr: "uppercase"},
		{name: "no digit", password: "Aaa!xxxx", wantErr: "digit"},
		{name: "no symbol", password: "Aa1xxxxx", wantErr: "symbol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apierr.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Aa1!xxxx")
	require.NoError(t, err)
	assert.NotEqual(t, "Aa1!xxxx", hash)

	assert.True(t, CheckPassword(hash, "Aa1!xxxx"))
	assert.False(t, CheckPassword(hash, "Aa1!xxxy"))
	assert.False(t, CheckPassword("not a hash", "Aa1!xxxx"))
}

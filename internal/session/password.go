package session

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/kollabhq/kollab/internal/apierr"
)

// Password policy bounds.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 255
)

// ValidatePassword applies the registration password policy: length within
// bounds and at least one lowercase letter, uppercase letter, digit and
// symbol.
func ValidatePassword(password string) error {
	n := len(password)
	if n < MinPasswordLength {
		return apierr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return apierr.Validation("password must be at most %d characters", MaxPasswordLength)
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	switch {
	case !lower:
		return apierr.Validation("password must contain a lowercase letter")
	case !upper:
		return apierr.Validation("password must contain an uppercase letter")
	case !digit:
		return apierr.Validation("password must contain a digit")
	case !symbol:
		return apierr.Validation("password must contain a symbol")
	}
	return nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apierr.Internal(err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

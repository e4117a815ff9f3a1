package auth

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 128
)

// ValidatePassword checks the admin password policy: length within
// [MinPasswordLength, MaxPasswordLength] and at least one uppercase letter,
// one lowercase letter, one digit, and one character that is neither letter
// nor digit. The reason names the first violated rule.
func ValidatePassword(password string) (bool, string) {
	length := len([]rune(password))
	if length < MinPasswordLength {
		return false, fmt.Sprintf("password must be at least %d characters long", MinPasswordLength)
	}
	if length > MaxPasswordLength {
		return false, fmt.Sprintf("password must not exceed %d characters", MaxPasswordLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case !unicode.IsLetter(c):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return false, "password must contain uppercase, lowercase, number, and special character"
	}

	return true, ""
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// Malformed stored hashes verify as false rather than erroring.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

package validation

import (
	"errors"
	"strings"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 bytes")
	ErrPasswordCommon   = errors.New("password is too common, please choose a stronger one")
)

var commonPasswordPatterns = []string{
	"password", "123456", "qwerty", "letmein", "welcome",
	"monkey", "dragon", "master", "sunshine", "fileshare",
}

// ValidatePassword enforces a 12 character minimum and rejects common
// patterns. bcrypt ignores everything past 72 bytes, so longer passwords
// are refused instead of silently truncated.
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}

	lower := strings.ToLower(password)
	for _, pattern := range commonPasswordPatterns {
		if strings.Contains(lower, pattern) {
			return ErrPasswordCommon
		}
	}

	return nil
}

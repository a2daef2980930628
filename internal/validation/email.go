package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email address")

// NormalizeEmail lowercases and trims the address, then checks it.
// net/mail follows RFC 5322; the 254 byte ceiling comes from RFC 5321.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: address is required", ErrInvalidEmail)
	}
	if len(email) > 254 {
		return "", fmt.Errorf("%w: longer than 254 characters", ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return email, nil
}

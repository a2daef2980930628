package validation

import (
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidUsername = errors.New("username must be 3-32 letters, digits, '.', '-' or '_'")

// NormalizeUsername trims the name and checks its length and alphabet.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}

	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			continue
		}
		return "", ErrInvalidUsername
	}

	return username, nil
}

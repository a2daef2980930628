package validation_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/fileshare/internal/validation"
)

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		declared string
		content  string
		want     string
	}{
		{"declared wins", "application/pdf", "plain text", "application/pdf"},
		{"declared params kept", "text/plain; charset=utf-8", "x", "text/plain; charset=utf-8"},
		{"empty sniffs", "", "%PDF-1.7\n", "application/pdf"},
		{"octet-stream sniffs", "application/octet-stream", "hello world", "text/plain; charset=utf-8"},
		{"malformed sniffs", "not a type;;", "\x89PNG\r\n\x1a\n", "image/png"},
		{"empty body", "", "", "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, r, err := validation.ContentType(tt.declared, strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Sniffing must not consume the stream
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validation.ValidatePassword("correct horse battery"))
	assert.ErrorIs(t, validation.ValidatePassword("short"), validation.ErrPasswordTooShort)
	assert.ErrorIs(t, validation.ValidatePassword(strings.Repeat("z", 73)), validation.ErrPasswordTooLong)
	assert.ErrorIs(t, validation.ValidatePassword("MyPassword2024!"), validation.ErrPasswordCommon)
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	email, err := validation.NormalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	for _, bad := range []string{"", "alice", "Alice <alice@example.com>", strings.Repeat("a", 250) + "@x.io"} {
		_, err := validation.NormalizeEmail(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	name, err := validation.NormalizeUsername(" alice_01 ")
	require.NoError(t, err)
	assert.Equal(t, "alice_01", name)

	for _, bad := range []string{"ab", "has space", "../root", strings.Repeat("x", 33)} {
		_, err := validation.NormalizeUsername(bad)
		assert.ErrorIs(t, err, validation.ErrInvalidUsername, bad)
	}
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/validation"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: %q", service.ErrInvalidName, ".."), http.StatusBadRequest},
		{service.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{service.ErrOwnerNotFound, http.StatusUnprocessableEntity},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("file f1: %w", service.ErrForbidden), http.StatusForbidden},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrUsernameTaken, http.StatusConflict},
		{validation.ErrPasswordCommon, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{service.ErrStorageWriteFailed, http.StatusInternalServerError},
		{service.ErrStorageDeleteFailed, http.StatusInternalServerError},
		{service.ErrTokenCollision, http.StatusInternalServerError},
		{errors.Join(service.ErrMetadataFailed, errors.New("disk full")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, message := classify(tt.err)
		assert.Equal(t, tt.want, status, tt.err.Error())
		if status == http.StatusInternalServerError {
			assert.Equal(t, "internal server error", message)
		}
	}
}

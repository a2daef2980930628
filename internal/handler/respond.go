package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/validation"
)

type errorResponse struct {
	Error  string `json:"error"`
	FileID string `json:"file_id,omitempty"`
}

// FileResponse is the JSON shape of a file record. The raw share token is
// only ever exposed as part of ShareURL.
type FileResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	ShareEnabled bool      `json:"share_enabled"`
	ShareURL     string    `json:"share_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role().String(),
		CreatedAt: u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps an error kind to a status code. Messages for
// server-side failures stay generic; details go to the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fileID string) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"error", err,
			"file_id", fileID,
			"method", r.Method,
			"pattern", r.Pattern,
		)
	}
	writeJSON(w, status, errorResponse{Error: message, FileID: fileID})
}

func classify(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, service.ErrInvalidName):
		return http.StatusBadRequest, "invalid file name"
	case errors.Is(err, service.ErrTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "file exceeds maximum upload size"
	case errors.Is(err, service.ErrOwnerNotFound):
		return http.StatusUnprocessableEntity, "owner not found"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "file not found"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, validation.ErrInvalidUsername),
		errors.Is(err, validation.ErrInvalidEmail),
		errors.Is(err, validation.ErrPasswordTooShort),
		errors.Is(err, validation.ErrPasswordTooLong),
		errors.Is(err, validation.ErrPasswordCommon):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

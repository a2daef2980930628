package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/service"
)

// maxCredentialsBody caps register and login request bodies.
const maxCredentialsBody = 16 << 10

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	h.issue(w, r, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	h.issue(w, r, user, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// issue hands out a token both in the body, for API clients, and as the
// auth cookie, for browsers.
func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	h.authService.SetJWTCookie(w, token, expiresAt)
	slog.Info("token issued", "user_id", user.ID)

	writeJSON(w, status, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      newUserResponse(user),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialsBody))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

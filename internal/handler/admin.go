package handler

import (
	"net/http"

	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/service"
)

type AdminHandler struct {
	userService *service.UserService
}

func NewAdminHandler(userService *service.UserService) *AdminHandler {
	return &AdminHandler{
		userService: userService,
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}

	writeJSON(w, http.StatusOK, out)
}

// ShowUser returns one user. Non-admins only get themselves.
func (h *AdminHandler) ShowUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())

	user, err := h.userService.Profile(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/templui/fileshare/internal/app"
	"github.com/templui/fileshare/internal/handler"
	"github.com/templui/fileshare/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	files := handler.NewFileHandler(app.FileService)
	admin := handler.NewAdminHandler(app.UserService)
	health := handler.NewHealthHandler(app.DB)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Share links
	mux.HandleFunc("GET /files/shared/{token}", files.DownloadShared)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth(app.Cfg.AuthRateLimit, app.Cfg.AuthRateWindow)

	mux.HandleFunc("POST /api/auth/register", rateLimiter(auth.Register))
	mux.HandleFunc("POST /api/auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(auth.Me))

	// Files
	mux.HandleFunc("POST /api/files", middleware.RequireAuth(files.Upload))
	mux.HandleFunc("GET /api/files", middleware.RequireAuth(files.List))
	mux.HandleFunc("GET /api/files/{id}", middleware.RequireAuth(files.Show))
	mux.HandleFunc("GET /api/files/{id}/download", middleware.RequireAuth(files.Download))
	mux.HandleFunc("DELETE /api/files/{id}", middleware.RequireAuth(files.Delete))
	mux.HandleFunc("GET /api/users/{id}/files", middleware.RequireAuth(files.ListForUser))

	// Users
	mux.HandleFunc("GET /api/users/{id}", middleware.RequireAuth(admin.ShowUser))

	// Sharing
	mux.HandleFunc("POST /api/files/{id}/share/toggle", middleware.RequireAuth(files.ToggleShare))
	mux.HandleFunc("POST /api/files/{id}/share", middleware.RequireAuth(files.GenerateShareLink))
	mux.HandleFunc("DELETE /api/files/{id}/share", middleware.RequireAuth(files.DisableShare))

	// ============================================================================
	// ADMIN ROUTES
	// ============================================================================

	mux.HandleFunc("GET /api/admin/users", middleware.RequireAdmin(admin.ListUsers))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.RequestLogging,
		middleware.CSRFProtection(app.Cfg.IsProduction()), // Only for cookie-authenticated requests
		middleware.AuthMiddleware(app.AuthService),
		middleware.Metrics, // Must stay last: it reads the pattern the mux matched
	)

	return handler
}

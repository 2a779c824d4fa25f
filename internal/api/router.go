package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/dagbok-backend/internal/middleware"
	"github.com/dagbok-backend/internal/ratelimit"
)

// NewRouter creates a new HTTP router with all routes
func NewRouter(h *Handler, auth *middleware.AuthMiddleware, limiter *ratelimit.Limiter, allowedOrigin string) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// Public routes
	mux.HandleFunc("POST /user/register", h.Register)
	mux.HandleFunc("POST /user/login", h.Login)
	mux.HandleFunc("POST /user/demo", h.Demo)
	mux.HandleFunc("POST /token/refresh", h.Refresh)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/status", h.Status)

	// User routes
	mux.Handle("GET /user/me", auth.Authenticate(http.HandlerFunc(h.Me)))
	mux.Handle("POST /user/logout", auth.Authenticate(http.HandlerFunc(h.Logout)))
	mux.Handle("PUT /user/prompt", auth.Authenticate(http.HandlerFunc(h.UpdatePrompt)))
	mux.Handle("PATCH /user/model", auth.Authenticate(http.HandlerFunc(h.UpdateModel)))

	// Note routes
	mux.Handle("POST /api/notes", auth.Authenticate(http.HandlerFunc(h.CreateNote)))
	mux.Handle("GET /api/notes/user", auth.Authenticate(http.HandlerFunc(h.NotesByDate)))
	mux.Handle("GET /api/notes/search", auth.Authenticate(http.HandlerFunc(h.SearchNotes)))
	mux.Handle("GET /api/notes/counts/{year}/{month}", auth.Authenticate(http.HandlerFunc(h.NoteCounts)))
	mux.Handle("/api/notes/{noteId}", auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			h.UpdateNote(w, r)
		case http.MethodDelete:
			h.DeleteNote(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Rate limiting runs before authentication so floods are cut off
	// without paying for token verification.
	handler := middleware.CORS(allowedOrigin)(middleware.JSON(middleware.Logger(limiter.Middleware(mux))))

	return handler
}

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/isdelr/insight-board-be/internal/api/handlers"
	"github.com/isdelr/insight-board-be/internal/auth"
	"github.com/isdelr/insight-board-be/internal/services"
)

// NewRouter creates and configures a new Chi router. The route paths are part
// of the client contract and live at the root, not under an /api prefix.
func NewRouter(
	tokens *auth.Manager,
	userService services.UserServiceProvider,
	uploadService services.UploadServiceProvider,
	enableDevRoutes bool,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack. Recoverer is the top-level guard: a panic in
	// any handler becomes a 500, never a dead process.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration for the dashboard frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Adjust for your frontend URL
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	profileHandler := handlers.NewProfileHandler(userService, tokens)
	uploadHandler := handlers.NewUploadHandler(uploadService)

	// Public endpoints
	r.Post("/signup", authHandler.Signup)
	r.Post("/login", authHandler.Login)

	// Bearer-protected endpoints
	r.Group(func(r chi.Router) {
		r.Use(tokens.Middleware())
		r.Get("/get-user-profile", profileHandler.GetProfile)
		r.Post("/update-profile", profileHandler.UpdateProfile)
		r.Post("/upload-data-file", uploadHandler.Upload)
	})

	// Development-only diagnostics; off unless explicitly enabled.
	if enableDevRoutes {
		devHandler := handlers.NewDevHandler(userService)
		r.Get("/test-db", devHandler.TestDB)
		r.Get("/users", devHandler.ListUsers)
		r.Get("/system", devHandler.SystemInfo)
	}

	return r
}

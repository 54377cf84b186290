package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-user-service/internal/config"
	"go-user-service/internal/handler"
	"go-user-service/internal/middleware"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/auth/login", authHandler.Login)

		api.Route("/users", func(users chi.Router) {
			users.Post("/", userHandler.Create)
			users.With(authMiddleware.RequireAuth).Get("/", userHandler.List)
			users.Get("/{id}", userHandler.Get)
			users.Put("/{id}", userHandler.Update)
		})
	})

	return r
}

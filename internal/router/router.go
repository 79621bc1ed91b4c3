package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-identity-service/internal/config"
	"go-identity-service/internal/handler"
	"go-identity-service/internal/middleware"
	"go-identity-service/internal/model"
)

type Handlers struct {
	Auth  *handler.AuthHandler
	Audit *handler.AuditHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimit.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/Auth", func(auth chi.Router) {
		auth.Use(middleware.Timeout(cfg.RequestTimeout))

		auth.Post("/Register", h.Auth.Register)
		auth.Post("/Login", h.Auth.Login)
		auth.Post("/Logout", authMiddleware.RequireAuth(h.Auth.Logout))
		auth.Get("/Showprofile", authMiddleware.RequireAuth(h.Auth.ShowProfile))
		auth.Put("/ChangePassword", authMiddleware.RequireAuth(h.Auth.ChangePassword))
		auth.Put("/UpdateProfile", authMiddleware.RequireAuth(h.Auth.UpdateProfile))
		auth.Delete("/DeleteAccount", authMiddleware.RequireAuth(h.Auth.DeleteAccount))
		auth.Get("/Audit", authMiddleware.RequireRole(model.RoleAdmin, h.Audit.List))
	})

	return r
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"syncactivity/internal/handler"
	"syncactivity/internal/httputil"
	"syncactivity/internal/metrics"
	authmw "syncactivity/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	FriendHandler   *handler.FriendHandler
	ActivityHandler *handler.ActivityHandler

	Tokens authmw.TokenVerifier
	Users  authmw.UserResolver

	AuthLimiter    *authmw.RateLimiter
	AllowedOrigins []string
	Registry       *prometheus.Registry
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authmw.Metrics(metrics.NewHTTP(cfg.Registry)))
	r.Use(authmw.CORS(cfg.AllowedOrigins))

	r.Get("/", handler.Root)
	r.Get("/health", handler.Health)
	r.Handle("/metrics", metrics.Handler(cfg.Registry))

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.With(cfg.AuthLimiter.Middleware).Post("/register", cfg.AuthHandler.Register)
		r.With(cfg.AuthLimiter.Middleware).Post("/login", cfg.AuthHandler.Login)
		r.Get("/login", cfg.AuthHandler.BeginLogin)
		r.Get("/callback", cfg.AuthHandler.Callback)
		r.Get("/logout", cfg.AuthHandler.Logout)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.Tokens, cfg.Users))

		r.Get("/profile", cfg.UserHandler.GetProfile)
		r.Put("/profile", cfg.UserHandler.UpdateProfile)
		r.Put("/profile/picture", cfg.UserHandler.UpdateProfilePicture)
		r.Get("/users/search", cfg.UserHandler.Search)

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", cfg.FriendHandler.ListFriends)
			r.Get("/requests/pending", cfg.FriendHandler.ListPending)
			r.Post("/requests/send", cfg.FriendHandler.SendRequest)
			r.Post("/requests/{id}/accept", cfg.FriendHandler.Accept)
			r.Post("/requests/{id}/reject", cfg.FriendHandler.Reject)
			r.Delete("/{id}/unfriend", cfg.FriendHandler.Unfriend)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", cfg.ActivityHandler.List)
			r.Post("/", cfg.ActivityHandler.Create)
			r.Get("/friends", cfg.ActivityHandler.FriendsFeed)
			r.Get("/{id}", cfg.ActivityHandler.Get)
			r.Patch("/{id}", cfg.ActivityHandler.Update)
			r.Delete("/{id}", cfg.ActivityHandler.Delete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Route not found")
	})

	return r
}

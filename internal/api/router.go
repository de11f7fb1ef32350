package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/devsec-blog-be/internal/api/handlers"
	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/isdelr/devsec-blog-be/internal/websocket"
)

// Dependencies are the collaborators the router wires into its handlers.
type Dependencies struct {
	Tokens         *auth.TokenManager
	Users          services.UserServiceProvider
	Posts          services.PostServiceProvider
	Comments       services.CommentServiceProvider
	Uploads        services.UploadServiceProvider
	Events         services.EventServiceProvider
	Dashboard      services.DashboardServiceProvider
	DB             handlers.Pinger
	Hub            *websocket.Hub
	UploadDir      string
	AllowedOrigins []string
	Debug          bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(Recoverer(deps.Debug))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Users)
	userHandler := handlers.NewUserHandler(deps.Users)
	postHandler := handlers.NewPostHandler(deps.Posts)
	commentHandler := handlers.NewCommentHandler(deps.Comments)
	uploadHandler := handlers.NewUploadHandler(deps.Uploads)
	eventHandler := handlers.NewEventHandler(deps.Events)
	adminHandler := handlers.NewAdminHandler(deps.Dashboard, deps.DB)

	requireAuth := auth.RequireAuth(deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", adminHandler.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Put("/password", authHandler.ChangePassword)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.GetPublished)
			r.With(auth.OptionalAuth(deps.Tokens)).Get("/{identifier}", postHandler.Get)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAuth, auth.RequireAdmin)
				r.Get("/all", postHandler.GetAll)
				r.Post("/", postHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", postHandler.Update)
					r.Patch("/", postHandler.Update)
					r.Delete("/", postHandler.Delete)
					r.Post("/toggle", postHandler.Toggle)
				})
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", commentHandler.Create)
			r.Get("/user", commentHandler.GetMine)
			r.Delete("/{id}", commentHandler.Delete)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/all", commentHandler.GetAll)
				r.Put("/{id}", commentHandler.Update)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth, auth.RequireAdmin)
			r.Get("/", userHandler.GetAll)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})
		})

		r.With(requireAuth, auth.RequireAdmin).Post("/upload", uploadHandler.Upload)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, auth.RequireAdmin)
			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/events", eventHandler.GetRecent)
			if deps.Hub != nil {
				r.Get("/events/stream", handlers.NewStreamHandler(deps.Hub, deps.AllowedOrigins).Serve)
			}
		})
	})

	if deps.UploadDir != "" {
		fs := http.StripPrefix(services.UploadURLPrefix, http.FileServer(http.Dir(deps.UploadDir)))
		r.Get(services.UploadURLPrefix+"*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			fs.ServeHTTP(w, r)
		})
	}

	return r
}

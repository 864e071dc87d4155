package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/usergate/internal/api"
	"github.com/phrazzld/usergate/internal/config"
)

// setupRouter registers every route. Authentication, audit and failure
// handling happen in the pipeline around the router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.CleanPath)

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.logger)

	// A nil *sql.DB must not become a non-nil Pinger.
	var healthHandler *api.HealthHandler
	if app.db != nil {
		healthHandler = api.NewHealthHandler(app.db)
	} else {
		healthHandler = api.NewHealthHandler(nil)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.AllowContentType("application/json"))

		r.Post("/auth/register", api.Handle(authHandler.Register))
		r.Post("/auth/login", api.Handle(authHandler.Login))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", api.Handle(userHandler.List))
			r.Get("/me", api.Handle(userHandler.Me))
			r.Get("/{id}", api.Handle(userHandler.Get))
			r.Put("/{id}", api.Handle(userHandler.Update))
			r.Delete("/{id}", api.Handle(userHandler.Delete))
		})

		if app.config.Server.Environment == config.EnvDevelopment {
			r.Post("/test/echo", api.Handle(api.Echo))
		}
	})

	r.Get("/health", api.Handle(healthHandler.Health))
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	return r
}

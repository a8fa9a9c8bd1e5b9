package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/codeforge-api/internal/api"
	apiMiddleware "github.com/phrazzld/codeforge-api/internal/api/middleware"
	"github.com/phrazzld/codeforge-api/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(app.logger))

	problems := api.NewProblemHandler(app.problems, app.logger, api.WithShutdownContext(app.shutdown))
	system := api.NewSystemHandler(app.cache)

	generationLimit := apiMiddleware.RateLimit(app.limiter, ratelimit.ClassGeneration)
	apiLimit := apiMiddleware.RateLimit(app.limiter, ratelimit.ClassAPI)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(generationLimit)
			r.Post("/problems/generate", problems.GenerateProblems)
			r.Post("/generations", problems.SubmitGeneration)
		})

		r.Group(func(r chi.Router) {
			r.Use(apiLimit)
			r.Get("/problems", problems.ListProblems)
			r.Get("/problems/search", problems.SearchProblems)
			r.Get("/problems/stats", problems.Stats)
			r.Get("/problems/{id}", problems.GetProblem)
			r.Delete("/problems/{id}", problems.DeleteProblem)
			r.Get("/generations/{id}", problems.GetGeneration)
			r.Get("/cache/stats", system.CacheStats)
		})
	})

	r.Get("/health", system.Health)
	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return r
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexusplatform/orchestrator/internal/api"
	"github.com/nexusplatform/orchestrator/internal/api/middleware"
)

// buildRouter assembles the HTTP API over the application's components.
func (app *application) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.engine, app.limiter, app.logger)
	subscriptionHandler := api.NewSubscriptionHandler(app.subs, app.logger)
	statusHandler := api.NewStatusHandler(app.engine, app.monitor)
	instanceHandler := api.NewInstanceHandler(app.router, app.logger)
	checkoutHandler := api.NewCheckoutHandler(app.watcher, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.Enqueue)
		r.Get("/tasks/{id}", taskHandler.Get)

		r.Post("/subscriptions", subscriptionHandler.Subscribe)
		r.Get("/subscriptions/active", subscriptionHandler.Active)

		r.Get("/status", statusHandler.Get)

		r.Get("/instances/select", instanceHandler.Select)
		r.Post("/instances/{id}/failures", instanceHandler.ReportFailure)

		r.Post("/checkouts", checkoutHandler.Track)
		r.Delete("/checkouts/{user_id}", checkoutHandler.Complete)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

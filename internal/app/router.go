// Package app wires configuration, adapters and services into runnable
// HTTP and readiness surfaces.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/procureflow/procureflow/internal/adapter/httpserver"
	"github.com/procureflow/procureflow/internal/config"
	"github.com/procureflow/procureflow/internal/observability"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input means all origins.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middleware and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server, ready *Readiness) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(cfg.HTTPWriteTimeout))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		// Rate limit mutating endpoints; reads stay unthrottled.
		api.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			wr.Post("/rfps", srv.CreateRFP)
			wr.Put("/rfps/{id}", srv.UpdateRFP)
			wr.Delete("/rfps/{id}", srv.DeleteRFP)
			wr.Post("/vendors", srv.CreateVendor)
			wr.Put("/vendors/{id}", srv.UpdateVendor)
			wr.Delete("/vendors/{id}", srv.DeleteVendor)
			wr.Post("/email/rfps/{id}/send", srv.SendRFP)
		})

		api.Get("/rfps", srv.ListRFPs)
		api.Get("/rfps/{id}", srv.GetRFP)
		api.Get("/rfps/{id}/proposals", srv.ListRFPProposals)
		api.Get("/rfps/{id}/comparison", srv.GetComparison)
		api.Get("/vendors", srv.ListVendors)
		api.Get("/vendors/{id}", srv.GetVendor)
		api.Get("/email/verify", srv.VerifyEmail)
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`{"success":true,"status":"ok"}`))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	if ready != nil {
		r.Get("/readyz", ready.Handler())
	}

	return httpserver.SecurityHeaders(r)
}

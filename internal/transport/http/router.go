package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all public endpoints plus the Prometheus scrape target.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	handler.Register(r)
	return r
}

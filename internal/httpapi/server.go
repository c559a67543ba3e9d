// Package httpapi serves a read-mostly diagnostics API over a running
// worker manager.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"workerd/internal/device"
	"workerd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Capabilities() device.Capabilities
	ResourceStats() types.ResourceStats
	PerformanceReports() map[string]types.ExecutionReport
	ListModels() []types.Model
	Reap() int
	Ready() bool
}

// NewMux returns the diagnostics router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		origins, methods, headers := corsDefaults()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := handlers{svc: svc}
	r.Get("/device", h.device)
	r.Get("/stats", h.stats)
	r.Get("/reports", h.reports)
	r.Get("/reports/{model}", h.report)
	r.Get("/models", h.models)
	r.Post("/reap", h.reap)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("warming"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct{ svc Service }

// device godoc
// @Summary      Device capabilities
// @Description  Result of the one-shot device probe, including the recommended backend.
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  device.Capabilities
// @Router       /device [get]
func (h handlers) device(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Capabilities())
}

// stats godoc
// @Summary      Worker pool resource usage
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  types.ResourceStats
// @Router       /stats [get]
func (h handlers) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.ResourceStats())
}

// reports godoc
// @Summary      Latest execution report per model
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  types.ReportsResponse
// @Router       /reports [get]
func (h handlers) reports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.ReportsResponse{Reports: h.svc.PerformanceReports()})
}

// report godoc
// @Summary      Latest execution report for one model
// @Tags         diagnostics
// @Produce      json
// @Param        model  path  string  true  "Model id"
// @Success      200  {object}  types.ExecutionReport
// @Failure      404  {object}  types.ErrorResponse
// @Router       /reports/{model} [get]
func (h handlers) report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "model")
	rep, ok := h.svc.PerformanceReports()[id]
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no report for model "+id)
		return
	}
	writeJSON(w, rep)
}

// models godoc
// @Summary      Discovered model assets
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h handlers) models(w http.ResponseWriter, r *http.Request) {
	models := h.svc.ListModels()
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, types.ModelsResponse{Models: models})
}

// reap godoc
// @Summary      Evict idle workers now
// @Description  Ignores the pressure and interval conditions; the idle timeout still applies.
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  types.ReapResponse
// @Router       /reap [post]
func (h handlers) reap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.ReapResponse{Evicted: h.svc.Reap()})
}

package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spiredms/docbridge/bridge"
)

// Version is the gateway version reported by the status endpoint.
const Version = "1.0.0"

//go:embed openapi.yaml
var openapiSpec []byte

// API holds the dependencies needed by the REST handlers.
type API struct {
	svc     *bridge.Service
	logger  *slog.Logger
	metrics *httpMetrics
	promReg *prometheus.Registry
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for request handling.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// New creates a new API instance around a bridge service.
func New(svc *bridge.Service, opts ...Option) *API {
	a := &API{
		svc:     svc,
		promReg: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.metrics = newHTTPMetrics(a.promReg, func() float64 {
		return float64(svc.Registry().ActiveSessions())
	})
	return a
}

// Router returns a chi.Router with all gateway routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.metrics.middleware)

	r.Get("/health", a.Health)
	r.Handle("/metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/yaml")
			w.Write(openapiSpec)
		})
		r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
			SpecURL: "/api/v1/openapi.yaml",
			Path:    "api/v1/docs",
		}, nil))
		r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
			SpecURL: "/api/v1/openapi.yaml",
			Path:    "api/v1/redoc",
		}, nil))

		r.Get("/status", a.Status)

		r.Post("/connect", a.Connect)
		r.Post("/disconnect", a.Disconnect)
		r.Get("/session/{sessionID}", a.GetSession)
		r.Get("/session/{sessionID}/valid", a.SessionValid)

		r.Post("/dql", a.ExecuteDQL)
		r.Get("/dql/available", a.DQLAvailable)

		r.Post("/objects", a.CreateObject)
		r.Get("/objects/{objectID}", a.GetObject)
		r.Post("/objects/{objectID}", a.UpdateObject)
		r.Delete("/objects/{objectID}", a.DeleteObject)
		r.Get("/objects/{folderID}/contents", a.FolderContents)
		r.Put("/objects/{objectID}/lock", a.Checkout)
		r.Delete("/objects/{objectID}/lock", a.CancelCheckout)
		r.Post("/objects/{objectID}/versions", a.Checkin)
		r.Get("/cabinets", a.Cabinets)

		r.Get("/types", a.ListTypes)
		r.Get("/types/{typeName}", a.GetType)

		r.Get("/users", a.ListUsers)
		r.Get("/users/{userName}", a.GetUser)
		r.Get("/users/{userName}/groups", a.GroupsForUser)
		r.Get("/groups", a.ListGroups)
		r.Get("/groups/{groupName}", a.GetGroup)
		r.Get("/groups/{groupName}/parents", a.ParentGroups)
	})

	return r
}

package api

import (
	"context"
	"net/http"
	"time"

	"orgdir/config"
	"orgdir/core"
	"orgdir/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Directory defines the directory operations the API exposes.
// Implemented by service.DirectoryService.
type Directory interface {
	NormalizePage(skip, limit int) service.Page
	SearchByName(ctx context.Context, name string, page service.Page) ([]core.Organization, error)
	ListByBuilding(ctx context.Context, buildingID int64, page service.Page) ([]core.Organization, error)
	SearchByActivity(ctx context.Context, activityID int64, includeDescendants bool, page service.Page) ([]core.Organization, error)
	SearchRadius(ctx context.Context, center core.GeoPoint, radiusKm float64, page service.Page) ([]core.Organization, error)
	SearchRectangle(ctx context.Context, box core.BoundingBox, page service.Page) ([]core.Organization, error)
	GetOrganization(ctx context.Context, id int64) (*core.OrganizationDetail, error)
}

// HealthChecker reports storage liveness for the health endpoint
type HealthChecker interface {
	HealthCheck() error
}

// API holds the HTTP server for the directory
type API struct {
	router    *mux.Router
	server    *http.Server
	directory Directory
	health    HealthChecker
	config    *config.Config
	logger    *zap.SugaredLogger
	limiter   *rate.Limiter
}

// NewAPI creates a new API server
func NewAPI(directory Directory, health HealthChecker, cfg *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		router:    mux.NewRouter(),
		directory: directory,
		health:    health,
		config:    cfg,
		logger:    logger,
		limiter: rate.NewLimiter(
			rate.Limit(cfg.API.RateLimit.RequestsPerSecond),
			cfg.API.RateLimit.Burst,
		),
	}
	api.setupRoutes()
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.metricsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())

	// Organization routes require the API key when one is configured
	orgs := a.router.PathPrefix("/api/organizations").Subrouter()
	orgs.Use(a.apiKeyMiddleware)
	orgs.HandleFunc("", a.searchOrganizations).Methods("GET")
	orgs.HandleFunc("/building/{id:[0-9]+}", a.getOrganizationsByBuilding).Methods("GET")
	orgs.HandleFunc("/activity/{id:[0-9]+}", a.getOrganizationsByActivity).Methods("GET")
	orgs.HandleFunc("/search/radius", a.searchRadius).Methods("POST")
	orgs.HandleFunc("/search/rectangle", a.searchRectangle).Methods("POST")
	orgs.HandleFunc("/{id:[0-9]+}", a.getOrganization).Methods("GET")
}

// Handler returns the root HTTP handler, used by tests
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.logger.Infof("API server listening on %s", addr)
	return a.server.ListenAndServe()
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

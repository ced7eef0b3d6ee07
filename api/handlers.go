package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"orgdir/core"
	"orgdir/service"
	"orgdir/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New()

// radiusSearchRequest is the body of POST /api/organizations/search/radius
type radiusSearchRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusKm  float64 `json:"radius_km" validate:"gt=0"`
	Skip      int     `json:"skip" validate:"gte=0"`
	Limit     int     `json:"limit" validate:"gte=0"`
}

// rectangleSearchRequest is the body of POST /api/organizations/search/rectangle
type rectangleSearchRequest struct {
	MinLatitude  float64 `json:"min_latitude" validate:"gte=-90,lte=90"`
	MaxLatitude  float64 `json:"max_latitude" validate:"gte=-90,lte=90,gtefield=MinLatitude"`
	MinLongitude float64 `json:"min_longitude" validate:"gte=-180,lte=180"`
	MaxLongitude float64 `json:"max_longitude" validate:"gte=-180,lte=180,gtefield=MinLongitude"`
	Skip         int     `json:"skip" validate:"gte=0"`
	Limit        int     `json:"limit" validate:"gte=0"`
}

// respondJSON writes a JSON response with proper error handling
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
		// Response already started, can't send error to client
	}
}

// respondStorageError maps storage sentinels to HTTP status codes
func (a *API) respondStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrOrganizationNotFound),
		errors.Is(err, storage.ErrBuildingNotFound),
		errors.Is(err, storage.ErrActivityNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		a.logger.Errorw("Request failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pageFromQuery reads skip/limit query parameters
func (a *API) pageFromQuery(r *http.Request) service.Page {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return a.directory.NormalizePage(skip, limit)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// emptyAsList keeps JSON responses as [] instead of null for empty results
func emptyAsList(orgs []core.Organization) []core.Organization {
	if orgs == nil {
		return []core.Organization{}
	}
	return orgs
}

func (a *API) searchOrganizations(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	orgs, err := a.directory.SearchByName(r.Context(), name, a.pageFromQuery(r))
	if err != nil {
		a.respondStorageError(w, err)
		return
	}
	a.respondJSON(w, emptyAsList(orgs), http.StatusOK)
}

func (a *API) getOrganizationsByBuilding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid building id", http.StatusBadRequest)
		return
	}

	orgs, err := a.directory.ListByBuilding(r.Context(), id, a.pageFromQuery(r))
	if err != nil {
		a.respondStorageError(w, err)
		return
	}
	a.respondJSON(w, emptyAsList(orgs), http.StatusOK)
}

func (a *API) getOrganizationsByActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid activity id", http.StatusBadRequest)
		return
	}

	// Subtree expansion is on unless explicitly disabled
	includeDescendants := true
	if v := r.URL.Query().Get("include_children"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "Invalid include_children value", http.StatusBadRequest)
			return
		}
		includeDescendants = parsed
	}

	orgs, err := a.directory.SearchByActivity(r.Context(), id, includeDescendants, a.pageFromQuery(r))
	if err != nil {
		a.respondStorageError(w, err)
		return
	}
	a.respondJSON(w, emptyAsList(orgs), http.StatusOK)
}

func (a *API) searchRadius(w http.ResponseWriter, r *http.Request) {
	var req radiusSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, fmt.Sprintf("Validation failed: %v", err), http.StatusBadRequest)
		return
	}

	center := core.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude}
	orgs, err := a.directory.SearchRadius(r.Context(), center, req.RadiusKm, a.directory.NormalizePage(req.Skip, req.Limit))
	if err != nil {
		a.respondStorageError(w, err)
		return
	}
	a.respondJSON(w, emptyAsList(orgs), http.StatusOK)
}

func (a *API) searchRectangle(w http.ResponseWriter, r *http.Request) {
	var req rectangleSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, fmt.Sprintf("Validation failed: %v", err), http.StatusBadRequest)
		return
	}

	box := core.BoundingBox{
		MinLatitude:  req.MinLatitude,
		MaxLatitude:  req.MaxLatitude,
		MinLongitude: req.MinLongitude,
		MaxLongitude: req.MaxLongitude,
	}
	orgs, err := a.directory.SearchRectangle(r.Context(), box, a.directory.NormalizePage(req.Skip, req.Limit))
	if err != nil {
		a.respondStorageError(w, err)
		return
	}
	a.respondJSON(w, emptyAsList(orgs), http.StatusOK)
}

func (a *API) getOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid organization id", http.StatusBadRequest)
		return
	}

	detail, err := a.directory.GetOrganization(r.Context(), id)
	if err != nil {
		a.respondStorageError(w, err)
		return
	}
	a.respondJSON(w, detail, http.StatusOK)
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health.HealthCheck(); err != nil {
			a.respondJSON(w, map[string]string{"status": "unhealthy", "error": err.Error()}, http.StatusServiceUnavailable)
			return
		}
	}
	a.respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"orgdir/config"
	"orgdir/core"
	"orgdir/service"
	"orgdir/storage"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T, apiKey string) *config.Config {
	t.Helper()
	viper.Reset()
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.API.Key = apiKey
	return cfg
}

func newTestAPI(t *testing.T, apiKey string) (*API, *storage.DB) {
	t.Helper()

	logger := zap.NewNop().Sugar()
	db, err := storage.Open(storage.DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runner, err := storage.NewMigrationRunner(db, logger)
	require.NoError(t, err)
	require.NoError(t, runner.RunMigrations())

	_, err = storage.NewSeeder(db, logger).Seed(context.Background(), storage.DefaultSeedDataset())
	require.NoError(t, err)

	svc, err := service.NewDirectoryService(
		storage.NewOrganizationStorage(db, logger),
		storage.NewActivityStorage(db, logger),
		storage.NewBuildingStorage(db, logger),
		logger,
		service.DirectoryServiceOptions{},
	)
	require.NoError(t, err)

	return NewAPI(svc, db, testConfig(t, apiKey), logger), db
}

func doRequest(t *testing.T, a *API, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeOrganizations(t *testing.T, rec *httptest.ResponseRecorder) []core.Organization {
	t.Helper()
	var orgs []core.Organization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orgs))
	return orgs
}

func TestSearchOrganizationsByName(t *testing.T) {
	a, _ := newTestAPI(t, "")

	rec := doRequest(t, a, "GET", "/api/organizations?name=foods", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	orgs := decodeOrganizations(t, rec)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Best Foods Inc.", orgs[0].Name)

	// Empty name matches everything
	rec = doRequest(t, a, "GET", "/api/organizations", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeOrganizations(t, rec), 6)

	// No match yields an empty list, not null
	rec = doRequest(t, a, "GET", "/api/organizations?name=nothing", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestAPIKeyEnforcement(t *testing.T) {
	a, _ := newTestAPI(t, "test-key")

	rec := doRequest(t, a, "GET", "/api/organizations", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, a, "GET", "/api/organizations", nil, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, a, "GET", "/api/organizations", nil, map[string]string{"X-API-Key": "test-key"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health endpoint never requires the key
	rec = doRequest(t, a, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOrganizationsByBuilding(t *testing.T) {
	a, db := newTestAPI(t, "")
	logger := zap.NewNop().Sugar()

	b, err := storage.NewBuildingStorage(db, logger).FindBuildingByAddress(context.Background(), "321 Pine St, Seattle")
	require.NoError(t, err)

	rec := doRequest(t, a, "GET", fmt.Sprintf("/api/organizations/building/%d", b.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orgs := decodeOrganizations(t, rec)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Truck Paradise", orgs[0].Name)

	rec = doRequest(t, a, "GET", "/api/organizations/building/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrganizationsByActivity(t *testing.T) {
	a, db := newTestAPI(t, "")
	logger := zap.NewNop().Sugar()
	activities := storage.NewActivityStorage(db, logger)

	food, err := activities.FindActivityByName(context.Background(), "Food", nil)
	require.NoError(t, err)

	rec := doRequest(t, a, "GET", fmt.Sprintf("/api/organizations/activity/%d", food.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeOrganizations(t, rec), 3)

	// Direct links only
	rec = doRequest(t, a, "GET", fmt.Sprintf("/api/organizations/activity/%d?include_children=false", food.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeOrganizations(t, rec), 3)

	rec = doRequest(t, a, "GET", "/api/organizations/activity/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, a, "GET", fmt.Sprintf("/api/organizations/activity/%d?include_children=banana", food.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRadius(t *testing.T) {
	a, _ := newTestAPI(t, "")

	body, _ := json.Marshal(map[string]interface{}{
		"latitude":  40.72,
		"longitude": -74.0,
		"radius_km": 10,
	})
	rec := doRequest(t, a, "POST", "/api/organizations/search/radius", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeOrganizations(t, rec), 3)

	// Radius must be positive
	body, _ = json.Marshal(map[string]interface{}{
		"latitude":  40.72,
		"longitude": -74.0,
		"radius_km": 0,
	})
	rec = doRequest(t, a, "POST", "/api/organizations/search/radius", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, a, "POST", "/api/organizations/search/radius", []byte("{"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRectangle(t *testing.T) {
	a, _ := newTestAPI(t, "")

	body, _ := json.Marshal(map[string]interface{}{
		"min_latitude":  37.0,
		"max_latitude":  38.0,
		"min_longitude": -123.0,
		"max_longitude": -122.0,
	})
	rec := doRequest(t, a, "POST", "/api/organizations/search/rectangle", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeOrganizations(t, rec), 2)

	// Inverted box fails validation
	body, _ = json.Marshal(map[string]interface{}{
		"min_latitude":  38.0,
		"max_latitude":  37.0,
		"min_longitude": -123.0,
		"max_longitude": -122.0,
	})
	rec = doRequest(t, a, "POST", "/api/organizations/search/rectangle", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrganizationDetail(t *testing.T) {
	a, db := newTestAPI(t, "")
	logger := zap.NewNop().Sugar()

	org, err := storage.NewOrganizationStorage(db, logger).FindOrganizationByName(context.Background(), "Car Parts Emporium")
	require.NoError(t, err)

	rec := doRequest(t, a, "GET", fmt.Sprintf("/api/organizations/%d", org.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail core.OrganizationDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Car Parts Emporium", detail.Name)
	assert.Equal(t, "654 Broadway, New York", detail.Building.Address)
	assert.Len(t, detail.PhoneNumbers, 2)
	assert.Len(t, detail.Activities, 3)

	rec = doRequest(t, a, "GET", "/api/organizations/123456", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	a, _ := newTestAPI(t, "")

	rec := doRequest(t, a, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRequestIDHeader(t *testing.T) {
	a, _ := newTestAPI(t, "")

	rec := doRequest(t, a, "GET", "/health", nil, nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = doRequest(t, a, "GET", "/health", nil, map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/grid-geo-etl/internal/adapter/http"
	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubConverter struct {
	err error
}

func (s stubConverter) Convert(_ osgb.Planar) (osgb.Geographic, error) {
	return osgb.Geographic{}, s.err
}

func newTestServer(readyErr error) *httpadapter.Server {
	conv, err := osgb.NewConverter(osgb.AiryNationalGrid)
	if err != nil {
		panic(err)
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, conv, slog.Default())
}

func get(t *testing.T, srv http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestConvert_FalseOrigin(t *testing.T) {
	rec, body := get(t, newTestServer(nil), "/v1/convert?easting=400000&northing=-100000")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 49.0, body["lat"], 1e-9)
	assert.InDelta(t, -2.0, body["lon"], 1e-9)
	assert.InDelta(t, 400000.0, body["easting"], 0)
	assert.InDelta(t, -100000.0, body["northing"], 0)
}

func TestConvert_Soho(t *testing.T) {
	rec, body := get(t, newTestServer(nil), "/v1/convert?easting=529396.539&northing=181025.063")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 51.512831535, body["lat"], 1e-8)
	assert.InDelta(t, -0.135062143, body["lon"], 1e-8)
}

func TestConvert_BadRequests(t *testing.T) {
	cases := []struct {
		name  string
		query string
		msg   string
	}{
		{name: "missing easting", query: "northing=1", msg: "missing easting"},
		{name: "missing northing", query: "easting=1", msg: "missing northing"},
		{name: "not a number", query: "easting=abc&northing=1", msg: "parse easting"},
		{name: "NaN", query: "easting=NaN&northing=1", msg: "must be finite"},
		{name: "infinite", query: "easting=1&northing=Inf", msg: "must be finite"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := get(t, newTestServer(nil), "/v1/convert?"+tc.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_input", body["kind"])
			assert.Contains(t, body["error"], tc.msg)
		})
	}
}

func TestConvert_ConvergenceFailure(t *testing.T) {
	conv := stubConverter{err: &osgb.ConvergenceError{Easting: 1, Northing: 2, Iterations: 100}}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, conv, slog.Default())

	rec, body := get(t, srv, "/v1/convert?easting=1&northing=2")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "convergence", body["kind"])
}

func TestConvert_InternalError(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, stubConverter{err: fmt.Errorf("boom")}, slog.Default())

	rec, body := get(t, srv, "/v1/convert?easting=1&northing=2")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "other", body["kind"])
}

func TestConvert_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/convert", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

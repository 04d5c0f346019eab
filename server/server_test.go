package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dickeyy/bundle-dashboard/dashboard"
	"github.com/dickeyy/bundle-dashboard/metrics"
	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaderFunc func(ctx context.Context) ([]types.MeasurementRecord, error)

func (f loaderFunc) Load(ctx context.Context) ([]types.MeasurementRecord, error) { return f(ctx) }

var fixedNow = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, load loaderFunc) (*httptest.Server, *dashboard.Controller) {
	t.Helper()
	reg := prometheus.NewRegistry()
	surface := dashboard.NewHTMLSurface()
	ctrl := dashboard.New(load, surface,
		dashboard.WithClock(func() time.Time { return fixedNow }),
		dashboard.WithMetrics(metrics.New(reg)),
	)
	srv := httptest.NewServer(NewRouter(ctrl, surface, Options{Refresh: 300, Gatherer: reg}))
	t.Cleanup(srv.Close)
	return srv, ctrl
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func sizePtr(n int64) *int64 { return &n }

func okLoader(context.Context) ([]types.MeasurementRecord, error) {
	return []types.MeasurementRecord{
		{Timestamp: fixedNow.Add(-2 * time.Hour), Repo: "mobile-app", Branch: "main", AndroidSize: sizePtr(1536), IOSSize: sizePtr(2048)},
	}, nil
}

func TestPageBeforeLoad(t *testing.T) {
	srv, _ := newTestServer(t, okLoader)

	status, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<meta http-equiv="refresh" content="300">`)
	assert.Contains(t, body, `<tbody id="bundle-tbody">`)
	assert.Contains(t, body, dashboard.LoadingMessage)
	assert.Contains(t, body, `<div class="stat-value" id="total-entries">-</div>`)
}

func TestPageAfterLoad(t *testing.T) {
	srv, ctrl := newTestServer(t, okLoader)
	require.NoError(t, ctrl.LoadData(context.Background()))

	_, body := get(t, srv.URL+"/")
	assert.Contains(t, body, `<td class="version-cell">main</td>`)
	assert.Contains(t, body, `<span class="size-android">1.5 KB</span>`)
	assert.Contains(t, body, `id="total-entries">1</div>`)
	assert.Contains(t, body, `id="latest-ios">2 KB</div>`)
	assert.Contains(t, body, `id="last-updated">2 hours ago</div>`)
}

func TestPageAfterFailedLoad(t *testing.T) {
	srv, ctrl := newTestServer(t, func(context.Context) ([]types.MeasurementRecord, error) {
		return nil, &types.FetchError{StatusCode: 404, Status: "Not Found"}
	})
	require.Error(t, ctrl.LoadData(context.Background()))

	_, body := get(t, srv.URL+"/")
	assert.Contains(t, body, dashboard.LoadErrorMessage)
	assert.Contains(t, body, `id="total-entries">-</div>`)

	status, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"state":"failed"}`, body)
}

func TestRowsAPI(t *testing.T) {
	srv, ctrl := newTestServer(t, okLoader)
	require.NoError(t, ctrl.LoadData(context.Background()))

	status, body := get(t, srv.URL+"/api/rows")
	require.Equal(t, http.StatusOK, status)

	var resp rowsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "loaded", resp.State)
	assert.Equal(t, "1", resp.Fields[dashboard.FieldTotalEntries])
	require.Len(t, resp.Rows, 1)
	assert.Len(t, resp.Rows[0].Cells, dashboard.Columns)
}

func TestHealthLoaded(t *testing.T) {
	srv, ctrl := newTestServer(t, okLoader)
	status, _ := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	require.NoError(t, ctrl.LoadData(context.Background()))
	status, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"state":"loaded"}`, body)
}

func TestReloadEndpoint(t *testing.T) {
	var calls atomic.Int32
	srv, _ := newTestServer(t, func(ctx context.Context) ([]types.MeasurementRecord, error) {
		calls.Add(1)
		return okLoader(ctx)
	})

	resp, err := http.Post(srv.URL+"/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMetricsEndpoint(t *testing.T) {
	srv, ctrl := newTestServer(t, okLoader)
	require.NoError(t, ctrl.LoadData(context.Background()))

	status, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, `bundledash_loads_total{result="success"} 1`), body)
	assert.Contains(t, body, "bundledash_records 1")
}

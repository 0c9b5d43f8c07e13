package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/config"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/store"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore, *monitoring.Metrics) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()

	pending := types.NewCrawlRecord("https://api.github.com/repos/o/r/contents/tools/a", types.ArtifactShedTool)
	require.NoError(t, st.Put(ctx, pending))

	done := types.NewCrawlRecord("https://api.github.com/repos/o/r/contents/tools/b", types.ArtifactShedTool)
	require.NoError(t, done.Transition(types.StatusProcessing))
	require.NoError(t, done.Complete(4))
	require.NoError(t, st.Put(ctx, done))

	failed := types.NewCrawlRecord("https://api.github.com/repos/o/r/contents/tools/c", types.ArtifactShedTool)
	require.NoError(t, failed.Transition(types.StatusProcessing))
	require.NoError(t, failed.Fail("404"))
	require.NoError(t, st.Put(ctx, failed))

	metrics := monitoring.NewMetrics()
	return NewServer(config.Default(), st, metrics, nil), st, metrics
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["store"])
}

func TestListRecords(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
		code   int
		count  int
	}{
		{"all", "/api/records", http.StatusOK, 3},
		{"pending", "/api/records?status=pending", http.StatusOK, 1},
		{"error", "/api/records?status=error", http.StatusOK, 1},
		{"unknown status", "/api/records?status=bogus", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, tt.target)
			require.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				return
			}
			var body struct {
				Records []types.CrawlRecord `json:"records"`
				Count   int                 `json:"count"`
			}
			require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.count, body.Count)
			assert.Len(t, body.Records, tt.count)
		})
	}
}

func TestSummary(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/records/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total      int            `json:"total"`
		ByStatus   map[string]int `json:"by_status"`
		ErrorCodes map[string]int `json:"error_codes"`
		Tools      int            `json:"tools"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, map[string]int{"pending": 1, "processing": 0, "completed": 1, "error": 1}, body.ByStatus)
	assert.Equal(t, map[string]int{"404": 1}, body.ErrorCodes)
	assert.Equal(t, 4, body.Tools)
}

func TestRequeue(t *testing.T) {
	s, st, _ := newTestServer(t)
	target := "https://api.github.com/repos/o/r/contents/tools/c"

	w := do(t, s, http.MethodPost, "/api/records/requeue?url="+target)
	require.Equal(t, http.StatusOK, w.Code)
	rec, _, err := st.Get(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, rec.Status)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/records/requeue").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/records/requeue?url=https://nope").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, metrics := newTestServer(t)
	metrics.RecordRateLimit("api.github.com")
	do(t, s, http.MethodGet, "/health")

	w := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `harvester_rate_limited_total{host="api.github.com"} 1`), body)
	assert.Contains(t, body, "harvester_http_requests_total")
}

func TestWithoutStore(t *testing.T) {
	s := NewServer(config.Default(), nil, nil, nil)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/api/records").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/metrics").Code)
}

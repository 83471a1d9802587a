package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/heapdiff/internal/census"
)

func TestCountDiffLabels(t *testing.T) {
	r := New()

	r.CountDiff("", census.DefaultDisplay())
	r.CountDiff("", census.DefaultDisplay())
	r.CountDiff("Array", census.Display{Breakdown: census.BreakdownAllocationStack, Inverted: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.censusDiffs.WithLabelValues("coarseType", "false", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.censusDiffs.WithLabelValues("allocationStack", "true", "true")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.censusDiffs))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.CountDiff("", census.DefaultDisplay())
	r.ObserveRequest("/api/census-diff", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `heapdiff_census_diffs_total{breakdown="coarseType",filtered="false",inverted="false"} 1`), body)
	assert.Contains(t, body, `heapdiff_worker_request_duration_seconds_count{route="/api/census-diff",status="200"} 1`)
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.CountDiff("", census.DefaultDisplay())

	assert.Equal(t, 0, testutil.CollectAndCount(b.censusDiffs))
}

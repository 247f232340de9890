package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.AssessmentProcessed(false)
	r.AssessmentProcessed(true)
	r.AssessmentProcessed(true)
	r.RecordsStored("risk", 3)
	r.RecordsStored("control", 0)
	r.ObserveAnalysis("agent", time.Second, errors.New("boom"))
	r.ObserveHTTP(http.MethodGet, "/v1/risks/{id}", 200, 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.processed.WithLabelValues("agent")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.processed.WithLabelValues("fallback")))
	assert.Equal(t, float64(3), testutil.ToFloat64(r.stored.WithLabelValues("risk")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/v1/risks/{id}", "200")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.AssessmentProcessed(true)
		r.RecordsStored("risk", 1)
		r.ObserveAnalysis("agent", time.Second, nil)
		r.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.AssessmentProcessed(false)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "riskmatrix_assessments_processed_total")
}

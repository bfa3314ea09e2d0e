package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGeneration(t *testing.T) {
	before := testutil.ToFloat64(generations.WithLabelValues(OutcomeSuccess))
	RecordGeneration(OutcomeSuccess)
	assert.Equal(t, before+1, testutil.ToFloat64(generations.WithLabelValues(OutcomeSuccess)))
}

func TestHandler(t *testing.T) {
	RecordHTTPRequest(http.MethodPost, "/api/generate", http.StatusOK)
	RecordUpstreamCall(true, 2*time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "zhiyin_http_requests_total")
	assert.Contains(t, string(body), "zhiyin_upstream_call_duration_seconds")
}

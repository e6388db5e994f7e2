package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.BidsScanned.Add(3)
	m.Downloads.WithLabelValues("ok").Inc()
	m.ObserveRequest("listing", time.Now())

	assert.Equal(t, float64(3), testutil.ToFloat64(m.BidsScanned))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Downloads.WithLabelValues("ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bidplus_bids_scanned_total 3")
	assert.Contains(t, string(body), `bidplus_request_duration_seconds_count{stage="listing"} 1`)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.BidsMatched.Inc()
	assert.Equal(t, float64(0), testutil.ToFloat64(b.BidsMatched))
}

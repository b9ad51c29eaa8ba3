package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.ObserveOperation("verify", "ok")
	m.ObserveOperation("verify", "ok")
	m.ObserveOperation("create", "bed_conflict")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("verify", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("create", "bed_conflict")))

	m.SetBedCounts(map[model.BedStatus]int{model.BedFree: 7, model.BedOccupied: 2})
	assert.Equal(t, 7.0, testutil.ToFloat64(m.beds.WithLabelValues("free")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.beds.WithLabelValues("reserved")))

	m.ObserveHTTP("GET", "/v1/rooms", 200, 15*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/rooms", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `smartcity_beds{status="occupied"} 2`)
	assert.Contains(t, string(body), "smartcity_lifecycle_operations_total")
}

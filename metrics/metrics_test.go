package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RunFinished("accepted", 3)
	m.CritiqueScored(50)
	m.ImageSelected(true)
	m.Approval("published")
	m.NotifyFailed()
}

func TestRecordsAndServes(t *testing.T) {
	m := New()
	m.RunFinished("perfect", 2)
	m.RunFinished("quality_not_met", 15)
	m.RunFinished("perfect", 1)
	m.Approval("tampered")
	m.ImageSelected(false)

	require.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("perfect")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.approvals.WithLabelValues("tampered")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.images.WithLabelValues("search")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), `linkedin_publisher_workflow_runs_total{outcome="perfect"} 2`)
	require.Contains(t, string(body), "linkedin_publisher_workflow_critique_attempts_count 3")
}

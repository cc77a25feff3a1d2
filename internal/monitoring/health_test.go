package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getHealth(t *testing.T, h *HealthChecker) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return rec.Code, status
}

func TestHealthChecker_StoppedIsHealthy(t *testing.T) {
	h := NewHealthChecker()

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "STOPPED", status.EngineState)
}

func TestHealthChecker_RunningDisconnectedIsDegraded(t *testing.T) {
	h := NewHealthChecker()
	h.SetEngineState("RUNNING")
	h.SetConnected(false)

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", status.Status)
}

func TestHealthChecker_RunningConnectedIsHealthy(t *testing.T) {
	h := NewHealthChecker()
	h.SetEngineState("RUNNING")
	h.SetConnected(true)
	h.MarkCycle()

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.LastCycle.IsZero())
}

func TestHealthChecker_ErrorStateIsUnhealthy(t *testing.T) {
	h := NewHealthChecker()
	h.SetEngineState("ERROR")
	h.SetLastError("venue unreachable")

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "venue unreachable", status.LastError)
}

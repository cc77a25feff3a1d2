package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker tracks liveness facts fed in by the engine and serves
// them as a JSON health endpoint.
type HealthChecker struct {
	mu          sync.RWMutex
	startTime   time.Time
	lastCycle   time.Time
	engineState string
	isConnected bool
	lastError   string
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	EngineState string    `json:"engine_state"`
	LastCycle   time.Time `json:"last_cycle"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	LastError   string    `json:"last_error,omitempty"`
}

// NewHealthChecker creates a health checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime:   time.Now(),
		engineState: "STOPPED",
	}
}

// SetConnected records venue connectivity.
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// SetEngineState records the engine lifecycle state.
func (h *HealthChecker) SetEngineState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engineState = state
}

// MarkCycle records the completion time of a polling cycle.
func (h *HealthChecker) MarkCycle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = time.Now()
}

// SetLastError records the most recent error message, empty to clear.
func (h *HealthChecker) SetLastError(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastError = message
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK

	if h.engineState == "ERROR" {
		status = "unhealthy"
		code = http.StatusInternalServerError
	} else if h.engineState == "RUNNING" && !h.isConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	health := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		EngineState: h.engineState,
		LastCycle:   h.lastCycle,
		IsConnected: h.isConnected,
		Uptime:      time.Since(h.startTime).String(),
		LastError:   h.lastError,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}

package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Metrics is a point-in-time snapshot of the in-process request counters.
type Metrics struct {
	RequestCount   int64            `json:"request_count"`
	ErrorCount     int64            `json:"error_count"`
	ActiveRequests int64            `json:"active_requests"`
	StatusCodes    map[string]int64 `json:"status_codes"`
	Endpoints      map[string]int64 `json:"endpoints"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
}

type metricsState struct {
	mu             sync.Mutex
	requestCount   int64
	errorCount     int64
	activeRequests int64
	totalLatency   time.Duration
	statusCodes    map[string]int64
	endpoints      map[string]int64
}

var global = newMetricsState()

func newMetricsState() *metricsState {
	return &metricsState{
		statusCodes: make(map[string]int64),
		endpoints:   make(map[string]int64),
	}
}

func resetGlobalMetrics() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.requestCount = 0
	global.errorCount = 0
	global.activeRequests = 0
	global.totalLatency = 0
	global.statusCodes = make(map[string]int64)
	global.endpoints = make(map[string]int64)
}

// MetricsMiddleware counts every request, its status class and latency.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		global.mu.Lock()
		global.activeRequests++
		global.mu.Unlock()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()
		if c.FullPath() == "" {
			endpoint = c.Request.Method + " <unmatched>"
		}

		global.mu.Lock()
		global.activeRequests--
		global.requestCount++
		global.totalLatency += latency
		if status >= http.StatusInternalServerError {
			global.errorCount++
		}
		global.statusCodes[strconv.Itoa(status)]++
		global.endpoints[endpoint]++
		global.mu.Unlock()
	}
}

// GetMetrics returns a copy of the current counters.
func GetMetrics() Metrics {
	global.mu.Lock()
	defer global.mu.Unlock()

	snapshot := Metrics{
		RequestCount:   global.requestCount,
		ErrorCount:     global.errorCount,
		ActiveRequests: global.activeRequests,
		StatusCodes:    make(map[string]int64, len(global.statusCodes)),
		Endpoints:      make(map[string]int64, len(global.endpoints)),
	}
	for k, v := range global.statusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range global.endpoints {
		snapshot.Endpoints[k] = v
	}
	if global.requestCount > 0 {
		snapshot.AvgLatencyMs = float64(global.totalLatency.Milliseconds()) / float64(global.requestCount)
	}
	return snapshot
}

// MetricsHandler serves the counters as JSON.
func MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, GetMetrics())
	}
}

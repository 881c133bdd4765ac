// Package diag records recent Graph calls for the developer diagnostics
// view and exports them as Prometheus metrics.
package diag

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultCapacity is the number of calls kept.
const DefaultCapacity = 50

// Call is one recorded request.
type Call struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Status   int           `json:"status"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Ring is a fixed-size buffer of the most recent calls. Once full, each new
// call overwrites the oldest. It is safe for concurrent use.
type Ring struct {
	mu    sync.Mutex
	calls []Call
	next  int
	count int

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRing returns a ring holding up to capacity calls, with its metrics
// registered on a registry of its own.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Ring{
		calls:    make([]Call, capacity),
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spe_graph_requests_total",
				Help: "Total number of Microsoft Graph requests",
			},
			[]string{"method", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spe_graph_request_duration_seconds",
				Help:    "Microsoft Graph request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// Record implements spe.Recorder. Status 0 means the request never got a
// response.
func (r *Ring) Record(method, url string, status int, d time.Duration, err error) {
	call := Call{
		ID:       uuid.NewString(),
		Time:     time.Now(),
		Method:   method,
		URL:      url,
		Status:   status,
		Duration: d,
	}
	if err != nil {
		call.Err = err.Error()
	}

	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(method, statusLabel).Inc()
	r.duration.WithLabelValues(method).Observe(d.Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[r.next] = call
	r.next = (r.next + 1) % len(r.calls)
	if r.count < len(r.calls) {
		r.count++
	}
}

// Recent returns the recorded calls, newest first.
func (r *Ring) Recent() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0, r.count)
	for i := 1; i <= r.count; i++ {
		idx := (r.next - i + len(r.calls)) % len(r.calls)
		out = append(out, r.calls[idx])
	}
	return out
}

// Len returns how many calls are held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Capacity returns the ring size.
func (r *Ring) Capacity() int {
	return len(r.calls)
}

// Clear drops every recorded call. Metrics keep counting.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.calls {
		r.calls[i] = Call{}
	}
	r.next = 0
	r.count = 0
}

// Handler serves the metrics in the Prometheus text format.
func (r *Ring) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

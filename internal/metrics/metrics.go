// Package metrics declares the Prometheus collectors the timer daemon
// exposes on its metrics server, and the helper that mounts them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Queue state

	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "timerd",
		Name:      "queue_depth",
		Help:      "Number of pending records in a scheduler queue.",
	}, []string{"queue"})

	// Pump activity

	PumpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "timerd",
		Name:      "pump_duration_seconds",
		Help:      "Wall-clock time spent inside one Pump pass (high or normal queue).",
		Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"fired"})

	TimersFiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timerd",
		Name:      "timers_fired_total",
		Help:      "Total timer callbacks invoked, by queue.",
	}, []string{"queue"})

	ReentrancyBlockedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timerd",
		Name:      "reentrancy_blocked_total",
		Help:      "Total Pump calls that bailed out because a queue was already running.",
	}, []string{"queue"})

	ScheduleOverflowTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timerd",
		Name:      "schedule_overflow_total",
		Help:      "Total ScheduleNormal calls rejected with ErrQueueOverflow.",
	})

	PastDueScheduledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timerd",
		Name:      "past_due_scheduled_total",
		Help:      "Total timers scheduled with fire_at already in the past, by queue.",
	}, []string{"queue"})

	SkewAdjustmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timerd",
		Name:      "skew_adjustments_total",
		Help:      "Total AdjustAll calls applied in response to a detected clock jump.",
	})

	CancelSpecificMissTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timerd",
		Name:      "cancel_specific_miss_total",
		Help:      "Total CancelSpecific calls that found no matching record.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "timerd",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timerd",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

// Register registers every collector above with the default Prometheus
// registry. Call once at process startup.
func Register() {
	prometheus.MustRegister(
		QueueDepth,
		PumpDuration,
		TimersFiredTotal,
		ReentrancyBlockedTotal,
		ScheduleOverflowTotal,
		PastDueScheduledTotal,
		SkewAdjustmentsTotal,
		CancelSpecificMissTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer returns an HTTP server exposing /metrics on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

// Recorder implements sched.Recorder on top of the collectors declared
// above. The scheduler core never imports this package directly; only
// cmd/timerd wires the two together, via sched.WithRecorder.
type Recorder struct{}

// NewRecorder returns a Recorder. Register must be called once
// beforehand so its collectors are attached to the default registry.
func NewRecorder() Recorder {
	return Recorder{}
}

func (Recorder) ObservePump(queue string, fired bool, d time.Duration) {
	PumpDuration.WithLabelValues(strconv.FormatBool(fired)).Observe(d.Seconds())
}

func (Recorder) IncFired(queue string) {
	TimersFiredTotal.WithLabelValues(queue).Inc()
}

func (Recorder) IncReentrancyBlocked(queue string) {
	ReentrancyBlockedTotal.WithLabelValues(queue).Inc()
}

func (Recorder) IncOverflow() {
	ScheduleOverflowTotal.Inc()
}

func (Recorder) IncPastDue(queue string) {
	PastDueScheduledTotal.WithLabelValues(queue).Inc()
}

func (Recorder) IncSkewAdjustment() {
	SkewAdjustmentsTotal.Inc()
}

func (Recorder) IncCancelSpecificMiss() {
	CancelSpecificMissTotal.Inc()
}

func (Recorder) SetQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

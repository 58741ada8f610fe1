package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/GriffinCanCode/horizon/internal/sysmodule"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Event loop metrics
	Events          *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	OpenSessions    *prometheus.GaugeVec
	Notifications   *prometheus.CounterVec

	// Client metrics
	ClientCalls    *prometheus.CounterVec
	ClientDuration *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON status API.
type Snapshot struct {
	Events          uint64  `json:"events"`
	Commands        uint64  `json:"commands"`
	CommandErrors   uint64  `json:"command_errors"`
	InvalidCommands uint64  `json:"invalid_commands"`
	Notifications   uint64  `json:"notifications"`
	CommandSeconds  float64 `json:"command_seconds"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

var _ sysmodule.Recorder = (*Metrics)(nil)

// durationBuckets spans the sub-millisecond range IPC commands live in.
var durationBuckets = []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1}

// NewMetrics creates a metrics collector registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		// Event loop metrics
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horizon_events_total",
				Help: "Total number of classified event loop wake-ups",
			},
			[]string{"kind"},
		),
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horizon_commands_total",
				Help: "Total number of dispatched commands",
			},
			[]string{"service", "command", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "horizon_command_duration_seconds",
				Help:    "Command handler duration in seconds",
				Buckets: durationBuckets,
			},
			[]string{"service"},
		),
		OpenSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "horizon_sessions_open",
				Help: "Number of open sessions per service",
			},
			[]string{"service"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horizon_notifications_total",
				Help: "Total number of received notifications",
			},
			[]string{"id", "handled"},
		),

		// Client metrics
		ClientCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horizon_client_calls_total",
				Help: "Total number of client requests",
			},
			[]string{"service", "command", "status"},
		),
		ClientDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "horizon_client_call_duration_seconds",
				Help:    "Client request round trip in seconds",
				Buckets: durationBuckets,
			},
			[]string{"service"},
		),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horizon_http_requests_total",
				Help: "Total number of diagnostics HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "horizon_http_request_duration_seconds",
				Help:    "Diagnostics HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "horizon_uptime_seconds",
			Help: "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// statusLabel renders a result code as a low-cardinality label.
func statusLabel(code result.Code) string {
	if code.IsSuccess() {
		return "ok"
	}
	return code.String()
}

// Event implements sysmodule.Recorder.
func (m *Metrics) Event(kind sysmodule.EventKind) {
	m.Events.WithLabelValues(kind.String()).Inc()

	m.mu.Lock()
	m.snapshot.Events++
	m.mu.Unlock()
}

// Command implements sysmodule.Recorder.
func (m *Metrics) Command(service, command string, code result.Code, elapsed time.Duration) {
	m.Commands.WithLabelValues(service, command, statusLabel(code)).Inc()
	m.CommandDuration.WithLabelValues(service).Observe(elapsed.Seconds())

	// Update snapshot
	m.mu.Lock()
	m.snapshot.Commands++
	m.snapshot.CommandSeconds += elapsed.Seconds()
	if code.IsError() {
		m.snapshot.CommandErrors++
	}
	if code == result.InvalidCommand {
		m.snapshot.InvalidCommands++
	}
	m.mu.Unlock()
}

// SessionsOpen implements sysmodule.Recorder.
func (m *Metrics) SessionsOpen(service string, open int) {
	m.OpenSessions.WithLabelValues(service).Set(float64(open))
}

// Notification implements sysmodule.Recorder.
func (m *Metrics) Notification(id sysmodule.NotificationID, outcome sysmodule.Outcome) {
	m.Notifications.WithLabelValues(id.String(), outcome.String()).Inc()

	m.mu.Lock()
	m.snapshot.Notifications++
	m.mu.Unlock()
}

// RecordClientCall records one client request.
func (m *Metrics) RecordClientCall(service, command string, code result.Code, duration time.Duration) {
	m.ClientCalls.WithLabelValues(service, command, statusLabel(code)).Inc()
	m.ClientDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordHTTPRequest records a diagnostics HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Snapshot returns the current totals.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

// Package metrics exposes Prometheus instrumentation for the claim service
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/garyjia/tpa-claims/internal/application/dispatcher"
	"github.com/garyjia/tpa-claims/internal/domain/event"
	"github.com/garyjia/tpa-claims/internal/domain/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tpa"

// Metrics holds the collectors of one registry
type Metrics struct {
	registry *prometheus.Registry

	ClaimsCreated      prometheus.Counter
	Transitions        *prometheus.CounterVec
	TransitionFailures *prometheus.CounterVec
	NotesAdded         *prometheus.CounterVec
	AttachmentsAdded   *prometheus.CounterVec
	ApprovedAmount     prometheus.Histogram

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance on a fresh registry. Go runtime and
// process collectors are included.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ClaimsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_created_total",
			Help:      "Total number of claims registered",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_transitions_total",
			Help:      "Committed claim status transitions by edge",
		}, []string{"from", "to"}),
		TransitionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_transition_failures_total",
			Help:      "Rejected claim transitions by kind",
		}, []string{"kind"}),
		NotesAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_notes_total",
			Help:      "Notes added to claims by note type",
		}, []string{"note_type"}),
		AttachmentsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_attachments_total",
			Help:      "Attachments uploaded to claims by MIME type",
		}, []string{"mime_type"}),
		ApprovedAmount: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "claim_approved_amount",
			Help:      "Approved amount of claims entering financial review",
			Buckets:   prometheus.ExponentialBuckets(100000, 4, 10),
		}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterDBStats exports connection pool statistics of db
func (m *Metrics) RegisterDBStats(db *sql.DB, name string) {
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// RecordRequest records one served API request
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Transition failure kinds
const (
	FailureInvalidStatus     = "invalid_status"
	FailureInvalidTransition = "invalid_transition"
	FailureConflict          = "conflict"
	FailureInternal          = "internal"
)

// RecordTransitionFailure counts a rejected transition
func (m *Metrics) RecordTransitionFailure(kind string) {
	if m != nil {
		m.TransitionFailures.WithLabelValues(kind).Inc()
	}
}

// Subscribe registers handlers that count claim events
func (m *Metrics) Subscribe(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeClaimCreated, "metrics.created", func(ctx context.Context, evt *event.Event) error {
		m.ClaimsCreated.Inc()
		return nil
	})

	d.SubscribeNamed(event.TypeClaimTransitioned, "metrics.transitioned", func(ctx context.Context, evt *event.Event) error {
		from := statusLabel(evt.GetPayloadInt(event.KeyFromStatus))
		to := statusLabel(evt.GetPayloadInt(event.KeyToStatus))
		m.Transitions.WithLabelValues(from, to).Inc()
		if to == workflow.StatusWaitFinancial.String() {
			m.ApprovedAmount.Observe(float64(evt.GetPayloadInt(event.KeyApproved)))
		}
		return nil
	})

	d.SubscribeNamed(event.TypeClaimNoteAdded, "metrics.note", func(ctx context.Context, evt *event.Event) error {
		m.NotesAdded.WithLabelValues(evt.GetPayloadString(event.KeyNoteType)).Inc()
		return nil
	})

	d.SubscribeNamed(event.TypeClaimAttachmentAdded, "metrics.attachment", func(ctx context.Context, evt *event.Event) error {
		m.AttachmentsAdded.WithLabelValues(evt.GetPayloadString(event.KeyMimeType)).Inc()
		return nil
	})
}

func statusLabel(code int64) string {
	s, err := workflow.ParseStatus(int(code))
	if err != nil {
		return "unknown"
	}
	return s.String()
}

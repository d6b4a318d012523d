package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// Session Metrics
var (
	ListenersRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameListenersRunning,
			Help: HelpTextListenersRunning,
		},
	)

	ListenerStarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameListenerStarts,
			Help: HelpTextListenerStarts,
		},
	)

	ListenerStops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameListenerStops,
			Help: HelpTextListenerStops,
		},
	)

	ListenerCrashes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameListenerCrashes,
			Help: HelpTextListenerCrashes,
		},
	)

	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameMessagesReceived,
			Help: HelpTextMessagesReceived,
		},
		[]string{LabelPlatform},
	)

	MessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameMessagesDropped,
			Help: HelpTextMessagesDropped,
		},
	)

	ReconcileRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameReconcileRuns,
			Help: HelpTextReconcileRuns,
		},
	)

	ReconcileCorrections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameReconcileCorrection,
			Help: HelpTextReconcileCorrection,
		},
		[]string{LabelCorrection},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameCommandDuration,
			Help:    HelpTextCommandDuration,
			Buckets: CommandLatencyBuckets,
		},
		[]string{LabelCommand},
	)
)

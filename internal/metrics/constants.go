package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// Session metric names
const (
	MetricNameListenersRunning    = "listeners_running"
	MetricNameListenerStarts      = "listener_starts_total"
	MetricNameListenerStops       = "listener_stops_total"
	MetricNameListenerCrashes     = "listener_crashes_total"
	MetricNameMessagesReceived    = "messages_received_total"
	MetricNameMessagesDropped     = "messages_dropped_total"
	MetricNameReconcileRuns       = "supervisor_reconcile_runs_total"
	MetricNameReconcileCorrection = "supervisor_corrections_total"
	MetricNameCommandDuration     = "link_command_duration_seconds"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Event metric help text
const (
	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// Session metric help text
const (
	HelpTextListenersRunning    = "Current number of live messenger listeners"
	HelpTextListenerStarts      = "Total number of listener starts"
	HelpTextListenerStops       = "Total number of listener stops"
	HelpTextListenerCrashes     = "Total number of listener crashes"
	HelpTextMessagesReceived    = "Total number of inbound messages received"
	HelpTextMessagesDropped     = "Total number of inbound messages dropped by the bridge"
	HelpTextReconcileRuns       = "Total number of supervisor reconcile runs"
	HelpTextReconcileCorrection = "Total number of supervisor drift corrections"
	HelpTextCommandDuration     = "Link command latency in seconds"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod     = "method"
	LabelPath       = "path"
	LabelStatus     = "status"
	LabelType       = "type"
	LabelPlatform   = "platform"
	LabelCommand    = "command"
	LabelCorrection = "correction"
)

// Correction label values
const (
	CorrectionStart = "start"
	CorrectionStop  = "stop"
	CorrectionRetry = "retry"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds. These buckets range from 1ms to 10s to capture various latency
// patterns: fast (1-10ms), normal (10-100ms), slow (100ms-1s), very slow (1-10s)
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// CommandLatencyBuckets covers link commands, which block on the external
// network and can take several seconds.
var CommandLatencyBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

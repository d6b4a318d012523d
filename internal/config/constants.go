package config

import "time"

// Default values for tunable configuration
const (
	DefaultServiceName = "botlink"
	DefaultPort        = 8080

	// DefaultSupervisorTick is how often the reconciler compares the link
	// table against the live session registry.
	DefaultSupervisorTick = 30 * time.Second

	// DefaultStopDeadline bounds how long a listener gets to honor its
	// cancel signal before the registry abandons it.
	DefaultStopDeadline = 5 * time.Second

	// DefaultBackoffCeiling caps the per-link exponential retry backoff.
	DefaultBackoffCeiling = 300 * time.Second

	// DefaultMailboxCapacity bounds each listener's event mailbox.
	DefaultMailboxCapacity = 1024

	// DefaultCommandTimeout bounds each control API command end to end.
	// Login calls cross the external network, so the bound is generous.
	DefaultCommandTimeout = 30 * time.Second

	// DefaultDeadLetterPath is where events that exhaust publish retries
	// are appended, one JSON entry per line.
	DefaultDeadLetterPath = "events.deadletter.jsonl"
)

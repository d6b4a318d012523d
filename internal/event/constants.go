package event

import "time"

// EventSchemaVersion stamps every published event envelope.
const EventSchemaVersion = "1.0"

// Retry configuration for the resilient publisher.
const (
	// RetryQueueBufferSize bounds the in-memory retry queue; overflow goes
	// straight to the dead-letter file.
	RetryQueueBufferSize = 1000

	// RetryInitialDelaySeconds is the first retry delay.
	RetryInitialDelaySeconds = 2

	// RetryMaxAttempts caps retries before an event is dead-lettered.
	RetryMaxAttempts = 5
)

// DeadLetterFilePermissions is the mode for created dead-letter files.
const DeadLetterFilePermissions = 0644

const (
	LogMsgEventPublishFailed     = "Event publish failed, queuing for retry"
	LogMsgRetryQueueFull         = "Retry queue full, event dropped to dead-letter"
	LogMsgDeadLetterWriteFailed  = "Failed to write to dead letter"
	LogMsgEventRetryExhausted    = "Event retry exhausted, writing to dead-letter"
	LogMsgEventRetryFailed       = "Event retry failed, scheduling next attempt"
	LogMsgEventRetrySucceeded    = "Event retry succeeded"
	LogMsgQueueDrainedShutdown   = "Drained retry queue during shutdown"
	LogMsgShutdownTimeout        = "Resilient publisher shutdown timed out"
	LogMsgDeadLetterWriteFailedS = "Failed to write to dead letter shutdown"

	LogMsgHandlerErrorFormat = "encountered %d errors while handling event %s: %v"
)

// CalculateRetryDelay doubles the base delay per attempt: 2s, 4s, 8s, ...
func CalculateRetryDelay(baseDelay time.Duration, attempt int) time.Duration {
	return baseDelay * time.Duration(1<<(attempt-1))
}

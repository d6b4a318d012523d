package bridge

// DefaultMailboxCapacity bounds each listener's mailbox when the config
// gives no value.
const DefaultMailboxCapacity = 1024

// Log messages
const (
	LogMsgPublishFailed   = "failed to publish incoming message event"
	LogMsgDropNoticeError = "failed to publish message dropped event"
	LogMsgMailboxDrained  = "bridge mailbox drained on shutdown"
)

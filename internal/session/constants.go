package session

// Log messages
const (
	LogMsgListenerStarted      = "listener started"
	LogMsgListenerStopped      = "listener stopped"
	LogMsgListenerCrashed      = "listener crashed"
	LogMsgStopDeadlineExceeded = "listener ignored cancel, abandoning task"
)

package telegram

// Log messages
const (
	LogMsgListenerConnected = "telegram listener connected"
)

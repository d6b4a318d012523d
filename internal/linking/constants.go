package linking

// ============================================================================
// Command Result Statuses (Client-Facing)
// ============================================================================

const (
	// StatusCodeSent indicates the network accepted the code request
	StatusCodeSent = "code_sent"

	// StatusActive indicates the link is authenticated and listening
	StatusActive = "active"

	// StatusReassigned indicates the link now belongs to the new bot
	StatusReassigned = "reassigned"

	// StatusRevoked indicates the link was soft-deleted
	StatusRevoked = "revoked"
)

// ============================================================================
// Deauthorization Reasons
// ============================================================================

const (
	// DeauthReasonUnauthorized means the external account revoked our session
	DeauthReasonUnauthorized = "unauthorized"

	// DeauthReasonMissingSecret means an active link had no usable secret
	DeauthReasonMissingSecret = "missing_secret"
)

// ============================================================================
// Metric Command Labels
// ============================================================================

const (
	CommandRequestCode = "request_code"
	CommandSubmitCode  = "submit_code"
	CommandReassign    = "reassign"
	CommandUnlink      = "unlink"
	CommandListLinks   = "list_links"
	CommandBootRecover = "boot_recover"
)

// ============================================================================
// Error Context Messages (Wrapped Errors)
// ============================================================================

const (
	// ErrContextNoPendingLogin wraps the missing pending_auth link error
	ErrContextNoPendingLogin = "no pending login for bot: %w"

	// ErrContextListenerStart wraps registry start failures
	ErrContextListenerStart = "failed to start listener: %w"

	// ErrContextListenerReplace wraps registry replace failures
	ErrContextListenerReplace = "failed to replace listener: %w"
)

// ============================================================================
// Log Messages
// ============================================================================

const (
	LogMsgCodeRequested         = "login code requested"
	LogMsgLinkActivated         = "link activated"
	LogMsgLinkReassigned        = "link reassigned"
	LogMsgLinkRevoked           = "link revoked"
	LogMsgLinkDeauthorized      = "link deauthorized by external network"
	LogMsgListenerStartFailed   = "listener start failed, link flagged for retry"
	LogMsgStopBeforeRevokeError = "failed to stop listener before revoke"
	LogMsgBootRecoverStarted    = "boot recover started"
	LogMsgBootRecoverFinished   = "boot recover finished"
	LogMsgProbeUnreachable      = "probe failed, leaving link for supervisor retry"
	LogMsgFailedToPublishEvent  = "failed to publish event"
	LogMsgFailedToFlagLink      = "failed to flag link after start failure"
)

// ============================================================================
// Log Context Keys
// ============================================================================

const (
	LogKeyLinkID   = "link_id"
	LogKeyBotID    = "bot_id"
	LogKeyNewBotID = "new_bot_id"
	LogKeyUserID   = "user_id"
	LogKeyError    = "error"
)

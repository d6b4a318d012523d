package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"
)

// User-facing error messages for service errors
const (
	ErrMsgGenericServerError  = "Something went wrong"
	ErrMsgUnknownError        = "Unknown error"
	ErrMsgAccessDeniedError   = "You do not have the required role on this bot"
	ErrMsgNotFoundError       = "Link or bot not found"
	ErrMsgConflictError       = "A live link already exists for this bot or account"
	ErrMsgRateLimitedError    = "The messaging network is rate limiting this number. Try again later"
	ErrMsgUnavailableError    = "The messaging network is unreachable. Please try again later"
	ErrMsgTimeoutError        = "The operation timed out. Please try again later"
	ErrMsgSessionRevokedError = "The account revoked this session. Log in again"

	// Login code error messages, keyed by AuthCodeError reason
	ErrMsgCodeInvalidError      = "The login code is incorrect"
	ErrMsgCodeExpiredError      = "The login code expired. Request a new one"
	ErrMsgPasswordRequiredError = "This account has two-factor auth enabled. Submit the password too"
	ErrMsgPasswordInvalidError  = "The two-factor password is incorrect"
	ErrMsgBadPhoneError         = "The phone number was rejected by the network"
)

// Command status values returned in JSON responses
const (
	StatusReassigned = "reassigned"
	StatusRevoked    = "revoked"
)

// Log messages
const (
	LogMsgRequestCodeFailed = "Failed to request login code"
	LogMsgSubmitCodeFailed  = "Failed to submit login code"
	LogMsgReassignFailed    = "Failed to reassign link"
	LogMsgUnlinkFailed      = "Failed to unlink"
	LogMsgListLinksFailed   = "Failed to list links"
)

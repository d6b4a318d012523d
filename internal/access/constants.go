package access

import "time"

// Identity service endpoint
const (
	CheckPath = "/api/v1/authz/check"
)

// Cache defaults
const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 30 * time.Second
)

// DefaultRequestTimeout bounds one identity service call.
const DefaultRequestTimeout = 10 * time.Second

// Error messages
const (
	ErrMsgFailedToBuildRequest  = "failed to build authz request"
	ErrMsgFailedToCallIdentity  = "identity service unreachable"
	ErrMsgUnexpectedStatus      = "unexpected identity service status"
	ErrMsgFailedToDecodeVerdict = "failed to decode authz verdict"
)

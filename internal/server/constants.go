package server

import "time"

// Rate limiting and auth-failure alerting.
const (
	// FailedAuthAlertThreshold is the failed-auth count per IP that
	// triggers a security alert within one window.
	FailedAuthAlertThreshold = 5

	// RateLimitMaxRequests is the per-IP request budget per window.
	RateLimitMaxRequests = 1000

	// RateLimitWindow is the rolling counter window.
	RateLimitWindow = 5 * time.Minute

	// RateLimitLogSampling logs every Nth blocked request.
	RateLimitLogSampling = 100
)

// DefaultCommandTimeout bounds a control API command when the configured
// timeout is missing or non-positive.
const DefaultCommandTimeout = 30 * time.Second

// Middleware error responses.
const (
	ErrMsgUnauthorized    = "Unauthorized"
	ErrMsgTooManyRequests = "Too Many Requests"
)

// Security alert messages.
const (
	SecurityAlertFailedAuth = "SECURITY ALERT: Multiple failed authentication attempts"
	SecurityAlertHighRate   = "SECURITY ALERT: Blocking high request rate"
)

// Server lifecycle and request log messages.
const (
	LogMsgServerStarting   = "Server starting"
	LogMsgRequestStarted   = "Request started"
	LogMsgRequestCompleted = "Request completed"
	LogMsgRequestHeaders   = "Request headers"
	LogMsgAuthFailed       = "Authentication failed"
)

// Header names touched by the middleware stack.
const (
	HeaderAPIKey         = "X-API-Key"
	HeaderAuthorization  = "Authorization"
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderContentType    = "X-Content-Type-Options"
	HeaderFrameOptions   = "X-Frame-Options"
	HeaderXSSProtection  = "X-XSS-Protection"
	HeaderReferrerPolicy = "Referrer-Policy"
)

const (
	HeaderValueNoSniff              = "nosniff"
	HeaderValueSameOrigin           = "SAMEORIGIN"
	HeaderValueXSSBlock             = "1; mode=block"
	HeaderValueReferrerStrictOrigin = "strict-origin-when-cross-origin"
)

// PublicPaths bypass API-key auth: probes and metrics scrapes.
var PublicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
}

// RedactedValue replaces credential header values in request logs.
const RedactedValue = "[REDACTED]"

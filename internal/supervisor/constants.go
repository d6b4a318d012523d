package supervisor

import "time"

// BaseBackoff is the first retry delay after a failed link recovery.
// Doubles per consecutive failure up to the configured ceiling.
const BaseBackoff = 5 * time.Second

// Log messages for the reconciler
const (
	LogMsgReconcileListFailed  = "Reconcile failed to list links"
	LogMsgLinkRecoveryFailed   = "Link recovery failed, backing off"
	LogMsgStoppedStrayListener = "Stopped listener with no active link"
	LogMsgStrayStopFailed      = "Failed to stop stray listener"
)

// Log keys
const (
	LogKeyLinkID  = "link_id"
	LogKeyRetryIn = "retry_in"
	LogKeyError   = "error"
)

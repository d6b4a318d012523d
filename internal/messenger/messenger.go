// Package messenger defines the port to an external messenger network.
// Implementations live in subpackages (telegram is the only concrete one);
// everything above this package treats session credentials as opaque blobs.
package messenger

import (
	"context"
	"time"
)

// CodeGrant is what the network hands back after a login-code request.
// Both values are temporaries carried across the code round-trip.
type CodeGrant struct {
	CodeHash       string
	TempSecretBlob []byte
}

// LoginResult is a completed sign-in: the authorized session blob plus the
// identity of the external account it belongs to.
type LoginResult struct {
	SecretBlob       []byte
	ExternalUserID   string
	ExternalUsername string
}

// SubmitCodeRequest completes the login started by RequestCode. Password is
// only consulted when the account has 2FA enabled.
type SubmitCodeRequest struct {
	Phone          string
	Code           string
	CodeHash       string
	Password       string
	TempSecretBlob []byte
}

// Message is one inbound user message in adapter-neutral form.
type Message struct {
	ConversationID string
	SenderID       string
	SenderDisplay  string
	Body           string
	ReceivedAt     time.Time
}

// OnMessage is invoked once per inbound user message. It must not block the
// listener loop; implementations hand the message off and return.
type OnMessage func(msg Message)

// ListenerHooks are the callbacks RunListener drives. OnReady fires once,
// after the session is connected and its authorization confirmed; OnMessage
// fires per inbound message. Neither may block.
type ListenerHooks struct {
	OnReady   func()
	OnMessage OnMessage
}

// Adapter is every call that crosses the process boundary to the external
// network. Implementations are stateless between calls: each operation opens
// its own transport, does its work, and closes.
//
// Errors are classified with the domain taxonomy: rate limits surface as
// *domain.RateLimitedError, login failures as *domain.AuthCodeError, dead
// sessions as domain.ErrUnauthorizedSession, and unclassified network faults
// as domain.ErrExternalUnavailable.
type Adapter interface {
	// RequestCode asks the network to send a login code to the phone.
	RequestCode(ctx context.Context, phone string) (CodeGrant, error)

	// SubmitCode exchanges the code (and password, for 2FA accounts) for an
	// authorized session blob.
	SubmitCode(ctx context.Context, req SubmitCodeRequest) (LoginResult, error)

	// ProbeAuthorized reports whether the secret still opens an authorized
	// session. Authorization-shaped problems return (false, nil); only
	// network faults return an error.
	ProbeAuthorized(ctx context.Context, secretBlob []byte) (bool, error)

	// RunListener opens a session with the secret, fires hooks.OnReady once
	// the connection is confirmed authorized, and streams inbound messages
	// to hooks.OnMessage until ctx is cancelled or the remote side
	// disconnects. Returns domain.ErrUnauthorizedSession when the secret is
	// no longer valid.
	RunListener(ctx context.Context, secretBlob []byte, hooks ListenerHooks) error
}

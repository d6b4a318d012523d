package domain

import "time"

// Platform identifies an external messenger network.
type Platform string

// Supported platforms. Only Telegram has a concrete adapter; the rest of the
// enum space is reserved for future networks.
const (
	PlatformTelegram Platform = "telegram"
)

// Valid reports whether the platform is one we know how to drive.
func (p Platform) Valid() bool {
	return p == PlatformTelegram
}

func (p Platform) String() string {
	return string(p)
}

// LinkStatus is the lifecycle state of a bot-service link.
type LinkStatus string

const (
	// LinkStatusReserved is a freshly created row that has not asked the network
	// for a login code yet.
	LinkStatusReserved LinkStatus = "reserved"
	// LinkStatusPendingAuth has a login code in flight; temporaries are populated.
	LinkStatusPendingAuth LinkStatus = "pending_auth"
	// LinkStatusActive holds an authorized session secret and should have a
	// running listener.
	LinkStatusActive LinkStatus = "active"
	// LinkStatusError is active configuration that the process could not bring
	// up (start failure, external deauth). The supervisor retries it.
	LinkStatusError LinkStatus = "error"
	// LinkStatusRevoked is a soft-deleted link. Terminal.
	LinkStatusRevoked LinkStatus = "revoked"
)

// Revoked reports whether the link is in its terminal state.
func (s LinkStatus) Revoked() bool {
	return s == LinkStatusRevoked
}

// BotServiceLink is the durable binding between a bot and an external
// messenger account on one platform.
type BotServiceLink struct {
	ID              string     `json:"link_id"`
	BotID           string     `json:"bot_id"`
	Platform        Platform   `json:"platform"`
	LinkedAccountID string     `json:"linked_account_id,omitempty"`
	LinkedUsername  string     `json:"linked_username,omitempty"`
	Status          LinkStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SessionSecret carries the credential material for one link. One-to-one with
// BotServiceLink, same primary key. The blobs are opaque bearer credentials
// issued by the external network; nothing in this process parses them.
type SessionSecret struct {
	LinkID          string     `json:"link_id"`
	SecretBlob      []byte     `json:"-"`
	Authorized      bool       `json:"authorized"`
	CodeHash        string     `json:"-"`
	TempSecretBlob  []byte     `json:"-"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`
}

// Role is the access level a user holds on a bot.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// rank orders roles for minimum-role checks.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r satisfies the required minimum role.
func (r Role) AtLeast(min Role) bool {
	return r.rank() >= min.rank()
}

package postgres

// PostgreSQL Error Codes
const (
	// PgErrorCodeUniqueViolation is the PostgreSQL error code for unique constraint violations
	PgErrorCodeUniqueViolation = "23505"
)

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction"
)

// Error Messages - Link Operations
const (
	ErrMsgFailedToGetLink      = "failed to get link"
	ErrMsgFailedToInsertLink   = "failed to insert link"
	ErrMsgFailedToUpdateLink   = "failed to update link"
	ErrMsgFailedToListLinks    = "failed to list links"
	ErrMsgFailedToActivateLink = "failed to activate link"
	ErrMsgFailedToRevokeLink   = "failed to revoke link"
	ErrMsgFailedToUpsertSecret = "failed to upsert session secret"
	ErrMsgLinkAlreadyActive    = "link already active"
)

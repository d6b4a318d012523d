package database

// Database Connection Pool Constants
const (
	// DefaultMinConnections is the minimum number of connections to maintain in the pool
	DefaultMinConnections = 2
)

// Error Messages - Database Operations
const (
	ErrMsgFailedToParseConnString = "failed to parse connection string"
	ErrMsgFailedToCreatePool      = "failed to create connection pool"
	ErrMsgFailedToPingDatabase    = "failed to ping database"
)

// Log Messages
const (
	LogMsgSuccessfullyConnectedToDatabase = "Successfully connected to the database"
)

// Migration Constants
const (
	DialectPostgres = "postgres"
	MigrationsDir   = "migrations"
)

// Error Messages - Migrations
const (
	ErrMsgFailedToSetDialect = "failed to set goose dialect"
	ErrMsgFailedToMigrate    = "failed to apply migrations"
)

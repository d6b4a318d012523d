package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/repository"
)

// LinkRepository implements repository.Link on PostgreSQL.
type LinkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: db}
}

const linkColumns = `link_id, bot_id, platform, COALESCE(linked_account_id, ''), COALESCE(linked_username, ''), status, created_at, updated_at`

func scanLink(row pgx.Row) (domain.BotServiceLink, error) {
	var link domain.BotServiceLink
	err := row.Scan(
		&link.ID,
		&link.BotID,
		&link.Platform,
		&link.LinkedAccountID,
		&link.LinkedUsername,
		&link.Status,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	return link, err
}

// translate maps driver errors onto the domain taxonomy.
func translate(msg string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == PgErrorCodeUniqueViolation {
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Reserve finds or creates the non-revoked link for (botID, platform) and
// stores the code round-trip temporaries. The whole operation is one
// transaction; a second call before SubmitCode overwrites the temporaries.
func (r *LinkRepository) Reserve(ctx context.Context, botID string, platform domain.Platform, codeHash string, tempSecretBlob []byte) (domain.BotServiceLink, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer SafeRollback(ctx, tx)

	existing, err := scanLink(tx.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM bot_service_link
		WHERE bot_id = $1 AND platform = $2 AND status <> 'revoked'
		FOR UPDATE
	`, botID, platform))

	var link domain.BotServiceLink
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		link, err = scanLink(tx.QueryRow(ctx, `
			INSERT INTO bot_service_link (link_id, bot_id, platform, status)
			VALUES ($1, $2, $3, 'pending_auth')
			RETURNING `+linkColumns, uuid.NewString(), botID, platform))
		if err != nil {
			return domain.BotServiceLink{}, translate(ErrMsgFailedToInsertLink, err)
		}
	case err != nil:
		return domain.BotServiceLink{}, translate(ErrMsgFailedToGetLink, err)
	case existing.Status == domain.LinkStatusActive:
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgLinkAlreadyActive, domain.ErrConflict)
	default:
		link, err = scanLink(tx.QueryRow(ctx, `
			UPDATE bot_service_link
			SET status = 'pending_auth', updated_at = NOW()
			WHERE link_id = $1
			RETURNING `+linkColumns, existing.ID))
		if err != nil {
			return domain.BotServiceLink{}, translate(ErrMsgFailedToUpdateLink, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO session_secret (link_id, authorized, code_hash, temp_secret_blob)
		VALUES ($1, FALSE, $2, $3)
		ON CONFLICT (link_id) DO UPDATE
		SET authorized = FALSE, code_hash = $2, temp_secret_blob = $3, secret_blob = NULL
	`, link.ID, codeHash, tempSecretBlob)
	if err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToUpsertSecret, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return link, nil
}

// GetPending returns the pending_auth link and its secret for (botID, platform).
func (r *LinkRepository) GetPending(ctx context.Context, botID string, platform domain.Platform) (repository.LinkRecord, error) {
	return r.queryRecord(ctx, `
		SELECT l.link_id, l.bot_id, l.platform, COALESCE(l.linked_account_id, ''), COALESCE(l.linked_username, ''), l.status, l.created_at, l.updated_at,
		       s.secret_blob, s.authorized, COALESCE(s.code_hash, ''), s.temp_secret_blob, s.last_connected_at
		FROM bot_service_link l
		JOIN session_secret s ON s.link_id = l.link_id
		WHERE l.bot_id = $1 AND l.platform = $2 AND l.status = 'pending_auth'
	`, botID, platform)
}

// Activate promotes a pending_auth link to active in one transaction.
func (r *LinkRepository) Activate(ctx context.Context, linkID, accountID, username string, secretBlob []byte) (domain.BotServiceLink, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer SafeRollback(ctx, tx)

	link, err := scanLink(tx.QueryRow(ctx, `
		UPDATE bot_service_link
		SET status = 'active', linked_account_id = $2, linked_username = NULLIF($3, ''), updated_at = NOW()
		WHERE link_id = $1 AND status = 'pending_auth'
		RETURNING `+linkColumns, linkID, accountID, username))
	if err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToActivateLink, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE session_secret
		SET secret_blob = $2, authorized = TRUE, code_hash = NULL, temp_secret_blob = NULL
		WHERE link_id = $1
	`, linkID, secretBlob)
	if err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToUpsertSecret, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return link, nil
}

// Get returns the link row by ID.
func (r *LinkRepository) Get(ctx context.Context, linkID string) (domain.BotServiceLink, error) {
	link, err := scanLink(r.db.QueryRow(ctx, `
		SELECT `+linkColumns+` FROM bot_service_link WHERE link_id = $1
	`, linkID))
	if err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToGetLink, err)
	}
	return link, nil
}

// GetWithSecret returns the link row and its secret.
func (r *LinkRepository) GetWithSecret(ctx context.Context, linkID string) (repository.LinkRecord, error) {
	return r.queryRecord(ctx, `
		SELECT l.link_id, l.bot_id, l.platform, COALESCE(l.linked_account_id, ''), COALESCE(l.linked_username, ''), l.status, l.created_at, l.updated_at,
		       s.secret_blob, s.authorized, COALESCE(s.code_hash, ''), s.temp_secret_blob, s.last_connected_at
		FROM bot_service_link l
		JOIN session_secret s ON s.link_id = l.link_id
		WHERE l.link_id = $1
	`, linkID)
}

// ListByBot returns the bot's non-revoked links.
func (r *LinkRepository) ListByBot(ctx context.Context, botID string) ([]domain.BotServiceLink, error) {
	return r.queryLinks(ctx, `
		SELECT `+linkColumns+`
		FROM bot_service_link
		WHERE bot_id = $1 AND status <> 'revoked'
		ORDER BY created_at
	`, botID)
}

// ListByStatus returns every link in the given status with its secret.
func (r *LinkRepository) ListByStatus(ctx context.Context, status domain.LinkStatus) ([]repository.LinkRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.link_id, l.bot_id, l.platform, COALESCE(l.linked_account_id, ''), COALESCE(l.linked_username, ''), l.status, l.created_at, l.updated_at,
		       s.secret_blob, s.authorized, COALESCE(s.code_hash, ''), s.temp_secret_blob, s.last_connected_at
		FROM bot_service_link l
		JOIN session_secret s ON s.link_id = l.link_id
		WHERE l.status = $1
		ORDER BY l.created_at
	`, status)
	if err != nil {
		return nil, translate(ErrMsgFailedToListLinks, err)
	}
	defer rows.Close()

	var records []repository.LinkRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, translate(ErrMsgFailedToListLinks, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ReassignBot rebinds the link to newBotID under a row lock. The partial
// unique index on (bot_id, platform) rejects a bot that already holds a
// live link, surfacing as a conflict.
func (r *LinkRepository) ReassignBot(ctx context.Context, linkID, newBotID string) (domain.BotServiceLink, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer SafeRollback(ctx, tx)

	if _, err := scanLink(tx.QueryRow(ctx, `
		SELECT `+linkColumns+` FROM bot_service_link WHERE link_id = $1 AND status <> 'revoked' FOR UPDATE
	`, linkID)); err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToGetLink, err)
	}

	link, err := scanLink(tx.QueryRow(ctx, `
		UPDATE bot_service_link
		SET bot_id = $2, updated_at = NOW()
		WHERE link_id = $1
		RETURNING `+linkColumns, linkID, newBotID))
	if err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToUpdateLink, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return link, nil
}

// SetStatus flips the link status and touches updated_at.
func (r *LinkRepository) SetStatus(ctx context.Context, linkID string, status domain.LinkStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bot_service_link SET status = $2, updated_at = NOW() WHERE link_id = $1
	`, linkID, status)
	if err != nil {
		return translate(ErrMsgFailedToUpdateLink, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateLink, domain.ErrNotFound)
	}
	return nil
}

// Revoke soft-deletes the link and nulls the secret material in one
// transaction. Revoking an already revoked link returns the current row.
func (r *LinkRepository) Revoke(ctx context.Context, linkID string) (domain.BotServiceLink, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer SafeRollback(ctx, tx)

	link, err := scanLink(tx.QueryRow(ctx, `
		UPDATE bot_service_link
		SET status = 'revoked', updated_at = NOW()
		WHERE link_id = $1
		RETURNING `+linkColumns, linkID))
	if err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToRevokeLink, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE session_secret
		SET secret_blob = NULL, authorized = FALSE, code_hash = NULL, temp_secret_blob = NULL
		WHERE link_id = $1
	`, linkID)
	if err != nil {
		return domain.BotServiceLink{}, translate(ErrMsgFailedToUpsertSecret, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BotServiceLink{}, fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return link, nil
}

// TouchConnected records a successful listener connection time.
func (r *LinkRepository) TouchConnected(ctx context.Context, linkID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE session_secret SET last_connected_at = $2 WHERE link_id = $1
	`, linkID, at)
	if err != nil {
		return translate(ErrMsgFailedToUpsertSecret, err)
	}
	return nil
}

func (r *LinkRepository) queryLinks(ctx context.Context, query string, args ...any) ([]domain.BotServiceLink, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(ErrMsgFailedToListLinks, err)
	}
	defer rows.Close()

	var links []domain.BotServiceLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, translate(ErrMsgFailedToListLinks, err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *LinkRepository) queryRecord(ctx context.Context, query string, args ...any) (repository.LinkRecord, error) {
	record, err := scanRecord(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return repository.LinkRecord{}, translate(ErrMsgFailedToGetLink, err)
	}
	return record, nil
}

func scanRecord(row pgx.Row) (repository.LinkRecord, error) {
	var record repository.LinkRecord
	err := row.Scan(
		&record.Link.ID,
		&record.Link.BotID,
		&record.Link.Platform,
		&record.Link.LinkedAccountID,
		&record.Link.LinkedUsername,
		&record.Link.Status,
		&record.Link.CreatedAt,
		&record.Link.UpdatedAt,
		&record.Secret.SecretBlob,
		&record.Secret.Authorized,
		&record.Secret.CodeHash,
		&record.Secret.TempSecretBlob,
		&record.Secret.LastConnectedAt,
	)
	record.Secret.LinkID = record.Link.ID
	return record, err
}

package blacklist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable [Store] implementation over a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore describes the newpostgresstore operation and its observable behavior.
//
// NewPostgresStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the blacklisted_tokens table and its lookup indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS blacklisted_tokens (
			jti TEXT PRIMARY KEY,
			user_email TEXT NOT NULL,
			token_type TEXT NOT NULL,
			expiry_date TIMESTAMPTZ NOT NULL,
			logout_reason TEXT,
			ip_address TEXT,
			user_agent TEXT,
			blacklisted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS blacklisted_tokens_email_idx ON blacklisted_tokens(user_email)`,
		`CREATE INDEX IF NOT EXISTS blacklisted_tokens_expiry_idx ON blacklisted_tokens(expiry_date)`,
	}

	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO blacklisted_tokens
			(jti, user_email, token_type, expiry_date, logout_reason, ip_address, user_agent, blacklisted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (jti) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		entry.TokenID,
		entry.Email,
		entry.TokenType,
		entry.ExpiresAt,
		entry.Reason,
		entry.IP,
		entry.UserAgent,
		entry.RecordedAt,
	)
	return err
}

func (s *PostgresStore) Find(ctx context.Context, tokenID string) (Entry, error) {
	query := `
		SELECT jti, user_email, token_type, expiry_date, logout_reason, ip_address, user_agent, blacklisted_at
		FROM blacklisted_tokens
		WHERE jti = $1
	`
	var entry Entry
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&entry.TokenID,
		&entry.Email,
		&entry.TokenType,
		&entry.ExpiresAt,
		&entry.Reason,
		&entry.IP,
		&entry.UserAgent,
		&entry.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokenID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM blacklisted_tokens WHERE jti = $1`, tokenID)
	return err
}

func (s *PostgresStore) UpdateForEmail(ctx context.Context, email string, now time.Time, reason, ip, userAgent string) (int64, error) {
	query := `
		UPDATE blacklisted_tokens
		SET logout_reason = $1, ip_address = $2, user_agent = $3
		WHERE user_email = $4 AND expiry_date > $5
	`
	tag, err := s.pool.Exec(ctx, query, reason, ip, userAgent, email, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpdateForEmailAndType(ctx context.Context, email, tokenType string, now time.Time, reason, ip, userAgent string) (int64, error) {
	query := `
		UPDATE blacklisted_tokens
		SET logout_reason = $1, ip_address = $2, user_agent = $3
		WHERE user_email = $4 AND token_type = $5 AND expiry_date > $6
	`
	tag, err := s.pool.Exec(ctx, query, reason, ip, userAgent, email, tokenType, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blacklisted_tokens WHERE expiry_date < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) FindValidForEmail(ctx context.Context, email string, now time.Time) ([]Entry, error) {
	query := `
		SELECT jti, user_email, token_type, expiry_date, logout_reason, ip_address, user_agent, blacklisted_at
		FROM blacklisted_tokens
		WHERE user_email = $1 AND expiry_date > $2
		ORDER BY blacklisted_at DESC
	`
	rows, err := s.pool.Query(ctx, query, email, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.TokenID,
			&entry.Email,
			&entry.TokenType,
			&entry.ExpiresAt,
			&entry.Reason,
			&entry.IP,
			&entry.UserAgent,
			&entry.RecordedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

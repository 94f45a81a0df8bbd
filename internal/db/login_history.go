package db

import (
	"context"
	"fmt"
	"time"

	otpAuth "github.com/MrEthical07/otpAuth"
)

// LoginHistoryStore implements otpAuth.LoginHistoryProvider. Rows are
// append-only; the lockout queries only ever scan the configured window via
// the (email, occurred_at) and (ip, occurred_at) indexes.
type LoginHistoryStore struct {
	db *Postgres
}

func NewLoginHistoryStore(db *Postgres) *LoginHistoryStore {
	return &LoginHistoryStore{db: db}
}

func (s *LoginHistoryStore) Record(ctx context.Context, attempt otpAuth.LoginAttempt) error {
	query := `
		INSERT INTO login_history (email, ip, user_agent, successful, failure_reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	occurredAt := attempt.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err := s.db.Pool.Exec(ctx, query,
		attempt.Email,
		attempt.IP,
		attempt.UserAgent,
		attempt.Successful,
		attempt.FailureReason,
		occurredAt,
	)
	if err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

func (s *LoginHistoryStore) CountFailedByEmailSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM login_history WHERE email = $1 AND successful = FALSE AND occurred_at >= $2`,
		email, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed attempts by email: %w", err)
	}
	return count, nil
}

func (s *LoginHistoryStore) CountFailedByIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM login_history WHERE ip = $1 AND successful = FALSE AND occurred_at >= $2`,
		ip, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed attempts by ip: %w", err)
	}
	return count, nil
}

func (s *LoginHistoryStore) StatsByEmail(ctx context.Context, email string) (otpAuth.LoginStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE successful),
			COUNT(*) FILTER (WHERE NOT successful),
			COALESCE(MAX(occurred_at) FILTER (WHERE successful), 'epoch'::timestamptz)
		FROM login_history WHERE email = $1
	`
	var stats otpAuth.LoginStats
	var lastLogin time.Time
	err := s.db.Pool.QueryRow(ctx, query, email).Scan(&stats.TotalLogins, &stats.TotalFailures, &lastLogin)
	if err != nil {
		return otpAuth.LoginStats{}, fmt.Errorf("login stats by email: %w", err)
	}
	if lastLogin.Unix() > 0 {
		stats.LastLoginAt = lastLogin
	}
	return stats, nil
}

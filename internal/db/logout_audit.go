package db

import (
	"context"
	"fmt"
	"time"

	otpAuth "github.com/MrEthical07/otpAuth"
)

// LogoutAuditStore implements otpAuth.LogoutAuditRecorder.
type LogoutAuditStore struct {
	db *Postgres
}

func NewLogoutAuditStore(db *Postgres) *LogoutAuditStore {
	return &LogoutAuditStore{db: db}
}

func (s *LogoutAuditStore) Record(ctx context.Context, entry otpAuth.LogoutAuditEntry) error {
	query := `
		INSERT INTO logout_audit
			(email, logout_type, reason, ip, user_agent, sessions_terminated,
			 success, error_message, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	occurredAt := entry.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err := s.db.Pool.Exec(ctx, query,
		entry.Email,
		entry.LogoutType,
		entry.Reason,
		entry.IP,
		entry.UserAgent,
		entry.SessionsTerminated,
		entry.Success,
		entry.ErrorMessage,
		entry.RequestID,
		occurredAt,
	)
	if err != nil {
		return fmt.Errorf("record logout audit: %w", err)
	}
	return nil
}

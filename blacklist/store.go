package blacklist

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEntryNotFound is an exported constant or variable used by the authentication engine.
	ErrEntryNotFound = errors.New("blacklist entry not found")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("blacklist store unavailable")
)

// Entry is one revoked token. Unique by TokenID; entries with ExpiresAt in
// the past are logically dead and subject to sweep.
type Entry struct {
	TokenID    string
	Email      string
	TokenType  string
	ExpiresAt  time.Time
	Reason     string
	IP         string
	UserAgent  string
	RecordedAt time.Time
}

// Expired reports whether the entry's token would have died naturally by now.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Store is the persistence contract for revocation entries.
type Store interface {
	// Insert records a new entry. Inserting an already-present TokenID is a
	// no-op so revocation stays idempotent.
	Insert(ctx context.Context, entry Entry) error

	// Find returns the entry for tokenID or ErrEntryNotFound.
	Find(ctx context.Context, tokenID string) (Entry, error)

	// Delete removes the entry for tokenID; deleting a missing id is a no-op.
	Delete(ctx context.Context, tokenID string) error

	// UpdateForEmail rewrites reason/IP/user-agent on every still-valid entry
	// for email and returns how many rows changed.
	UpdateForEmail(ctx context.Context, email string, now time.Time, reason, ip, userAgent string) (int64, error)

	// UpdateForEmailAndType rewrites reason/IP/user-agent on every still-valid
	// entry of the given token type for email and returns how many rows
	// changed.
	UpdateForEmailAndType(ctx context.Context, email, tokenType string, now time.Time, reason, ip, userAgent string) (int64, error)

	// DeleteExpired removes every entry with expiry before now and returns the
	// deleted count. Must be idempotent across overlapping runs.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// FindValidForEmail lists still-valid entries for email, newest first.
	FindValidForEmail(ctx context.Context, email string, now time.Time) ([]Entry, error)
}

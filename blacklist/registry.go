package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/otpAuth/internal"
	"github.com/MrEthical07/otpAuth/jwt"
)

// Registry makes revocation decisions over a [Store] using claims extracted
// through the shared jwt manager.
type Registry struct {
	store  Store
	tokens *jwt.Manager
	logger zerolog.Logger
	now    func() time.Time
}

// NewRegistry describes the newregistry operation and its observable behavior.
//
// NewRegistry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRegistry(store Store, tokens *jwt.Manager, logger zerolog.Logger) *Registry {
	return &Registry{
		store:  store,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// Revoke records the token as revoked. Idempotent: a token id already present
// in the store is left untouched. Tokens that fail signature or structural
// checks still get a derived id recorded so logout remains idempotent for
// whatever string the client presented.
func (r *Registry) Revoke(ctx context.Context, token, reason, ip, userAgent string) error {
	now := r.now()
	entry := Entry{
		Reason:     reason,
		IP:         ip,
		UserAgent:  userAgent,
		RecordedAt: now,
	}

	claims, err := r.tokens.Parse(token)
	if err != nil {
		entry.TokenID = internal.DeriveTokenID(token)
		entry.ExpiresAt = now.Add(time.Hour)
	} else {
		entry.TokenID = claims.ID
		entry.Email = claims.Subject
		entry.TokenType = string(claims.Type)
		entry.ExpiresAt = claims.ExpiresAt.Time
		if entry.TokenID == "" {
			entry.TokenID = internal.DeriveTokenID(token)
		}
	}

	if _, err := r.store.Find(ctx, entry.TokenID); err == nil {
		return nil
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.logger.Info().
		Str("email", entry.Email).
		Str("token_type", entry.TokenType).
		Str("reason", reason).
		Str("ip", ip).
		Msg("token revoked")
	return nil
}

// IsRevoked reports whether the token's id is in the registry. Entries whose
// expiry has already passed count as not revoked and are deleted on the spot,
// complementing the periodic sweep.
func (r *Registry) IsRevoked(ctx context.Context, token string) bool {
	tokenID := r.tokenID(token)

	entry, err := r.store.Find(ctx, tokenID)
	if err != nil {
		return false
	}

	if entry.Expired(r.now()) {
		if err := r.store.Delete(ctx, tokenID); err != nil {
			r.logger.Warn().Err(err).Str("token_id", tokenID).Msg("lazy blacklist cleanup failed")
		}
		return false
	}

	return true
}

// RevokeAllForSubject stamps every still-valid tracked entry for email with
// the new reason and metadata. This is a bulk update over existing entries,
// not a bulk insert; it returns how many entries were touched.
func (r *Registry) RevokeAllForSubject(ctx context.Context, email, reason, ip, userAgent string) (int64, error) {
	count, err := r.store.UpdateForEmail(ctx, email, r.now(), reason, ip, userAgent)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.logger.Info().Str("email", email).Int64("entries", count).Str("reason", reason).Msg("bulk revocation for subject")
	return count, nil
}

// RevokeAllForSubjectAndType stamps every still-valid tracked entry of
// tokenType for email with the new reason and metadata. Used to refresh the
// revocation record for one token class without touching the other.
//
// Entries are updated in place, never deleted: the store is a denylist, so
// removing a row would put the token it names back into circulation until it
// expires on its own.
func (r *Registry) RevokeAllForSubjectAndType(ctx context.Context, email string, tokenType jwt.TokenType, reason, ip, userAgent string) (int64, error) {
	count, err := r.store.UpdateForEmailAndType(ctx, email, string(tokenType), r.now(), reason, ip, userAgent)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.logger.Info().
		Str("email", email).
		Str("token_type", string(tokenType)).
		Int64("entries", count).
		Str("reason", reason).
		Msg("bulk revocation for subject and type")
	return count, nil
}

// SweepExpired deletes all entries whose expiry has passed and returns the
// deleted count. Safe to run concurrently with itself; the second run simply
// deletes zero rows.
func (r *Registry) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := r.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count > 0 {
		r.logger.Info().Int64("deleted", count).Msg("expired blacklist entries swept")
	}
	return count, nil
}

// EntriesForSubject lists the still-valid revocation entries for email.
func (r *Registry) EntriesForSubject(ctx context.Context, email string) ([]Entry, error) {
	entries, err := r.store.FindValidForEmail(ctx, email, r.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}

func (r *Registry) tokenID(token string) string {
	claims, err := r.tokens.Parse(token)
	if err != nil || claims.ID == "" {
		return internal.DeriveTokenID(token)
	}
	return claims.ID
}

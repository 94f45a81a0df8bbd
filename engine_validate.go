package otpAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/otpAuth/jwt"
)

// ValidationMode selects how much state a bearer-token check consults.
type ValidationMode int

const (
	// ModeStrict verifies signature, expiry, revocation, and account status.
	ModeStrict ValidationMode = iota
	// ModeJWTOnly verifies signature and expiry only; no store lookups.
	ModeJWTOnly
)

// AuthResult defines a public type used by otpAuth APIs.
//
// AuthResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuthResult struct {
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, accessToken string, mode ValidationMode) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(accessToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.Type != jwt.TypeAccess || e.jwtManager.IsExpired(accessToken) {
		return nil, ErrTokenInvalid
	}

	result := &AuthResult{
		Email:   claims.Subject,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	if mode == ModeJWTOnly {
		return result, nil
	}

	if e.blacklist != nil && e.blacklist.IsRevoked(ctx, accessToken) {
		return nil, ErrTokenRevoked
	}
	if _, err := e.resolveUser(ctx, claims.Subject); err != nil {
		if errors.Is(err, ErrAccountInactive) {
			return nil, ErrAccountInactive
		}
		return nil, ErrTokenInvalid
	}

	return result, nil
}

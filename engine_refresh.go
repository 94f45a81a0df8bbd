package otpAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/otpAuth/jwt"
)

// RefreshAccessToken describes the refreshaccesstoken operation and its observable behavior.
//
// RefreshAccessToken may return an error when input validation, dependency calls, or security checks fail.
// RefreshAccessToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(refreshToken)
	if err != nil {
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}
	email := claims.Subject

	if claims.Type != jwt.TypeRefresh || e.jwtManager.IsExpired(refreshToken) {
		e.emitAudit(ctx, auditEventRefreshInvalid, false, email, ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	// A refresh token revoked by any logout path stays dead even though its
	// signature and expiry still check out.
	if e.blacklist != nil && e.blacklist.IsRevoked(ctx, refreshToken) {
		e.emitAudit(ctx, auditEventRefreshInvalid, false, email, ErrTokenRevoked, nil)
		return nil, ErrTokenRevoked
	}

	if _, err := e.resolveUser(ctx, email); err != nil {
		if errors.Is(err, ErrAccountInactive) {
			e.emitAudit(ctx, auditEventRefreshInvalid, false, email, ErrAccountInactive, nil)
			return nil, ErrAccountInactive
		}
		// Unknown subject on a validly signed token means the account was
		// removed after issuance; report it like any bad token.
		e.emitAudit(ctx, auditEventRefreshInvalid, false, email, ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	access, err := e.jwtManager.Refresh(refreshToken)
	if err != nil {
		e.emitAudit(ctx, auditEventRefreshInvalid, false, email, ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	e.emitAudit(ctx, auditEventRefreshSuccess, true, email, nil, nil)

	// Refresh tokens are not rotated: the caller keeps presenting the same
	// one until it expires or is revoked.
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(e.jwtManager.AccessTTL().Seconds()),
	}, nil
}

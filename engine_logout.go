package otpAuth

import (
	"context"
	"fmt"

	"github.com/MrEthical07/otpAuth/internal/rate"
	"github.com/MrEthical07/otpAuth/jwt"
)

const (
	logoutTypeSingle  = "SINGLE"
	logoutTypeAll     = "ALL"
	logoutTypeForced  = "FORCED"
	logoutTypeRefresh = "REFRESH_ONLY"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken, reason string) (*LogoutResult, error) {
	if e == nil || e.blacklist == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)
	if err := e.consumeRate(rate.ClassLogoutIP, ip); err != nil {
		e.emitRateLimit(ctx, "logout_ip", "", nil)
		return nil, err
	}

	email := e.subjectOf(accessToken)
	if email == "" {
		email = e.subjectOf(refreshToken)
	}

	userAgent := userAgentFromContext(ctx)
	terminated := 0

	// A known subject gets every already-tracked refresh token restamped
	// before the presented pair is recorded, so a single logout cannot leave
	// an older device's refresh grant live under a stale revocation record.
	if email != "" {
		updated, err := e.blacklist.RevokeAllForSubjectAndType(ctx, email, jwt.TypeRefresh, reason,
			ip, userAgent)
		if err != nil {
			e.logger.Warn().Err(err).Str("email", email).Msg("bulk refresh revocation failed during logout")
		} else {
			terminated += int(updated)
		}
	}

	var revokeErr error
	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}
		if err := e.blacklist.Revoke(ctx, token, reason, ip, userAgent); err != nil {
			revokeErr = err
			continue
		}
		terminated++
	}
	if revokeErr != nil {
		e.recordLogout(ctx, LogoutAuditEntry{
			Email:        email,
			LogoutType:   logoutTypeSingle,
			Reason:       reason,
			Success:      false,
			ErrorMessage: revokeErr.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrInternal, revokeErr)
	}

	// Pending OTP state dies with the session so a code requested before
	// logout cannot mint fresh tokens afterwards.
	if e.otpStore != nil && email != "" {
		e.otpStore.Clear(ctx, email)
	}

	e.recordLogout(ctx, LogoutAuditEntry{
		Email:              email,
		LogoutType:         logoutTypeSingle,
		Reason:             reason,
		SessionsTerminated: terminated,
		Success:            true,
	})
	e.emitAudit(ctx, auditEventLogout, true, email, nil, func() map[string]string {
		return map[string]string{"tokens_revoked": fmt.Sprintf("%d", terminated)}
	})

	return &LogoutResult{Email: email, SessionsTerminated: terminated}, nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, accessToken, reason string) (*LogoutResult, error) {
	if e == nil || e.blacklist == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)
	if err := e.consumeRate(rate.ClassLogoutIP, ip); err != nil {
		e.emitRateLimit(ctx, "logout_ip", "", nil)
		return nil, err
	}

	email := e.subjectOf(accessToken)
	userAgent := userAgentFromContext(ctx)

	// Already-tracked entries are restamped first, then the presented token
	// is revoked explicitly (under a derived id when unreadable). An unknown
	// subject still yields generic success so logout stays idempotent for
	// whatever the client presented.
	terminated := 0
	if email != "" {
		updated, err := e.blacklist.RevokeAllForSubject(ctx, email, reason, ip, userAgent)
		if err != nil {
			e.recordLogout(ctx, LogoutAuditEntry{
				Email:        email,
				LogoutType:   logoutTypeAll,
				Reason:       reason,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		terminated += int(updated)

		if e.otpStore != nil {
			e.otpStore.Clear(ctx, email)
		}
	}

	if accessToken != "" {
		if err := e.blacklist.Revoke(ctx, accessToken, reason, ip, userAgent); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		terminated++
	}
	e.recordLogout(ctx, LogoutAuditEntry{
		Email:              email,
		LogoutType:         logoutTypeAll,
		Reason:             reason,
		SessionsTerminated: terminated,
		Success:            true,
	})
	e.emitAudit(ctx, auditEventLogoutAll, true, email, nil, func() map[string]string {
		return map[string]string{"tokens_revoked": fmt.Sprintf("%d", terminated)}
	})

	return &LogoutResult{Email: email, SessionsTerminated: terminated}, nil
}

// InvalidateRefreshTokens revokes every known refresh token for email while
// leaving live access tokens untouched. Access tokens age out on their own
// short TTL.
func (e *Engine) InvalidateRefreshTokens(ctx context.Context, email, reason string) (*LogoutResult, error) {
	if e == nil || e.blacklist == nil {
		return nil, ErrEngineNotReady
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	updated, err := e.blacklist.RevokeAllForSubjectAndType(ctx, email, jwt.TypeRefresh, reason,
		clientIPFromContext(ctx), userAgentFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.recordLogout(ctx, LogoutAuditEntry{
		Email:              email,
		LogoutType:         logoutTypeRefresh,
		Reason:             reason,
		SessionsTerminated: int(updated),
		Success:            true,
	})
	e.emitAudit(ctx, auditEventRefreshInvalidated, true, email, nil, nil)

	return &LogoutResult{Email: email, SessionsTerminated: int(updated)}, nil
}

// ForceLogout is the administrative variant: no token is presented, the
// subject is named directly and all their known tokens plus any pending OTP
// are invalidated.
func (e *Engine) ForceLogout(ctx context.Context, email, reason string) (*LogoutResult, error) {
	if e == nil || e.blacklist == nil {
		return nil, ErrEngineNotReady
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if _, err := e.userProvider.FindByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEmail, email)
	}

	updated, err := e.blacklist.RevokeAllForSubject(ctx, email, reason,
		clientIPFromContext(ctx), userAgentFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if e.otpStore != nil {
		e.otpStore.Clear(ctx, email)
	}

	e.recordLogout(ctx, LogoutAuditEntry{
		Email:              email,
		LogoutType:         logoutTypeForced,
		Reason:             reason,
		SessionsTerminated: int(updated),
		Success:            true,
	})
	e.emitAudit(ctx, auditEventForceLogout, true, email, nil, func() map[string]string {
		return map[string]string{"reason": reason}
	})

	return &LogoutResult{Email: email, SessionsTerminated: int(updated)}, nil
}

// subjectOf extracts the subject from a token, tolerating expiry and bad
// signatures. Revocation paths must never fail on an unreadable token.
func (e *Engine) subjectOf(token string) string {
	if token == "" || e.jwtManager == nil {
		return ""
	}
	email, err := e.jwtManager.Subject(token)
	if err != nil {
		return ""
	}
	return email
}

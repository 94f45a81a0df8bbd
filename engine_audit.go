package otpAuth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventOTPRequested        = "otp_requested"
	auditEventOTPRequestDenied    = "otp_request_denied"
	auditEventOTPVerifySuccess    = "otp_verify_success"
	auditEventOTPVerifyFailure    = "otp_verify_failure"
	auditEventOTPAttemptsExceeded = "otp_attempts_exceeded"
	auditEventRefreshSuccess      = "refresh_success"
	auditEventRefreshInvalid      = "refresh_invalid"
	auditEventLogout              = "logout"
	auditEventLogoutAll           = "logout_all"
	auditEventForceLogout         = "force_logout"
	auditEventRefreshInvalidated  = "refresh_invalidated"
	auditEventSignupSuccess       = "signup_success"
	auditEventSignupDuplicate     = "signup_duplicate"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventLockoutTriggered    = "lockout_triggered"
	auditEventBlacklistSweep      = "blacklist_sweep"
	auditEventAccountStatusChange = "account_status_change"
)

// AuditErrorCode defines a public type used by otpAuth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrUnknownEmail     AuditErrorCode = "unknown_email"
	auditErrAccountInactive  AuditErrorCode = "account_inactive"
	auditErrAccountLocked    AuditErrorCode = "account_locked"
	auditErrIPLocked         AuditErrorCode = "ip_locked"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrOTPInvalid       AuditErrorCode = "otp_invalid"
	auditErrAttemptsExceeded AuditErrorCode = "attempts_exceeded"
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrTokenRevoked     AuditErrorCode = "token_revoked"
	auditErrDuplicate        AuditErrorCode = "duplicate"
	auditErrValidation       AuditErrorCode = "validation"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	email string,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, email, ErrRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnknownEmail):
		return auditErrUnknownEmail
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrIPLocked):
		return auditErrIPLocked
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrOTPAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrOTPUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

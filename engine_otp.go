package otpAuth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/otpAuth/internal"
	"github.com/MrEthical07/otpAuth/internal/rate"
	"github.com/MrEthical07/otpAuth/jwt"
)

// RequestOTP describes the requestotp operation and its observable behavior.
//
// RequestOTP may return an error when input validation, dependency calls, or security checks fail.
// RequestOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestOTP(ctx context.Context, email string) (*OTPRequestResult, error) {
	if e == nil || e.otpStore == nil {
		return nil, ErrEngineNotReady
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	ip := clientIPFromContext(ctx)
	if err := e.consumeRate(rate.ClassRequestIP, ip); err != nil {
		e.emitRateLimit(ctx, "request_otp_ip", email, nil)
		return nil, err
	}
	if err := e.consumeRate(rate.ClassRequestEmail, email); err != nil {
		e.emitRateLimit(ctx, "request_otp_email", email, nil)
		return nil, err
	}

	// Attempt-budget check precedes the user lookup so a burned OTP cannot
	// be re-requested into a fresh guessing window.
	if e.otpStore.IsRateLimited(ctx, email) {
		e.emitAudit(ctx, auditEventOTPRequestDenied, false, email, ErrOTPAttemptsExceeded, nil)
		return nil, ErrOTPAttemptsExceeded
	}

	// The user lookup runs before the lockout checks: an unknown address
	// answers the same way whether or not the caller is locked out.
	if _, err := e.resolveUser(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventOTPRequestDenied, false, email, err, nil)
		return nil, err
	}

	if e.tracker != nil && e.tracker.IsAccountLocked(ctx, email) {
		e.emitAudit(ctx, auditEventLockoutTriggered, false, email, ErrAccountLocked, func() map[string]string {
			return map[string]string{"scope": "account"}
		})
		return nil, ErrAccountLocked
	}
	if e.tracker != nil && e.tracker.IsIPLocked(ctx, ip) {
		e.emitAudit(ctx, auditEventLockoutTriggered, false, email, ErrIPLocked, func() map[string]string {
			return map[string]string{"scope": "ip"}
		})
		return nil, ErrIPLocked
	}

	code, err := e.otpStore.Generate(ctx, email)
	if err != nil {
		e.logger.Error().Err(err).Str("email", email).Msg("otp generation failed")
		return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}

	e.sendOTPEmail(email, code)

	e.emitAudit(ctx, auditEventOTPRequested, true, email, nil, nil)
	return &OTPRequestResult{Email: email, ExpiresIn: e.config.OTP.TTL}, nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) (*TokenPair, error) {
	if e == nil || e.otpStore == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(code) != e.config.OTP.Length || !internal.IsNumericString(code) {
		return nil, fmt.Errorf("%w: malformed otp", ErrValidation)
	}

	if _, err := e.resolveUser(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, email, err, nil)
		return nil, err
	}

	ip := clientIPFromContext(ctx)
	if e.tracker != nil && e.tracker.IsAccountLocked(ctx, email) {
		e.emitAudit(ctx, auditEventLockoutTriggered, false, email, ErrAccountLocked, func() map[string]string {
			return map[string]string{"scope": "account"}
		})
		return nil, ErrAccountLocked
	}
	if e.tracker != nil && e.tracker.IsIPLocked(ctx, ip) {
		e.emitAudit(ctx, auditEventLockoutTriggered, false, email, ErrIPLocked, func() map[string]string {
			return map[string]string{"scope": "ip"}
		})
		return nil, ErrIPLocked
	}

	ok, err := e.otpStore.Verify(ctx, email, code)
	if errors.Is(err, errOTPAttemptsExhausted) {
		e.recordAttempt(ctx, email, false, "otp attempts exceeded")
		e.emitAudit(ctx, auditEventOTPAttemptsExceeded, false, email, ErrOTPAttemptsExceeded, nil)
		return nil, ErrOTPAttemptsExceeded
	}
	if err != nil {
		e.logger.Error().Err(err).Str("email", email).Msg("otp verification backend failed")
		return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	if !ok {
		e.recordAttempt(ctx, email, false, "otp mismatch")
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, email, ErrOTPInvalid, nil)
		return nil, ErrOTPInvalid
	}

	access, err := e.jwtManager.Issue(email, jwt.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	refresh, err := e.jwtManager.Issue(email, jwt.TypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.recordAttempt(ctx, email, true, "")
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, email, nil, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(e.jwtManager.AccessTTL().Seconds()),
	}, nil
}

// sendOTPEmail dispatches delivery on a goroutine. The request already
// succeeded from the caller's point of view; a delivery failure only logs.
func (e *Engine) sendOTPEmail(email, code string) {
	if e.mailer == nil {
		e.logger.Warn().Str("email", email).Msg("no mailer configured, otp not delivered")
		return
	}

	ttl := e.config.OTP.TTL
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		subject := "Your login code"
		body := fmt.Sprintf("Your one-time login code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
		if err := e.mailer.Send(ctx, email, subject, body); err != nil {
			e.logger.Error().Err(err).Str("email", email).Msg("otp email delivery failed")
		}
	}()
}

// normalizeEmail lowercases and validates an address. The normalized form is
// the canonical key for OTP records, rate buckets, and token subjects.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: malformed email", ErrValidation)
	}
	return email, nil
}

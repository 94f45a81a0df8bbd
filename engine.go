package otpAuth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/otpAuth/blacklist"
	internalaudit "github.com/MrEthical07/otpAuth/internal/audit"
	"github.com/MrEthical07/otpAuth/internal/rate"
	"github.com/MrEthical07/otpAuth/jwt"
)

// Engine defines a public type used by otpAuth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	rateLimiter *rate.Limiter
	otpStore    *OtpStore
	tracker     *AttemptTracker
	jwtManager  *jwt.Manager
	blacklist   *blacklist.Registry
	sweeper     *blacklist.Sweeper
	audit       *internalaudit.Dispatcher
	logger      zerolog.Logger

	userProvider UserProvider
	history      LoginHistoryProvider
	logoutAudit  LogoutAuditRecorder
	mailer       EmailSender
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sweeper != nil {
		e.sweeper.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Tokens exposes the token manager so transport layers can parse bearer
// tokens without re-deriving signing configuration.
func (e *Engine) Tokens() *jwt.Manager {
	if e == nil {
		return nil
	}
	return e.jwtManager
}

// Blacklist exposes the revocation registry for transport-layer guards.
func (e *Engine) Blacklist() *blacklist.Registry {
	if e == nil {
		return nil
	}
	return e.blacklist
}

// RateLimitError carries the bucket decision behind [ErrRateLimited] so
// transport layers can populate Retry-After and X-RateLimit-* headers.
type RateLimitError struct {
	Decision rate.Decision
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.Decision.RetryAfter)
}

// Unwrap makes errors.Is(err, ErrRateLimited) hold for every rate denial.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// consumeRate charges one unit against the class bucket for key. A denial is
// returned as *RateLimitError so callers surface limiter metadata upstream.
func (e *Engine) consumeRate(class rate.Class, key string) error {
	if key == "" {
		return nil
	}
	decision := e.rateLimiter.TryConsume(class, key, 1)
	if decision.Allowed {
		return nil
	}
	return &RateLimitError{Decision: decision}
}

// resolveUser loads an active account by normalized email. The error taxonomy
// here drives HTTP mapping: unknown address and inactive account stay
// distinguishable.
func (e *Engine) resolveUser(ctx context.Context, email string) (UserRecord, error) {
	if e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	user, err := e.userProvider.FindByEmail(ctx, email)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %s", ErrUnknownEmail, email)
	}
	if !user.Active {
		return user, ErrAccountInactive
	}
	return user, nil
}

func (e *Engine) recordAttempt(ctx context.Context, email string, success bool, reason string) {
	if e.tracker == nil {
		return
	}
	e.tracker.Record(ctx, LoginAttempt{
		Email:         email,
		IP:            clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		Successful:    success,
		FailureReason: reason,
	})
}

func (e *Engine) recordLogout(ctx context.Context, entry LogoutAuditEntry) {
	if e.logoutAudit == nil {
		return
	}
	entry.IP = clientIPFromContext(ctx)
	entry.UserAgent = userAgentFromContext(ctx)
	if err := e.logoutAudit.Record(ctx, entry); err != nil {
		e.logger.Warn().Err(err).Str("email", entry.Email).Msg("logout audit record failed")
	}
}

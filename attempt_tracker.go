package otpAuth

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AttemptTracker derives lockout decisions from recorded login attempts. It
// holds no state of its own: every check is a windowed count against the
// [LoginHistoryProvider], so a lockout ends the moment the oldest failure
// ages out of the window.
type AttemptTracker struct {
	cfg     LockoutConfig
	history LoginHistoryProvider
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAttemptTracker describes the newattempttracker operation and its observable behavior.
//
// NewAttemptTracker does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewAttemptTracker(cfg LockoutConfig, history LoginHistoryProvider, logger zerolog.Logger) *AttemptTracker {
	return &AttemptTracker{
		cfg:     cfg,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Record persists one attempt outcome. Failures to write history are logged,
// never surfaced: an audit hiccup must not block a login.
func (t *AttemptTracker) Record(ctx context.Context, attempt LoginAttempt) {
	if t.history == nil {
		return
	}
	if attempt.OccurredAt.IsZero() {
		attempt.OccurredAt = t.now()
	}
	if err := t.history.Record(ctx, attempt); err != nil {
		t.logger.Warn().Err(err).Str("email", attempt.Email).Msg("login attempt record failed")
	}
}

// IsAccountLocked reports whether email accumulated too many failures inside
// the account lockout window. History errors fail open.
func (t *AttemptTracker) IsAccountLocked(ctx context.Context, email string) bool {
	if t.history == nil || t.cfg.AccountMaxFailures <= 0 {
		return false
	}
	since := t.now().Add(-t.cfg.AccountWindow)
	count, err := t.history.CountFailedByEmailSince(ctx, email, since)
	if err != nil {
		t.logger.Warn().Err(err).Str("email", email).Msg("account lockout check failed")
		return false
	}
	return count >= int64(t.cfg.AccountMaxFailures)
}

// IsIPLocked reports whether ip accumulated too many failures (across any
// account) inside the IP lockout window. History errors fail open.
func (t *AttemptTracker) IsIPLocked(ctx context.Context, ip string) bool {
	if t.history == nil || t.cfg.IPMaxFailures <= 0 || ip == "" {
		return false
	}
	since := t.now().Add(-t.cfg.IPWindow)
	count, err := t.history.CountFailedByIPSince(ctx, ip, since)
	if err != nil {
		t.logger.Warn().Err(err).Str("ip", ip).Msg("ip lockout check failed")
		return false
	}
	return count >= int64(t.cfg.IPMaxFailures)
}

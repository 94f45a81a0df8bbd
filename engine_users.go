package otpAuth

import (
	"context"
	"fmt"
	"strings"
)

// Signup describes the signup operation and its observable behavior.
//
// Signup may return an error when input validation, dependency calls, or security checks fail.
// Signup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Signup(ctx context.Context, email, name string) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return UserRecord{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return UserRecord{}, fmt.Errorf("%w: name required", ErrValidation)
	}

	exists, err := e.userProvider.Exists(ctx, email)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if exists {
		e.emitAudit(ctx, auditEventSignupDuplicate, false, email, ErrDuplicateEmail, nil)
		return UserRecord{}, ErrDuplicateEmail
	}

	user, err := e.userProvider.Create(ctx, email, name)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.emitAudit(ctx, auditEventSignupSuccess, true, email, nil, nil)
	return user, nil
}

// User looks up the account for a normalized email.
func (e *Engine) User(ctx context.Context, email string) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return UserRecord{}, err
	}
	user, err := e.userProvider.FindByEmail(ctx, email)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %s", ErrUnknownEmail, email)
	}
	return user, nil
}

// UpdateUserName renames an account. Tokens stay valid; only profile data
// changes.
func (e *Engine) UpdateUserName(ctx context.Context, id int64, name string) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return UserRecord{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	user, err := e.userProvider.UpdateName(ctx, id, name)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return user, nil
}

// UserStats aggregates the account's login history. Accounts with no history
// provider configured get zero stats, not an error.
func (e *Engine) UserStats(ctx context.Context, email string) (LoginStats, error) {
	if e == nil || e.userProvider == nil {
		return LoginStats{}, ErrEngineNotReady
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return LoginStats{}, err
	}
	if _, err := e.userProvider.FindByEmail(ctx, email); err != nil {
		return LoginStats{}, fmt.Errorf("%w: %s", ErrUnknownEmail, email)
	}
	if e.history == nil {
		return LoginStats{}, nil
	}
	stats, err := e.history.StatsByEmail(ctx, email)
	if err != nil {
		return LoginStats{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return stats, nil
}

// DeactivateUser flips the account inactive and force-revokes every known
// token, so the flag takes effect immediately rather than at next refresh.
func (e *Engine) DeactivateUser(ctx context.Context, id int64, reason string) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	user, err := e.userProvider.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: id %d", ErrUnknownEmail, id)
	}
	if err := e.userProvider.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.emitAudit(ctx, auditEventAccountStatusChange, true, user.Email, nil, func() map[string]string {
		return map[string]string{"status": "inactive", "reason": reason}
	})

	if _, err := e.ForceLogout(ctx, user.Email, reason); err != nil {
		e.logger.Warn().Err(err).Str("email", user.Email).Msg("post-deactivation force logout failed")
	}
	return nil
}

package otpAuth

import "errors"

var (
	// ErrUnknownEmail is an exported constant or variable used by the authentication engine.
	ErrUnknownEmail = errors.New("unknown email")
	// ErrAccountInactive is an exported constant or variable used by the authentication engine.
	ErrAccountInactive = errors.New("account is deactivated")
	// ErrAccountLocked is an exported constant or variable used by the authentication engine.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrIPLocked is an exported constant or variable used by the authentication engine.
	ErrIPLocked = errors.New("ip temporarily blocked")
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrOTPInvalid = errors.New("invalid otp")
	// ErrOTPAttemptsExceeded is an exported constant or variable used by the authentication engine.
	ErrOTPAttemptsExceeded = errors.New("otp attempts exceeded")
	// ErrOTPUnavailable is an exported constant or variable used by the authentication engine.
	ErrOTPUnavailable = errors.New("otp backend unavailable")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenRevoked is an exported constant or variable used by the authentication engine.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrDuplicateEmail is an exported constant or variable used by the authentication engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("invalid input")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInternal is an exported constant or variable used by the authentication engine.
	ErrInternal = errors.New("internal error")
)

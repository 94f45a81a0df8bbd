package otpAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/otpAuth/internal"
	"github.com/MrEthical07/otpAuth/internal/rate"
)

// Config defines a public type used by otpAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	OTP       OTPConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Lockout   LockoutConfig
	Blacklist BlacklistConfig
	Audit     AuditConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig defines a public type used by otpAuth APIs.
//
// OTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPConfig struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
	KeyPrefix   string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by otpAuth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by otpAuth APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	RequestIPCapacity     float64
	RequestIPRefillPerMin float64
	RequestEmailCapacity  float64
	RequestEmailRefillMin float64
	LogoutIPCapacity      float64
	LogoutIPRefillPerMin  float64
}

func (c RateLimitConfig) bucketConfig() rate.Config {
	return rate.Config{
		rate.ClassRequestIP:    {Capacity: c.RequestIPCapacity, RefillRate: c.RequestIPRefillPerMin},
		rate.ClassRequestEmail: {Capacity: c.RequestEmailCapacity, RefillRate: c.RequestEmailRefillMin},
		rate.ClassLogoutIP:     {Capacity: c.LogoutIPCapacity, RefillRate: c.LogoutIPRefillPerMin},
	}
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig tunes the audit-derived sliding lock, which is distinct from
// the token-bucket request limiter: it reflects failed verification outcomes,
// not raw request volume.
type LockoutConfig struct {
	AccountMaxFailures int
	AccountWindow      time.Duration
	IPMaxFailures      int
	IPWindow           time.Duration
}

/*
====================================
BLACKLIST CONFIG
====================================
*/

// BlacklistConfig defines a public type used by otpAuth APIs.
//
// BlacklistConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BlacklistConfig struct {
	SweepInterval time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by otpAuth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the baseline configuration: 6-digit codes valid for
// five minutes with three attempts, 15-minute access and 30-day refresh
// tokens, and the stock limiter and lockout windows.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			Length:      6,
			TTL:         5 * time.Minute,
			MaxAttempts: 3,
			KeyPrefix:   "otp",
		},
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			Issuer:     "otpAuth",
		},
		RateLimit: RateLimitConfig{
			RequestIPCapacity:     10,
			RequestIPRefillPerMin: 10,
			RequestEmailCapacity:  5,
			RequestEmailRefillMin: 5,
			LogoutIPCapacity:      20,
			LogoutIPRefillPerMin:  20,
		},
		Lockout: LockoutConfig{
			AccountMaxFailures: 5,
			AccountWindow:      15 * time.Minute,
			IPMaxFailures:      10,
			IPWindow:           15 * time.Minute,
		},
		Blacklist: BlacklistConfig{
			SweepInterval: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.OTP.Length < internal.MinOTPDigits || cfg.OTP.Length > internal.MaxOTPDigits {
		return errors.New("otp length out of range")
	}
	if cfg.OTP.TTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if cfg.OTP.MaxAttempts < 1 {
		return errors.New("otp max attempts must be at least 1")
	}
	if len(cfg.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= cfg.JWT.AccessTTL {
		return errors.New("invalid token ttl configuration")
	}
	if cfg.Lockout.AccountMaxFailures < 1 || cfg.Lockout.IPMaxFailures < 1 {
		return errors.New("lockout thresholds must be at least 1")
	}
	if cfg.Lockout.AccountWindow <= 0 || cfg.Lockout.IPWindow <= 0 {
		return errors.New("lockout windows must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	clone := cfg
	if cfg.JWT.Secret != nil {
		clone.JWT.Secret = make([]byte, len(cfg.JWT.Secret))
		copy(clone.JWT.Secret, cfg.JWT.Secret)
	}
	return clone
}

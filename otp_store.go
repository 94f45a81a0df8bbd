package otpAuth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/otpAuth/internal"
)

var (
	errOTPNotFound          = errors.New("otp record not found")
	errOTPUnavailable       = errors.New("otp store unavailable")
	errOTPAttemptsExhausted = errors.New("otp attempt budget exhausted")
)

// otpBackend is the storage strategy behind [OtpStore]. The Redis
// implementation is primary; the in-process implementation takes over per
// operation when Redis is unreachable. Backends are not synchronized with
// each other: a key written to the fallback is owned by the fallback until
// cleared or expired.
type otpBackend interface {
	saveCode(ctx context.Context, key, hash string, ttl time.Duration) error
	loadCode(ctx context.Context, key string) (string, error)
	deleteCode(ctx context.Context, key string) error

	// incrementAttempts bumps the counter and returns the NEW value so a
	// caller never compares against a stale read. The first increment in a
	// window arms the TTL.
	incrementAttempts(ctx context.Context, key string, ttl time.Duration) (int64, error)
	attempts(ctx context.Context, key string) (int64, error)
	clearAttempts(ctx context.Context, key string) error

	remainingTTL(ctx context.Context, key string) (time.Duration, error)
}

// OtpStore holds one hashed OTP and one attempt counter per email, both
// bounded by the configured TTL. Plaintext codes are returned to the caller
// exactly once and never persisted.
type OtpStore struct {
	cfg      OTPConfig
	primary  otpBackend
	fallback otpBackend
	probe    func(ctx context.Context) bool
	logger   zerolog.Logger
}

// NewOtpStore describes the newotpstore operation and its observable behavior.
//
// NewOtpStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewOtpStore(cfg OTPConfig, redisClient *redis.Client, logger zerolog.Logger) *OtpStore {
	store := &OtpStore{
		cfg:      cfg,
		fallback: newMemoryOTPBackend(),
		logger:   logger,
	}

	if redisClient != nil {
		store.primary = &redisOTPBackend{client: redisClient}
		store.probe = func(ctx context.Context) bool {
			probeCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer cancel()
			return redisClient.Ping(probeCtx).Err() == nil
		}
	}

	return store
}

// Generate produces a fresh numeric code for email, stores only its bcrypt
// hash under the configured TTL (overwriting any prior live record), and
// returns the plaintext for out-of-band delivery.
func (s *OtpStore) Generate(ctx context.Context, email string) (string, error) {
	code, err := internal.NewOTP(s.cfg.Length)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}

	backend := s.backend(ctx)
	if err := backend.saveCode(ctx, s.codeKey(email), string(hash), s.cfg.TTL); err != nil {
		return "", err
	}

	return code, nil
}

// Verify checks candidate against the stored hash for email. It fails closed
// when no live record exists, counts every call against the attempt budget,
// and purges the record on success (single use) or when the budget is
// exhausted.
func (s *OtpStore) Verify(ctx context.Context, email, candidate string) (bool, error) {
	backend := s.backend(ctx)

	hash, err := backend.loadCode(ctx, s.codeKey(email))
	if errors.Is(err, errOTPNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	count, err := backend.incrementAttempts(ctx, s.attemptsKey(email), s.cfg.TTL)
	if err != nil {
		return false, err
	}
	if count > int64(s.cfg.MaxAttempts) {
		s.logger.Warn().Str("email", email).Int64("attempts", count).Msg("otp attempt budget exhausted, purging record")
		s.purge(ctx, backend, email)
		return false, errOTPAttemptsExhausted
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) != nil {
		return false, nil
	}

	s.purge(ctx, backend, email)
	return true, nil
}

// IsRateLimited reports whether the attempt counter for email has already
// reached the maximum, letting callers short-circuit before any user lookup.
func (s *OtpStore) IsRateLimited(ctx context.Context, email string) bool {
	count, err := s.backend(ctx).attempts(ctx, s.attemptsKey(email))
	if err != nil {
		return false
	}
	return count >= int64(s.cfg.MaxAttempts)
}

// RemainingTTL reports how long the live OTP for email stays valid. Zero
// means no live record.
func (s *OtpStore) RemainingTTL(ctx context.Context, email string) time.Duration {
	ttl, err := s.backend(ctx).remainingTTL(ctx, s.codeKey(email))
	if err != nil {
		return 0
	}
	return ttl
}

// Clear invalidates any live OTP and attempt counter for email. Used on
// logout to prevent stale-OTP reuse.
func (s *OtpStore) Clear(ctx context.Context, email string) {
	s.purge(ctx, s.backend(ctx), email)
}

func (s *OtpStore) purge(ctx context.Context, backend otpBackend, email string) {
	if err := backend.deleteCode(ctx, s.codeKey(email)); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("otp code purge failed")
	}
	if err := backend.clearAttempts(ctx, s.attemptsKey(email)); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("otp attempts purge failed")
	}
}

// backend selects the storage strategy once per operation: Redis when the
// health probe passes, the in-process fallback otherwise.
func (s *OtpStore) backend(ctx context.Context) otpBackend {
	if s.primary == nil {
		return s.fallback
	}
	if s.probe != nil && !s.probe(ctx) {
		s.logger.Warn().Msg("redis unavailable, using in-memory otp fallback")
		return s.fallback
	}
	return s.primary
}

func (s *OtpStore) codeKey(email string) string {
	return s.cfg.KeyPrefix + ":" + email
}

func (s *OtpStore) attemptsKey(email string) string {
	return s.cfg.KeyPrefix + "_attempts:" + email
}

/*
====================================
REDIS BACKEND
====================================
*/

type redisOTPBackend struct {
	client *redis.Client
}

func (b *redisOTPBackend) saveCode(ctx context.Context, key, hash string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, hash, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}
	return nil
}

func (b *redisOTPBackend) loadCode(ctx context.Context, key string) (string, error) {
	hash, err := b.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errOTPNotFound
		}
		return "", fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}
	return hash, nil
}

func (b *redisOTPBackend) deleteCode(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}
	return nil
}

func (b *redisOTPBackend) incrementAttempts(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := b.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}

	// Counter shares the OTP window: arm TTL only on the first hit.
	if count == 1 {
		if err := b.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", errOTPUnavailable, err)
		}
	}

	return count, nil
}

func (b *redisOTPBackend) attempts(ctx context.Context, key string) (int64, error) {
	count, err := b.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}
	return count, nil
}

func (b *redisOTPBackend) clearAttempts(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}
	return nil
}

func (b *redisOTPBackend) remainingTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := b.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errOTPUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

/*
====================================
IN-PROCESS FALLBACK BACKEND
====================================
*/

type memoryOTPEntry struct {
	mu        sync.Mutex
	hash      string
	count     int64
	expiresAt time.Time
}

// memoryOTPBackend keeps per-email entries in a sync.Map; every entry guards
// its own read-modify-write with a per-key mutex so concurrent verifications
// cannot both observe a stale counter. Expiry is lazy: checked on every read,
// no sweep goroutine.
type memoryOTPBackend struct {
	codes    sync.Map // key -> *memoryOTPEntry
	counters sync.Map
	now      func() time.Time
}

func newMemoryOTPBackend() *memoryOTPBackend {
	return &memoryOTPBackend{now: time.Now}
}

func (b *memoryOTPBackend) entry(m *sync.Map, key string) *memoryOTPEntry {
	if existing, ok := m.Load(key); ok {
		return existing.(*memoryOTPEntry)
	}
	actual, _ := m.LoadOrStore(key, &memoryOTPEntry{})
	return actual.(*memoryOTPEntry)
}

func (b *memoryOTPBackend) saveCode(_ context.Context, key, hash string, ttl time.Duration) error {
	e := b.entry(&b.codes, key)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hash = hash
	e.expiresAt = b.now().Add(ttl)
	return nil
}

func (b *memoryOTPBackend) loadCode(_ context.Context, key string) (string, error) {
	existing, ok := b.codes.Load(key)
	if !ok {
		return "", errOTPNotFound
	}

	e := existing.(*memoryOTPEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hash == "" || b.now().After(e.expiresAt) {
		b.codes.Delete(key)
		return "", errOTPNotFound
	}
	return e.hash, nil
}

func (b *memoryOTPBackend) deleteCode(_ context.Context, key string) error {
	b.codes.Delete(key)
	return nil
}

func (b *memoryOTPBackend) incrementAttempts(_ context.Context, key string, ttl time.Duration) (int64, error) {
	e := b.entry(&b.counters, key)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := b.now()
	if e.count == 0 || now.After(e.expiresAt) {
		e.count = 0
		e.expiresAt = now.Add(ttl)
	}
	e.count++
	return e.count, nil
}

func (b *memoryOTPBackend) attempts(_ context.Context, key string) (int64, error) {
	existing, ok := b.counters.Load(key)
	if !ok {
		return 0, nil
	}

	e := existing.(*memoryOTPEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	if b.now().After(e.expiresAt) {
		b.counters.Delete(key)
		return 0, nil
	}
	return e.count, nil
}

func (b *memoryOTPBackend) clearAttempts(_ context.Context, key string) error {
	b.counters.Delete(key)
	return nil
}

func (b *memoryOTPBackend) remainingTTL(_ context.Context, key string) (time.Duration, error) {
	existing, ok := b.codes.Load(key)
	if !ok {
		return 0, nil
	}

	e := existing.(*memoryOTPEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	remaining := e.expiresAt.Sub(b.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

package otpAuth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testOTPConfig() OTPConfig {
	return OTPConfig{
		Length:      6,
		TTL:         5 * time.Minute,
		MaxAttempts: 3,
		KeyPrefix:   "otp",
	}
}

func newRedisOtpStore(t *testing.T) (*OtpStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewOtpStore(testOTPConfig(), client, zerolog.Nop()), mr
}

func TestGenerateVerifySingleUse(t *testing.T) {
	store, _ := newRedisOtpStore(t)
	ctx := context.Background()

	code, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code length = %d, want 6", len(code))
	}

	ok, err := store.Verify(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("correct code rejected")
	}

	// Success purges the record; the same code must not verify twice.
	ok, err = store.Verify(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if ok {
		t.Fatal("code accepted twice")
	}
}

func TestGenerateStoresOnlyHash(t *testing.T) {
	store, mr := newRedisOtpStore(t)
	ctx := context.Background()

	code, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	stored, err := mr.Get("otp:alice@example.com")
	if err != nil {
		t.Fatalf("redis get: %v", err)
	}
	if stored == code {
		t.Fatal("plaintext code persisted")
	}
}

func TestVerifyExhaustsAttemptBudget(t *testing.T) {
	store, mr := newRedisOtpStore(t)
	ctx := context.Background()

	if _, err := store.Generate(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 0; i < 3; i++ {
		ok, err := store.Verify(ctx, "alice@example.com", "000000")
		if err != nil {
			t.Fatalf("Verify attempt %d: %v", i+1, err)
		}
		if ok {
			t.Fatalf("wrong code accepted on attempt %d", i+1)
		}
	}

	if !store.IsRateLimited(ctx, "alice@example.com") {
		t.Fatal("attempt budget reached but not reported rate limited")
	}

	_, err := store.Verify(ctx, "alice@example.com", "000000")
	if !errors.Is(err, errOTPAttemptsExhausted) {
		t.Fatalf("err = %v, want attempt budget exhausted", err)
	}

	// Exhaustion purges both keys.
	if mr.Exists("otp:alice@example.com") {
		t.Fatal("code key survived exhaustion")
	}
	if mr.Exists("otp_attempts:alice@example.com") {
		t.Fatal("attempts key survived exhaustion")
	}
}

func TestVerifyExpiredCodeFailsClosed(t *testing.T) {
	store, mr := newRedisOtpStore(t)
	ctx := context.Background()

	code, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	mr.FastForward(6 * time.Minute)

	ok, err := store.Verify(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expired code accepted")
	}
}

func TestGenerateOverwritesPriorCode(t *testing.T) {
	store, _ := newRedisOtpStore(t)
	ctx := context.Background()

	first, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if ok, _ := store.Verify(ctx, "alice@example.com", first); ok && first != second {
		t.Fatal("superseded code still accepted")
	}
}

func TestRemainingTTLTracksWindow(t *testing.T) {
	store, _ := newRedisOtpStore(t)
	ctx := context.Background()

	if ttl := store.RemainingTTL(ctx, "alice@example.com"); ttl != 0 {
		t.Fatalf("ttl without record = %v, want 0", ttl)
	}

	if _, err := store.Generate(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	ttl := store.RemainingTTL(ctx, "alice@example.com")
	if ttl <= 0 || ttl > 5*time.Minute {
		t.Fatalf("ttl = %v, want within (0, 5m]", ttl)
	}
}

func TestClearInvalidatesRecord(t *testing.T) {
	store, _ := newRedisOtpStore(t)
	ctx := context.Background()

	code, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	store.Clear(ctx, "alice@example.com")

	if ok, _ := store.Verify(ctx, "alice@example.com", code); ok {
		t.Fatal("cleared code accepted")
	}
}

func TestMemoryFallbackWithoutRedis(t *testing.T) {
	store := NewOtpStore(testOTPConfig(), nil, zerolog.Nop())
	ctx := context.Background()

	code, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	ok, err := store.Verify(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("correct code rejected by in-memory backend")
	}
}

func TestMemoryFallbackWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewOtpStore(testOTPConfig(), client, zerolog.Nop())
	ctx := context.Background()

	mr.Close()

	code, err := store.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate against downed redis: %v", err)
	}

	ok, err := store.Verify(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("Verify against downed redis: %v", err)
	}
	if !ok {
		t.Fatal("fallback backend rejected the correct code")
	}
}

package blacklist

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/otpAuth/jwt"
)

const testSecret = "registry-test-secret-registry-test-secret"

func newTestManager(t *testing.T) *jwt.Manager {
	t.Helper()

	manager, err := jwt.NewManager(jwt.Config{
		Secret:     []byte(testSecret),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Issuer:     "registry-test",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager
}

func newTestRegistry(t *testing.T) (*Registry, *MemoryStore, *jwt.Manager) {
	t.Helper()

	store := NewMemoryStore()
	manager := newTestManager(t)
	return NewRegistry(store, manager, zerolog.Nop()), store, manager
}

func TestRevokeThenIsRevoked(t *testing.T) {
	registry, _, manager := newTestRegistry(t)
	ctx := context.Background()

	token, err := manager.Issue("alice@example.com", jwt.TypeRefresh)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if registry.IsRevoked(ctx, token) {
		t.Fatal("fresh token reported revoked")
	}
	if err := registry.Revoke(ctx, token, "logout", "10.0.0.1", "test-agent"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !registry.IsRevoked(ctx, token) {
		t.Fatal("revoked token reported valid")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	registry, store, manager := newTestRegistry(t)
	ctx := context.Background()

	token, err := manager.Issue("alice@example.com", jwt.TypeAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := registry.Revoke(ctx, token, "first", "10.0.0.1", "agent"); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}
	if err := registry.Revoke(ctx, token, "second", "10.0.0.2", "agent"); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}

	claims, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	entry, err := store.Find(ctx, claims.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if entry.Reason != "first" {
		t.Fatalf("reason = %q, want the original entry preserved", entry.Reason)
	}
}

func TestRevokeUnparsableTokenUsesDerivedID(t *testing.T) {
	registry, store, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := registry.Revoke(ctx, "not-a-jwt", "logout", "10.0.0.1", "agent"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !registry.IsRevoked(ctx, "not-a-jwt") {
		t.Fatal("garbage token not tracked after revocation")
	}

	var found bool
	entries, err := store.FindValidForEmail(ctx, "", time.Now())
	if err != nil {
		t.Fatalf("FindValidForEmail: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.TokenID, "derived-") {
			found = true
			if entry.ExpiresAt.Before(time.Now()) {
				t.Fatal("derived entry already expired")
			}
		}
	}
	if !found {
		t.Fatal("no derived-id entry recorded for unparsable token")
	}
}

func TestRevokeAllForSubjectStampsValidEntries(t *testing.T) {
	registry, _, manager := newTestRegistry(t)
	ctx := context.Background()

	access, _ := manager.Issue("bob@example.com", jwt.TypeAccess)
	refresh, _ := manager.Issue("bob@example.com", jwt.TypeRefresh)
	other, _ := manager.Issue("carol@example.com", jwt.TypeRefresh)

	for _, token := range []string{access, refresh, other} {
		if err := registry.Revoke(ctx, token, "logout", "10.0.0.1", "agent"); err != nil {
			t.Fatalf("Revoke: %v", err)
		}
	}

	count, err := registry.RevokeAllForSubject(ctx, "bob@example.com", "forced", "10.0.0.9", "admin")
	if err != nil {
		t.Fatalf("RevokeAllForSubject: %v", err)
	}
	if count != 2 {
		t.Fatalf("updated %d entries, want 2", count)
	}

	entries, err := registry.EntriesForSubject(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("EntriesForSubject: %v", err)
	}
	for _, entry := range entries {
		if entry.Reason != "forced" {
			t.Fatalf("entry %s reason = %q, want %q", entry.TokenID, entry.Reason, "forced")
		}
	}

	if !registry.IsRevoked(ctx, other) {
		t.Fatal("unrelated subject's token lost its revocation")
	}
}

func TestRevokeAllForSubjectAndTypeKeepsOtherTypeRevoked(t *testing.T) {
	registry, _, manager := newTestRegistry(t)
	ctx := context.Background()

	access, _ := manager.Issue("bob@example.com", jwt.TypeAccess)
	refresh, _ := manager.Issue("bob@example.com", jwt.TypeRefresh)

	for _, token := range []string{access, refresh} {
		if err := registry.Revoke(ctx, token, "logout", "10.0.0.1", "agent"); err != nil {
			t.Fatalf("Revoke: %v", err)
		}
	}

	count, err := registry.RevokeAllForSubjectAndType(ctx, "bob@example.com", jwt.TypeRefresh, "invalidated", "10.0.0.9", "admin")
	if err != nil {
		t.Fatalf("RevokeAllForSubjectAndType: %v", err)
	}
	if count != 1 {
		t.Fatalf("updated %d entries, want 1", count)
	}

	if !registry.IsRevoked(ctx, refresh) {
		t.Fatal("refresh token lost its revocation")
	}
	if !registry.IsRevoked(ctx, access) {
		t.Fatal("access token lost its revocation")
	}
}

func TestIsRevokedLazyDeletesExpiredEntries(t *testing.T) {
	registry, store, manager := newTestRegistry(t)
	ctx := context.Background()

	token, err := manager.Issue("alice@example.com", jwt.TypeAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := registry.Revoke(ctx, token, "logout", "10.0.0.1", "agent"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	// Jump the registry clock past the entry's expiry.
	registry.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	if registry.IsRevoked(ctx, token) {
		t.Fatal("expired entry still counts as revoked")
	}

	claims, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := store.Find(ctx, claims.ID); err == nil {
		t.Fatal("expired entry not deleted on read")
	}
}

func TestSweepExpiredDeletesOnlyExpired(t *testing.T) {
	registry, store, manager := newTestRegistry(t)
	ctx := context.Background()

	fresh, _ := manager.Issue("alice@example.com", jwt.TypeRefresh)
	if err := registry.Revoke(ctx, fresh, "logout", "10.0.0.1", "agent"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := store.Insert(ctx, Entry{
		TokenID:    "stale-entry",
		Email:      "alice@example.com",
		TokenType:  string(jwt.TypeAccess),
		ExpiresAt:  time.Now().Add(-time.Minute),
		RecordedAt: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	count, err := registry.SweepExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if count != 1 {
		t.Fatalf("swept %d entries, want 1", count)
	}

	if _, err := store.Find(ctx, "stale-entry"); err == nil {
		t.Fatal("expired entry survived the sweep")
	}
	if !registry.IsRevoked(ctx, fresh) {
		t.Fatal("live entry removed by the sweep")
	}

	// Idempotent: a back-to-back run finds nothing left to delete.
	count, err = registry.SweepExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("second SweepExpired: %v", err)
	}
	if count != 0 {
		t.Fatalf("second sweep deleted %d entries, want 0", count)
	}
}

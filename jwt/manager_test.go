package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Issuer:     "otpauth-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// newExpiredManager issues tokens that are already expired by the time they
// are parsed.
func newExpiredManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     testSecret,
		AccessTTL:  time.Nanosecond,
		RefreshTTL: 2 * time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"short secret", Config{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero access ttl", Config{Secret: testSecret, AccessTTL: 0, RefreshTTL: time.Hour}},
		{"refresh not exceeding access", Config{Secret: testSecret, AccessTTL: time.Hour, RefreshTTL: time.Hour}},
		{"excessive leeway", Config{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour, Leeway: 5 * time.Minute}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("NewManager accepted invalid config")
			}
		})
	}
}

func TestIssueParseRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "alice@example.com" {
		t.Fatalf("subject = %q, want alice@example.com", claims.Subject)
	}
	if claims.Type != TypeAccess {
		t.Fatalf("type = %q, want access", claims.Type)
	}
	if claims.ID == "" {
		t.Fatal("jti missing")
	}
	if m.IsExpired(token) {
		t.Fatal("fresh token reported expired")
	}
}

func TestIssueEmbedsFreshJTI(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	second, err := m.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	c1, _ := m.Parse(first)
	c2, _ := m.Parse(second)
	if c1.ID == c2.ID {
		t.Fatal("two issued tokens share a jti")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(token, ".")
	prefix := "AAAA"
	if strings.HasPrefix(parts[2], prefix) {
		prefix = "BBBB"
	}
	tampered := parts[0] + "." + parts[1] + "." + prefix + parts[2][4:]
	if _, err := m.Parse(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Parse(tampered) = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(Config{
		Secret:     []byte("ffffffffffffffffffffffffffffffff"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := other.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Parse(foreign) = %v, want ErrInvalidToken", err)
	}
}

func TestExpiredTokenStillParses(t *testing.T) {
	m := newExpiredManager(t)

	token, err := m.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse of expired token failed: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expired token jti unreadable")
	}
	if !m.IsExpired(token) {
		t.Fatal("expired token not reported expired")
	}
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	m := newTestManager(t)

	refresh, err := m.Issue("alice@example.com", TypeRefresh)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	access, err := m.Refresh(refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !m.IsType(access, TypeAccess) {
		t.Fatal("refreshed token is not access type")
	}
	subject, err := m.Subject(access)
	if err != nil || subject != "alice@example.com" {
		t.Fatalf("subject = %q (%v), want alice@example.com", subject, err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	m := newTestManager(t)

	access, err := m.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Refresh(access); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("Refresh(access) = %v, want ErrWrongTokenType", err)
	}
}

func TestRefreshRejectsExpiredRefreshToken(t *testing.T) {
	m := newExpiredManager(t)

	refresh, err := m.Issue("alice@example.com", TypeRefresh)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Refresh(refresh); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Refresh(expired) = %v, want ErrTokenExpired", err)
	}
}

func TestValidateChecksSubjectAndExpiry(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if !m.Validate(token, "alice@example.com") {
		t.Fatal("Validate rejected matching subject")
	}
	if m.Validate(token, "mallory@example.com") {
		t.Fatal("Validate accepted wrong subject")
	}

	expired := newExpiredManager(t)
	expiredToken, err := expired.Issue("alice@example.com", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if expired.Validate(expiredToken, "alice@example.com") {
		t.Fatal("Validate accepted expired token")
	}
}

package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates access from refresh tokens via the "type" claim.
type TokenType string

const (
	// TypeAccess is an exported constant or variable used by the authentication engine.
	TypeAccess TokenType = "access"
	// TypeRefresh is an exported constant or variable used by the authentication engine.
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrInvalidToken is an exported constant or variable used by the authentication engine.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is an exported constant or variable used by the authentication engine.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
)

// Config defines a public type used by otpAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Claims defines a public type used by otpAuth APIs.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Manager defines a public type used by otpAuth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("hs256 requires a secret of at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	return &Manager{config: cfg}, nil
}

// Issue mints a signed token of the given type for subject email. A fresh
// jti is embedded on every call; tokens are never reused or rotated in place.
func (m *Manager) Issue(email string, tokenType TokenType) (string, error) {
	if email == "" {
		return "", ErrInvalidToken
	}

	ttl := m.config.AccessTTL
	if tokenType == TypeRefresh {
		ttl = m.config.RefreshTTL
	}

	now := time.Now()
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Parse verifies the signature and structural validity of a token and returns
// its claims. Expiry is deliberately NOT enforced here: logout must be able to
// revoke an expired-but-signed token, so callers check expiry via [Claims]
// or [Manager.Validate].
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	// Claims validation is skipped so logout paths can still read an expired
	// token's jti; callers enforce expiry through Validate or claimsExpired.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IsExpired reports whether the token's exp claim lies in the past, with
// configured leeway applied. Unparsable tokens report expired.
func (m *Manager) IsExpired(tokenStr string) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return true
	}
	return m.claimsExpired(claims)
}

// IsType reports whether the token parses and carries the given type claim.
func (m *Manager) IsType(tokenStr string, tokenType TokenType) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	return claims.Type == tokenType
}

// Subject returns the subject email of a structurally valid token.
func (m *Manager) Subject(tokenStr string) (string, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Refresh validates refreshToken as an unexpired refresh-type token and mints
// a new access token for the same subject. The refresh token itself is not
// rotated or invalidated.
func (m *Manager) Refresh(refreshToken string) (string, error) {
	claims, err := m.Parse(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.Type != TypeRefresh {
		return "", ErrWrongTokenType
	}
	if m.claimsExpired(claims) {
		return "", ErrTokenExpired
	}

	return m.Issue(claims.Subject, TypeAccess)
}

// Validate reports whether the token belongs to expectedSubject and is not
// expired. Signature validity is a precondition enforced by [Manager.Parse].
func (m *Manager) Validate(tokenStr, expectedSubject string) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject && !m.claimsExpired(claims)
}

// AccessTTL reports the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

func (m *Manager) claimsExpired(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return time.Now().Add(-m.config.Leeway).After(claims.ExpiresAt.Time)
}

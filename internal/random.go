package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// MinOTPDigits is an exported constant or variable used by the authentication engine.
	MinOTPDigits = 4
	// MaxOTPDigits is an exported constant or variable used by the authentication engine.
	MaxOTPDigits = 10
)

// NewOTP generates a numeric one-time code of the given length using
// crypto/rand. Each digit is drawn independently so the code is uniform over
// the full digit space.
func NewOTP(digits int) (string, error) {
	if digits < MinOTPDigits || digits > MaxOTPDigits {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// IsNumericString reports whether s consists solely of ASCII digits.
func IsNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DeriveTokenID produces a deterministic fallback token id from raw token
// material. Used when a token carries no jti claim so revocation stays
// idempotent per token string.
func DeriveTokenID(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return "derived-" + hex.EncodeToString(sum[:16])
}

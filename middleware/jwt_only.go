package middleware

import (
	"github.com/gin-gonic/gin"

	otpAuth "github.com/MrEthical07/otpAuth"
)

// RequireJWTOnly returns middleware that verifies signature and expiry only,
// skipping the blacklist and user lookups entirely. Suitable for endpoints
// where a revoked-but-unexpired token is an acceptable risk.
func RequireJWTOnly(engine *otpAuth.Engine) gin.HandlerFunc {
	return GuardWithMode(engine, otpAuth.ModeJWTOnly)
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	otpAuth "github.com/MrEthical07/otpAuth"
)

const authResultKey = "otpauth.authResult"

// AuthResultFromContext returns the validated bearer identity injected by a
// guard, if any.
func AuthResultFromContext(c *gin.Context) (*otpAuth.AuthResult, bool) {
	value, exists := c.Get(authResultKey)
	if !exists {
		return nil, false
	}
	result, ok := value.(*otpAuth.AuthResult)
	return result, ok
}

// GuardWithMode returns gin middleware enforcing the given validation mode.
// Rejections carry 401 for bad or revoked tokens and 403 for a deactivated
// account.
func GuardWithMode(engine *otpAuth.Engine, mode otpAuth.ValidationMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := otpAuth.WithClientIP(c.Request.Context(), c.ClientIP())
		result, err := engine.Validate(ctx, token, mode)
		if err != nil {
			if errors.Is(err, otpAuth.ErrAccountInactive) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(authResultKey, result)
		c.Next()
	}
}

// Guard is [GuardWithMode] in strict mode.
func Guard(engine *otpAuth.Engine) gin.HandlerFunc {
	return GuardWithMode(engine, otpAuth.ModeStrict)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	otpAuth "github.com/MrEthical07/otpAuth"
	"github.com/MrEthical07/otpAuth/middleware"
)

type AuthHandler struct {
	engine *otpAuth.Engine
}

func NewAuthHandler(engine *otpAuth.Engine) *AuthHandler {
	return &AuthHandler{engine: engine}
}

type otpRequest struct {
	Email string `json:"email" binding:"required"`
}

type otpVerifyRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	Reason       string `json:"reason"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RequestOTP handles POST /api/v1/auth/request-otp.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	result, err := h.engine.RequestOTP(clientContext(c), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "otp sent",
		"email":     result.Email,
		"expiresIn": int(result.ExpiresIn.Seconds()),
	})
}

// VerifyOTP handles POST /api/v1/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	pair, err := h.engine.VerifyOTP(clientContext(c), req.Email, req.OTP)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	pair, err := h.engine.RefreshAccessToken(clientContext(c), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Logout handles POST /api/v1/auth/logout. The access token comes from the
// Authorization header and is revoked even when expired; the refresh token
// travels in the body. Logout is idempotent: missing or garbage tokens still
// produce the generic success response.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	accessToken := bearerToken(c.GetHeader("Authorization"))

	result, err := h.engine.Logout(clientContext(c), accessToken, req.RefreshToken, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "logged out",
		"sessionsTerminated": result.SessionsTerminated,
	})
}

// LogoutAll handles POST /api/v1/auth/logout-all. Like Logout it is
// idempotent: an absent or unreadable bearer token still yields the generic
// success response.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	accessToken := bearerToken(c.GetHeader("Authorization"))

	result, err := h.engine.LogoutAll(clientContext(c), accessToken, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "logged out everywhere",
		"sessionsTerminated": result.SessionsTerminated,
	})
}

type forceLogoutRequest struct {
	Email  string `json:"email" binding:"required"`
	Reason string `json:"reason"`
}

// InvalidateRefreshTokens handles POST /api/v1/auth/invalidate-refresh-tokens
// behind the bearer guard. It kills the caller's tracked refresh tokens while
// leaving access tokens to age out on their own TTL.
func (h *AuthHandler) InvalidateRefreshTokens(c *gin.Context) {
	auth, ok := middleware.AuthResultFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.engine.InvalidateRefreshTokens(clientContext(c), auth.Email, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "refresh tokens invalidated",
		"sessionsTerminated": result.SessionsTerminated,
	})
}

// ForceLogout handles POST /api/v1/auth/force-logout. Administrative: the
// subject is named in the body, no token of theirs is required. The route
// carries no role model; deployments gate it upstream.
func (h *AuthHandler) ForceLogout(c *gin.Context) {
	var req forceLogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	result, err := h.engine.ForceLogout(clientContext(c), req.Email, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "user logged out",
		"sessionsTerminated": result.SessionsTerminated,
	})
}

// clientContext threads request metadata the engine reads for rate limiting,
// lockout, and audit into the context.
func clientContext(c *gin.Context) context.Context {
	ctx := otpAuth.WithClientIP(c.Request.Context(), c.ClientIP())
	return otpAuth.WithUserAgent(ctx, c.Request.UserAgent())
}

func bearerToken(value string) string {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return ""
	}
	return value[len(bearer):]
}

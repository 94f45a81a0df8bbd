package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	otpAuth "github.com/MrEthical07/otpAuth"
	"github.com/MrEthical07/otpAuth/middleware"
)

// RegisterRoutes wires the full HTTP surface onto router.
func RegisterRoutes(router *gin.Engine, engine *otpAuth.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := NewAuthHandler(engine)
	userHandler := NewUserHandler(engine)
	guard := middleware.Guard(engine)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/request-otp", authHandler.RequestOTP)
	auth.POST("/verify-otp", authHandler.VerifyOTP)
	auth.POST("/refresh", authHandler.Refresh)
	// Logout takes its own path through the engine: bad or expired tokens
	// must still be revocable, so no guard here.
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/logout-all", authHandler.LogoutAll)
	auth.POST("/invalidate-refresh-tokens", guard, authHandler.InvalidateRefreshTokens)
	auth.POST("/force-logout", authHandler.ForceLogout)

	users := v1.Group("/users")
	users.POST("", userHandler.Signup)
	users.GET("/me", guard, userHandler.Me)
	users.GET("/me/stats", guard, userHandler.Stats)
	users.PATCH("/me", guard, userHandler.UpdateName)
	users.DELETE("/me", guard, userHandler.Deactivate)
}

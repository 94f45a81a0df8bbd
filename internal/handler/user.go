package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	otpAuth "github.com/MrEthical07/otpAuth"
	"github.com/MrEthical07/otpAuth/middleware"
)

type UserHandler struct {
	engine *otpAuth.Engine
}

func NewUserHandler(engine *otpAuth.Engine) *UserHandler {
	return &UserHandler{engine: engine}
}

type signupRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

type updateNameRequest struct {
	Name string `json:"name" binding:"required"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Signup handles POST /api/v1/users.
func (h *UserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	user, err := h.engine.Signup(clientContext(c), req.Email, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Me handles GET /api/v1/users/me behind the bearer guard.
func (h *UserHandler) Me(c *gin.Context) {
	auth, ok := middleware.AuthResultFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.engine.User(clientContext(c), auth.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// Stats handles GET /api/v1/users/me/stats.
func (h *UserHandler) Stats(c *gin.Context) {
	auth, ok := middleware.AuthResultFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.engine.UserStats(clientContext(c), auth.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{
		"totalLogins":   stats.TotalLogins,
		"totalFailures": stats.TotalFailures,
	}
	if !stats.LastLoginAt.IsZero() {
		resp["lastLoginAt"] = stats.LastLoginAt
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateName handles PATCH /api/v1/users/me.
func (h *UserHandler) UpdateName(c *gin.Context) {
	auth, ok := middleware.AuthResultFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	user, err := h.engine.User(clientContext(c), auth.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	updated, err := h.engine.UpdateUserName(clientContext(c), user.ID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(updated))
}

// Deactivate handles DELETE /api/v1/users/me. Deactivation force-revokes
// every live token for the account.
func (h *UserHandler) Deactivate(c *gin.Context) {
	auth, ok := middleware.AuthResultFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.engine.User(clientContext(c), auth.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.engine.DeactivateUser(clientContext(c), user.ID, "self-service deactivation"); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account deactivated"})
}

func toUserResponse(user otpAuth.UserRecord) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}
}

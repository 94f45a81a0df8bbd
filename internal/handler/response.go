// Package handler translates HTTP requests into engine calls and engine
// errors back into status codes and problem-style bodies.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validator "github.com/go-playground/validator/v10"

	otpAuth "github.com/MrEthical07/otpAuth"
)

// problem is the RFC 7807 style body used for throttling responses.
type problem struct {
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Status     int       `json:"status"`
	Detail     string    `json:"detail"`
	Instance   string    `json:"instance"`
	RetryAfter int       `json:"retryAfter,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// validationProblem extends problem with the per-field message map.
type validationProblem struct {
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Status    int                 `json:"status"`
	Detail    string              `json:"detail"`
	Errors    map[string][]string `json:"errors"`
	Timestamp time.Time           `json:"timestamp"`
}

func writeError(c *gin.Context, err error) {
	var rateErr *otpAuth.RateLimitError
	if errors.As(err, &rateErr) {
		writeRateLimited(c, rateErr)
		return
	}

	switch {
	case errors.Is(err, otpAuth.ErrValidation):
		writeValidationProblem(c, err.Error(), nil)
	case errors.Is(err, otpAuth.ErrUnknownEmail):
		// Legacy clients match on this exact string.
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID MAIL"})
	case errors.Is(err, otpAuth.ErrAccountInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
	case errors.Is(err, otpAuth.ErrAccountLocked):
		writeLocked(c, "account temporarily locked due to repeated failures")
	case errors.Is(err, otpAuth.ErrIPLocked):
		writeLocked(c, "requests from this address are temporarily blocked")
	case errors.Is(err, otpAuth.ErrOTPAttemptsExceeded):
		// Exhaustion surfaces like any other failed verify: the caller
		// learns nothing beyond "unauthorized".
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired otp"})
	case errors.Is(err, otpAuth.ErrOTPInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired otp"})
	case errors.Is(err, otpAuth.ErrTokenInvalid), errors.Is(err, otpAuth.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	case errors.Is(err, otpAuth.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func writeRateLimited(c *gin.Context, rateErr *otpAuth.RateLimitError) {
	d := rateErr.Decision
	retryAfter := int(d.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", d.Reset.Unix()))

	c.JSON(http.StatusTooManyRequests, problem{
		Type:       "about:blank",
		Title:      "Too Many Requests",
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("rate limit exceeded, retry in %d seconds", retryAfter),
		Instance:   c.Request.URL.Path,
		RetryAfter: retryAfter,
		Timestamp:  time.Now().UTC(),
	})
}

func writeLocked(c *gin.Context, detail string) {
	c.JSON(http.StatusTooManyRequests, problem{
		Type:      "about:blank",
		Title:     "Too Many Requests",
		Status:    http.StatusTooManyRequests,
		Detail:    detail,
		Instance:  c.Request.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

// writeBindingError renders gin binding failures as a validation problem with
// the field→messages map populated from the validator's report.
func writeBindingError(c *gin.Context, err error) {
	fields := make(map[string][]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			fields[field] = append(fields[field], bindingMessage(fe))
		}
	}

	writeValidationProblem(c, "request validation failed", fields)
}

func writeValidationProblem(c *gin.Context, detail string, fields map[string][]string) {
	if fields == nil {
		fields = map[string][]string{}
	}
	c.JSON(http.StatusBadRequest, validationProblem{
		Type:      "about:blank",
		Title:     "Bad Request",
		Status:    http.StatusBadRequest,
		Detail:    detail,
		Errors:    fields,
		Timestamp: time.Now().UTC(),
	})
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

package response

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"anoa.com/volunteergoals/internal/entity"
	"anoa.com/volunteergoals/pkg/apperror"
	"anoa.com/volunteergoals/pkg/ratelimiter"
	"anoa.com/volunteergoals/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	idStr, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// GetPrincipal returns the authenticated user together with the role from the token.
func GetPrincipal(c *gin.Context) (entity.Principal, error) {
	userID, err := GetUserID(c)
	if err != nil {
		return entity.Principal{}, err
	}

	role := c.GetString("role")
	if role == "" {
		role = entity.RoleVolunteer
	}

	return entity.Principal{UserID: userID, Role: role}, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
		c.JSON(code, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// ParseUUIDParam reads a path parameter as a UUID and writes a 400 when it is malformed.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// ValidationError writes a 400 for a request that failed binding.
func ValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
}

// RateLimited writes a 429 with Retry-After when err carries a rate limit,
// and reports whether it did.
func RateLimited(c *gin.Context, err error) bool {
	var limited *ratelimiter.RateLimitError
	if !errors.As(err, &limited) {
		return false
	}
	c.Header("Retry-After", fmt.Sprintf("%.0f", limited.RetryAfter.Seconds()))
	c.JSON(http.StatusTooManyRequests, gin.H{"error": limited.Message})
	return true
}

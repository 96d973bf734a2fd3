package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/gin-gonic/gin"
)

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// LoadUser runs after Auth. It resolves "userID" to the account and stores it
// as "user"; a token for a deleted account is treated as unauthorized.
func LoadUser(repo UserFinder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := repo.FindByID(c.Request.Context(), c.GetString("userID"))
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
				return
			}
			logger.ErrorContext(c.Request.Context(), "load user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "Internal server error"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

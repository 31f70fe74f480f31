package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"decktrack/api/logging"
	"decktrack/api/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextOperatorID    = "operator_id"
	ContextOperatorEmail = "operator_email"
)

// AuthRequired guards operator routes. A request passes with the shared
// X-API-KEY (when one is configured) or with a valid JWT from the jwt_token
// cookie or a Bearer Authorization header.
func AuthRequired(secret, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey != "" {
			given := c.GetHeader("X-API-KEY")
			if given != "" && subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) == 1 {
				c.Set(ContextOperatorID, "api-key")
				c.Next()
				return
			}
		}

		tokenString, err := c.Cookie("jwt_token")
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				logging.Debug().Str("path", c.FullPath()).Msg("no operator token in cookie or header")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}

		claims, err := utils.ValidateJWT(tokenString, secret)
		if err != nil {
			logging.Warn().Err(err).Str("path", c.FullPath()).Msg("invalid operator token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(ContextOperatorID, claims.Subject)
		c.Set(ContextOperatorEmail, claims.Email)
		c.Next()
	}
}

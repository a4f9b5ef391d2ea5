package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const sessionTTL = 24 * time.Hour

// GenerateToken issues a short-lived signed session token so clients do not
// have to hold the long-lived API credential for every call.
func GenerateToken(secret string) (string, error) {
	claims := jwt.StandardClaims{
		ExpiresAt: time.Now().Add(sessionTTL).Unix(),
		IssuedAt:  time.Now().Unix(),
		Issuer:    "reportdesk",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Middleware guards mutating endpoints. It accepts either the opaque API
// token or a valid session token from GenerateToken.
func Middleware(apiToken, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if apiToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) == 1 {
			c.Next()
			return
		}

		claims := &jwt.StandardClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authkit/internal/token"
)

const authClaimsKey = "auth_claims"

// JWTAuthMiddleware valida JWT access tokens y guarda claims en el contexto.
func JWTAuthMiddleware(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			c.Abort()
			return
		}

		raw, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		claims, err := tokens.ParseAccess(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWTMiddleware carga los claims si hay un bearer valido y sigue
// sin ellos en cualquier otro caso.
func OptionalJWTMiddleware(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok && tokens != nil {
			if claims, err := tokens.ParseAccess(raw); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (token.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return token.Claims{}, false
	}
	claims, ok := val.(token.Claims)
	return claims, ok
}

func setClaims(c *gin.Context, claims token.Claims) {
	c.Set(authClaimsKey, claims)
	c.Request = c.Request.WithContext(token.ContextWithClaims(c.Request.Context(), claims))
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	return raw, raw != ""
}

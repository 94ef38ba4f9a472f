package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"seatflow/internal/shared/apperrors"
	"seatflow/internal/shared/config"
	"seatflow/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(config.Load())
}

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		claims, err := parseAccessToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims["user_id"])
		c.Set(ContextUserEmail, claims["email"])
		c.Set(ContextUserRole, claims["role"])

		c.Next()
	}
}

func parseAccessToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthenticated("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.Unauthenticated("invalid token claims")
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, apperrors.Unauthenticated("invalid token type")
	}
	return claims, nil
}

// RequireRole middleware checks if user has required role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return RequireRoles(requiredRole)
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextUserRole)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// OptionalAuth validates a JWT if present but doesn't require it
func OptionalAuth() gin.HandlerFunc {
	return OptionalAuthWithConfig(config.Load())
}

func OptionalAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		if claims, err := parseAccessToken(parts[1], cfg.JWT.Secret); err == nil {
			c.Set(ContextUserID, claims["user_id"])
			c.Set(ContextUserEmail, claims["email"])
			c.Set(ContextUserRole, claims["role"])
		}

		c.Next()
	}
}

// ProxyWebhookAuth guards the notification endpoints the proxy pushes to.
// An empty token disables the check.
func ProxyWebhookAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Proxy-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid proxy token", nil, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID resolves the authenticated caller set by JWTAuth
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, apperrors.Unauthenticated("user not authenticated")
	}

	userIDStr, ok := raw.(string)
	if !ok {
		return uuid.Nil, apperrors.Unauthenticated("invalid user ID format")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, apperrors.Unauthenticated("invalid user ID")
	}
	return userID, nil
}

// OptionalUserID returns the caller when authenticated
func OptionalUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := CurrentUserID(c)
	return userID, err == nil
}

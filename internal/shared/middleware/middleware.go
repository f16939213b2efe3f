package middleware

import (
	"net/http"
	"strings"
	"time"

	"ticketly/internal/shared/config"
	"ticketly/internal/shared/utils/response"
	"ticketly/internal/users"
	"ticketly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextUserRole = "user_role"
	ContextRequest  = "request_id"
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
			response.Abort(c, http.StatusUnauthorized, "Authorization header is required", nil)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Abort(c, http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil)
			return
		}

		claims, ok := parseAccessToken(parts[1], cfg.JWT.Secret)
		if !ok {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), "invalid or expired token", c.ClientIP())
			response.Abort(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// parseAccessToken validates the signature and requires type=access
func parseAccessToken(tokenString, secret string) (jwt.MapClaims, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	c.Set(ContextUserID, claims["user_id"])
	c.Set(ContextUsername, claims["username"])
	c.Set(ContextUserRole, claims["role"])
}

// CurrentUserID returns the authenticated user's id from the gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireRole middleware checks if user has required role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return RequireRoles(requiredRole)
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(string(users.RoleAdmin))
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextUserRole)
		if !exists {
			response.Abort(c, http.StatusUnauthorized, "user role not found in context", nil)
			return
		}

		role, _ := userRole.(string)
		hasRole := false
		for _, r := range requiredRoles {
			if role == r {
				hasRole = true
				break
			}
		}

		if !hasRole {
			response.Abort(c, http.StatusForbidden, "Insufficient permissions", nil)
			return
		}

		c.Next()
	}
}

// OptionalAuth middleware validates JWT token if present but doesn't require it
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

		if claims, ok := parseAccessToken(parts[1], cfg.JWT.Secret); ok {
			setClaims(c, claims)
		}

		c.Next()
	}
}

// RequestID tags each request with an id, reusing X-Request-ID when the client sent one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequest, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// RequestLogger logs every request through the structured logger
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := log
		if id, ok := c.Get(ContextRequest); ok {
			if s, ok := id.(string); ok {
				l = l.WithRequestID(s)
			}
		}
		if len(c.Errors) > 0 {
			l.LogHTTPError(c, c.Errors.Last(), c.Writer.Status())
			return
		}
		l.LogHTTPRequest(c, time.Since(start))
	}
}

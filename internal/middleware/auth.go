package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/response"
)

const (
	// UserIDKey is the context key for the authenticated user
	UserIDKey = "user_id"
	// UserIDHeader carries the user when token auth is disabled
	UserIDHeader = "X-User-ID"
	// AccessTokenQuery carries the token on websocket upgrades, where
	// browsers cannot set headers
	AccessTokenQuery = "access_token"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	// Enabled turns on HS256 bearer token validation. When false the user
	// id is read from the X-User-ID header.
	Enabled bool
	Secret  string
	Issuer  string
}

// Auth validates the caller and sets user_id in context
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
			if userID == "" {
				response.Unauthorized(c, "X-User-ID header is required")
				c.Abort()
				return
			}
			c.Set(UserIDKey, userID)
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		userID, err := ValidateToken(token, cfg.Secret, cfg.Issuer)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "Token expired"
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return c.Query(AccessTokenQuery)
}

// ValidateToken parses an HS256 token and returns its user id, taken from
// the user_id claim or else the subject
func ValidateToken(tokenString, secret, issuer string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", ErrInvalidToken
}

// GetUserID returns the authenticated user id from context
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}

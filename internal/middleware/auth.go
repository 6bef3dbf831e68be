package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/sosrelay/internal/auth"
	"github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/metrics"
	"github.com/charlesng35/sosrelay/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// Auth enforces bearer authentication using tokens issued by the hosted auth service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			challenge(c, "missing")
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			challenge(c, "failure")
			return
		}
		metrics.AuthAttempts.WithLabelValues("success").Inc()

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.SessionID != "" {
			c.Set(CtxSessionIDKey, claims.SessionID)
		}

		c.Next()
	}
}

// challenge answers 401 with a bearer challenge and counts the rejection under result.
func challenge(c *gin.Context, result string) {
	metrics.AuthAttempts.WithLabelValues(result).Inc()
	c.Header("WWW-Authenticate", `Bearer realm="sosrelay"`)
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}

// RequireUser rejects service tokens on routes that act on behalf of an end user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetString(CtxUserIDKey)) == "" {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

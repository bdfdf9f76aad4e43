package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfquery/internal/pkg/jwtutil"
	"pdfquery/internal/transport/http/response"
)

const (
	ContextUserIDKey    = "user_id"
	ContextUsernameKey  = "username"
	ContextSessionIDKey = "session_id"
)

// RevocationChecker reports whether a session has been logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

func AuthJWT(secret string, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		revoked, err := revocations.IsRevoked(c.Request.Context(), claims.SessionID())
		if err != nil {
			response.Error(c, 500, response.CodeInternalServer, "session check failed")
			c.Abort()
			return
		}
		if revoked {
			response.Error(c, 401, response.CodeUnauthorized, "session has been logged out")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextSessionIDKey, claims.SessionID())
		c.Next()
	}
}

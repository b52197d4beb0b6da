package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewer-backend/internal/http/response"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/auth"
	"github.com/yungbote/reviewer-backend/internal/platform/ctxutil"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type AuthMiddleware struct {
	log           *logger.Logger
	authenticator auth.Authenticator
}

func NewAuthMiddleware(log *logger.Logger, authenticator auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authenticator: authenticator}
}

// RequireAuth verifies the bearer token and attaches the caller identity.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, fmt.Errorf("missing or invalid token"))
			return
		}
		id, err := am.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, err)
			return
		}
		ctx, rd := ctxutil.EnsureRequestData(c.Request.Context())
		rd.Subject = id.Subject
		rd.Scopes = id.Scopes
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireScope must run after RequireAuth.
func (am *AuthMiddleware) RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if !rd.Authenticated() {
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, fmt.Errorf("not authenticated"))
			return
		}
		if !rd.HasScope(scope) {
			am.log.Warn("scope denied", "subject", rd.Subject, "scope", scope)
			response.RespondError(c, http.StatusForbidden, apierr.CodeForbidden, fmt.Errorf("scope %q required", scope))
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

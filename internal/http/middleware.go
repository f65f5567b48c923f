package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"userhub/internal/auth"
	"userhub/internal/domain"
)

const (
	ctxKeyUser      = "auth.user"
	ctxKeyRequestID = "request.id"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireAuth validates the bearer token, rejects refresh-typed tokens and
// resolves the user, storing it in the gin context. Missing or invalid
// credentials are Unauthorized; an inactive account is Forbidden.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			h.abortWithError(c, domain.NewError(domain.KindUnauthorized, "missing or malformed authorization header"))
			return
		}

		claims, err := h.codec.Decode(strings.TrimSpace(token), time.Now().UTC())
		if err != nil {
			// the wrapped reason (expired/signature/malformed) is log-only;
			// the client always sees the same authentication failure
			h.logger.WithField("request_id", requestID(c)).
				Debugf("token rejected: %v", err)
			h.abortWithError(c, err)
			return
		}
		if claims.TokenType != auth.TokenTypeAccess {
			h.abortWithError(c, domain.NewError(domain.KindUnauthorized, "access token required"))
			return
		}

		user, err := h.resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			// NotFound here means the account vanished after issuance;
			// surface it as a failed authentication, not a missing resource.
			if domain.IsKind(err, domain.KindNotFound) {
				err = domain.NewError(domain.KindUnauthorized, "authentication failed")
			}
			h.abortWithError(c, err)
			return
		}

		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

// requireSuperuser gates a route on the superuser tier. Must run after
// requireAuth.
func (h *Handler) requireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			h.abortWithError(c, domain.NewError(domain.KindUnauthorized, "authentication required"))
			return
		}
		if err := auth.Authorize(user, domain.TierSuperuser); err != nil {
			h.abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

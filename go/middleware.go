package platformserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Apurer/go-cqrs-platform/internal/platform/auth"
	"github.com/Apurer/go-cqrs-platform/internal/platform/requestctx"
)

const (
	// HeaderRoles lists the caller's roles, comma separated. Ignored when
	// bearer authentication is enabled.
	HeaderRoles = "X-Roles"
	// HeaderUserID names the acting user. Ignored when bearer authentication
	// is enabled.
	HeaderUserID = "X-User-ID"
)

// RequestID propagates X-Request-ID, generating one when absent, and stores it
// with the acting user on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestctx.HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestctx.HeaderRequestID, id)
		ctx := requestctx.WithRequestID(c.Request.Context(), id)
		if _, authenticated := auth.PrincipalFromContext(ctx); !authenticated {
			if user := strings.TrimSpace(c.GetHeader(HeaderUserID)); user != "" {
				ctx = requestctx.WithUserID(ctx, user)
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authenticate requires a valid bearer token on tenant routes and restricts
// the caller to the tenants named in it.
func Authenticate(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.FullPath(), "/v1/") {
			c.Next()
			return
		}
		raw, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			respondProblem(c, unauthorized(auth.ErrMissingToken))
			return
		}
		p, err := v.Verify(raw)
		if err != nil {
			respondProblem(c, unauthorized(err))
			return
		}
		if tenant := c.Param("tenantId"); tenant != "" && !p.AllowsTenant(tenant) {
			respondError(c, http.StatusForbidden, errors.New("token does not grant access to tenant "+tenant))
			return
		}
		ctx := auth.WithPrincipal(c.Request.Context(), p)
		ctx = requestctx.WithUserID(ctx, p.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func callerRoles(c *gin.Context) map[string]struct{} {
	roles := map[string]struct{}{}
	if p, ok := auth.PrincipalFromContext(c.Request.Context()); ok {
		for _, role := range p.Roles {
			roles[role] = struct{}{}
		}
		return roles
	}
	for _, raw := range strings.Split(c.GetHeader(HeaderRoles), ",") {
		if role := strings.TrimSpace(raw); role != "" {
			roles[role] = struct{}{}
		}
	}
	return roles
}

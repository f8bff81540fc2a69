package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/token"
)

const principalKey = "principal"

// Principal is the authenticated caller, derived from a verified token only.
type Principal struct {
	ID   uuid.UUID
	Name string
	Role model.Role
}

// Authenticate verifies the bearer header, falling back to the session
// cookie, and stores the Principal in the context. It never reads the user
// store.
func Authenticate(issuer *token.Issuer, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, bearer := credential(c, cookieName)
		if raw == "" {
			unauthenticated(c, bearer, "unauthorized")
			return
		}

		id, err := issuer.Parse(raw)
		if err != nil {
			unauthenticated(c, bearer, "invalid token")
			return
		}

		c.Set(principalKey, Principal{ID: id.UserID, Name: id.Name, Role: id.Role})
		c.Next()
	}
}

// RequireRoles rejects principals whose role is not listed. With no roles
// any authenticated caller passes. Must run after Authenticate.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if len(roles) == 0 {
			c.Next()
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// WantsHTML reports whether the client is a browser navigating pages rather
// than an API client.
func WantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func credential(c *gin.Context, cookieName string) (raw string, bearer bool) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):]), true
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie, false
	}
	return "", false
}

func unauthenticated(c *gin.Context, bearer bool, msg string) {
	if !bearer && WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"platerate/internal/identity"
	"platerate/internal/services"
)

const (
	SessionKey    = "session"
	SessionUIDKey = "uid" // cookie 中保存的用户 uid
)

// LoadUser resolves the caller from an Authorization bearer token or the
// session cookie and stores a services.Session in the context. A request
// without credentials continues as anonymous; an invalid token is rejected.
func LoadUser(verifier identity.Verifier, users *services.UserService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			id, err := verifier.Verify(c.Request.Context(), token)
			if err != nil {
				logger.Debug("Rejected bearer token", "error", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid identity token"})
				return
			}
			u := users.Get(c.Request.Context(), id.UID)
			if u == nil {
				// 首次出现的用户直接建档
				if u, err = users.SyncUser(c.Request.Context(), id); err != nil {
					logger.Warn("Failed to provision user", "uid", id.UID, "error", err)
					c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Could not load user"})
					return
				}
			}
			c.Set(SessionKey, services.NewSession(u))
			c.Next()
			return
		}

		session := sessions.Default(c)
		if uid, ok := session.Get(SessionUIDKey).(string); ok && uid != "" {
			if u := users.Get(c.Request.Context(), uid); u != nil {
				c.Set(SessionKey, services.NewSession(u))
			}
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentSession returns the caller's session, anonymous when nobody is signed in.
func CurrentSession(c *gin.Context) services.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(services.Session); ok {
			return s
		}
	}
	return services.Session{}
}

// AuthRequired rejects anonymous callers.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c).Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Sign in required"})
			return
		}
		c.Next()
	}
}

// ModeratorRequired rejects callers without the moderator role.
func ModeratorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := CurrentSession(c)
		if s.Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Sign in required"})
			return
		}
		if !s.Moderator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Moderator only"})
			return
		}
		c.Next()
	}
}

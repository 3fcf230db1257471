package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"platerate/internal/identity"
	"platerate/internal/middleware"
	"platerate/internal/services"
)

type SessionHandler struct {
	verifier      identity.Verifier
	users         *services.UserService
	notifications *services.NotificationService
	logger        *slog.Logger
}

func NewSessionHandler(verifier identity.Verifier, users *services.UserService, notifications *services.NotificationService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{verifier: verifier, users: users, notifications: notifications, logger: logger}
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// Login 校验身份令牌，同步用户资料并写入会话
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid identity token"})
		return
	}
	user, err := h.users.SyncUser(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUIDKey, user.UID)
	if err := session.Save(); err != nil {
		h.logger.Warn("Failed to save session", "uid", user.UID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not start session"})
		return
	}
	h.logger.Info("User signed in", "uid", user.UID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *SessionHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.logger.Warn("Failed to clear session", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not end session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in user with the unread notification count.
func (h *SessionHandler) Me(c *gin.Context) {
	sess := currentSession(c)
	user := h.users.Get(c.Request.Context(), sess.UID)
	if user == nil {
		RespondError(c, services.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"unread_count": h.notifications.UnreadCount(c.Request.Context(), sess),
	})
}

type profileRequest struct {
	Nickname string `json:"nickname" binding:"max=50"`
}

func (h *SessionHandler) UpdateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess := currentSession(c)
	if err := h.users.SetNickname(c.Request.Context(), sess, req.Nickname); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.users.Get(c.Request.Context(), sess.UID)})
}

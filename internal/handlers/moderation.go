package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"platerate/internal/services"
)

type ModerationHandler struct {
	moderation *services.ModerationService
}

func NewModerationHandler(moderation *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

type flagRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// Flag 举报点评，重复举报只更新理由
func (h *ModerationHandler) Flag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req flagRequest
	// 理由可选，空 body 也接受
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := h.moderation.Flag(c.Request.Context(), currentSession(c), id, req.Reason); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ModerationHandler) Unflag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.moderation.Unflag(c.Request.Context(), currentSession(c), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ModerationHandler) Block(c *gin.Context) {
	if err := h.moderation.Block(c.Request.Context(), currentSession(c), c.Param("uid")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ModerationHandler) Unblock(c *gin.Context) {
	if err := h.moderation.Unblock(c.Request.Context(), currentSession(c), c.Param("uid")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ModerationHandler) Blocks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"blocks": h.moderation.BlockedBy(c.Request.Context(), currentSession(c).UID)})
}

func (h *ModerationHandler) OptOut(c *gin.Context) {
	if err := h.moderation.OptOut(c.Request.Context(), currentSession(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ModerationHandler) OptIn(c *gin.Context) {
	if err := h.moderation.OptIn(c.Request.Context(), currentSession(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Flagged 管理员查看被举报的点评
func (h *ModerationHandler) Flagged(c *gin.Context) {
	list, err := h.moderation.FlaggedReviews(c.Request.Context(), currentSession(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (h *ModerationHandler) Flags(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	flags, err := h.moderation.FlagsFor(c.Request.Context(), currentSession(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

func (h *ModerationHandler) Hide(c *gin.Context) {
	h.moderate(c, h.moderation.Hide)
}

func (h *ModerationHandler) Restore(c *gin.Context) {
	h.moderate(c, h.moderation.Restore)
}

func (h *ModerationHandler) ClearFlags(c *gin.Context) {
	h.moderate(c, h.moderation.ClearFlags)
}

func (h *ModerationHandler) moderate(c *gin.Context, action func(ctx context.Context, sess services.Session, reviewID uint) error) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := action(c.Request.Context(), currentSession(c), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

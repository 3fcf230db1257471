package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"platerate/internal/services"
)

type UserHandler struct {
	users    *services.UserService
	reviews  *services.ReviewService
	comments *services.CommentService
}

func NewUserHandler(users *services.UserService, reviews *services.ReviewService, comments *services.CommentService) *UserHandler {
	return &UserHandler{users: users, reviews: reviews, comments: comments}
}

// Profile - 用户主页 /api/users/:uid?tab=reviews|comments
// 已退出（opt-out）的用户不公开主页
func (h *UserHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	uid := c.Param("uid")

	user := h.users.Get(ctx, uid)
	if user == nil || user.OptedOut {
		RespondError(c, services.ErrNotFound)
		return
	}

	tab := c.DefaultQuery("tab", "reviews")
	resp := gin.H{"user": user.Public(), "tab": tab}

	if tab == "comments" {
		resp["comments"] = h.comments.ByUser(ctx, uid)
	} else {
		key, order := services.ParseSort(c.Query("sort"), c.Query("order"))
		reviews, err := h.reviews.List(ctx, currentSession(c), services.ReviewQuery{Author: uid, Sort: key, Order: order})
		if err != nil {
			RespondError(c, err)
			return
		}
		resp["tab"] = "reviews"
		resp["reviews"] = reviews
	}
	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"platerate/internal/services"
)

type CarHandler struct {
	watch   *services.WatchService
	reviews *services.ReviewService
}

func NewCarHandler(watch *services.WatchService, reviews *services.ReviewService) *CarHandler {
	return &CarHandler{watch: watch, reviews: reviews}
}

// Show 车辆详情：车辆信息、点评、评分分布
func (h *CarHandler) Show(c *gin.Context) {
	key, order := services.ParseSort(c.Query("sort"), c.Query("order"))
	report, err := h.reviews.CarReport(c.Request.Context(), currentSession(c), c.Param("plate"), key, order)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *CarHandler) Watchlist(c *gin.Context) {
	cars := h.watch.ListWatched(c.Request.Context(), currentSession(c).UID)
	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

// Watch 关注车牌，重复关注返回 already_watching
func (h *CarHandler) Watch(c *gin.Context) {
	res, err := h.watch.Watch(c.Request.Context(), currentSession(c), c.Param("plate"))
	if err != nil {
		RespondError(c, err)
		return
	}
	code := http.StatusCreated
	if res.AlreadyWatching {
		code = http.StatusOK
	}
	c.JSON(code, res)
}

func (h *CarHandler) Unwatch(c *gin.Context) {
	if err := h.watch.Unwatch(c.Request.Context(), currentSession(c), c.Param("plate")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

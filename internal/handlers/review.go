package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"platerate/internal/services"
)

type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// List supports ?plate=, ?author=, ?sort=created|title and ?order=asc|desc.
func (h *ReviewHandler) List(c *gin.Context) {
	key, order := services.ParseSort(c.Query("sort"), c.Query("order"))
	list, err := h.reviews.List(c.Request.Context(), currentSession(c), services.ReviewQuery{
		Plate:  c.Query("plate"),
		Author: c.Query("author"),
		Sort:   key,
		Order:  order,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (h *ReviewHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.reviews.Get(c.Request.Context(), currentSession(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type createReviewRequest struct {
	Plate       string   `json:"plate" binding:"required"`
	Rating      int      `json:"rating" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Labels      []string `json:"labels" binding:"max=10,dive,max=30"`
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	r, err := h.reviews.Create(c.Request.Context(), currentSession(c), services.ReviewInput{
		Plate:       req.Plate,
		Rating:      req.Rating,
		Title:       req.Title,
		Description: req.Description,
		Labels:      req.Labels,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// Mine returns the caller's given and received reviews.
func (h *ReviewHandler) Mine(c *gin.Context) {
	key, order := services.ParseSort(c.Query("sort"), c.Query("order"))
	p, err := h.reviews.MyReviews(c.Request.Context(), currentSession(c), key, order)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

package controllers

import (
	"log/slog"
	"net/http"

	"github.com/TuanDao2002/rmit-what-to-eat/middlewares"
	"github.com/TuanDao2002/rmit-what-to-eat/services"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	reviews *services.ReviewService
	logger  *slog.Logger
}

func NewReviewController(reviews *services.ReviewService, logger *slog.Logger) *ReviewController {
	return &ReviewController{reviews: reviews, logger: logger}
}

type reviewInput struct {
	FoodID  uint   `json:"food" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type reviewUpdateInput struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func (rc *ReviewController) CreateReview(c *gin.Context) {
	var input reviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, _ := middlewares.GetUser(c)
	review, err := rc.reviews.Create(c.Request.Context(), user.UserID, input.FoodID, input.Rating, input.Comment)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (rc *ReviewController) UpdateReview(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	var input reviewUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, _ := middlewares.GetUser(c)
	review, err := rc.reviews.Update(c.Request.Context(), user.UserID, id, input.Rating, input.Comment)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}

func (rc *ReviewController) DeleteReview(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	user, _ := middlewares.GetUser(c)
	if err := rc.reviews.Delete(c.Request.Context(), user.UserID, id); err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Review removed"})
}

func (rc *ReviewController) GetFoodReviews(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	reviews, err := rc.reviews.ListForFood(c.Request.Context(), id)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TuanDao2002/rmit-what-to-eat/middlewares"
	"github.com/TuanDao2002/rmit-what-to-eat/services"

	"github.com/gin-gonic/gin"
)

type FoodController struct {
	foods  *services.FoodService
	logger *slog.Logger
}

func NewFoodController(foods *services.FoodService, logger *slog.Logger) *FoodController {
	return &FoodController{foods: foods, logger: logger}
}

func (fc *FoodController) CreateFood(c *gin.Context) {
	var input services.FoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, _ := middlewares.GetUser(c)
	food, err := fc.foods.Create(c.Request.Context(), user.UserID, input)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"food": food})
}

func (fc *FoodController) GetAllFoods(c *gin.Context) {
	filter := services.FoodFilter{
		Category: c.Query("category"),
		MealType: c.Query("type"),
		Name:     c.Query("name"),
		Sort:     c.Query("sort"),
	}
	if vendor := c.Query("vendor"); vendor != "" {
		if id, err := strconv.ParseUint(vendor, 10, 32); err == nil {
			filter.VendorID = uint(id)
		}
	}
	foods, err := fc.foods.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"foods": foods, "count": len(foods)})
}

func (fc *FoodController) GetSingleFood(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	food, err := fc.foods.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"food": food})
}

func (fc *FoodController) UpdateFood(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	var input services.FoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, _ := middlewares.GetUser(c)
	food, err := fc.foods.Update(c.Request.Context(), user.UserID, id, input)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"food": food})
}

func (fc *FoodController) DeleteFood(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	user, _ := middlewares.GetUser(c)
	if err := fc.foods.Delete(c.Request.Context(), user.UserID, id); err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Food removed"})
}

func (fc *FoodController) LikeFood(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	user, _ := middlewares.GetUser(c)
	if err := fc.foods.Like(c.Request.Context(), user.UserID, id); err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Food liked"})
}

func (fc *FoodController) DislikeFood(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	user, _ := middlewares.GetUser(c)
	if err := fc.foods.Dislike(c.Request.Context(), user.UserID, id); err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Food disliked"})
}

func (fc *FoodController) GetRecommendations(c *gin.Context) {
	user, _ := middlewares.GetUser(c)
	foods, err := fc.foods.Recommend(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, fc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"foods": foods, "count": len(foods)})
}

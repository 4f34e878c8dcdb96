package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/middlewares"
	"github.com/TuanDao2002/rmit-what-to-eat/services"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/gin-gonic/gin"
)

// subscriptionTokenTTL bounds how long a socket handshake token stays valid.
const subscriptionTokenTTL = 5 * time.Minute

type OrderController struct {
	orders *services.OrderService
	cfg    *config.Config
	logger *slog.Logger
}

func NewOrderController(orders *services.OrderService, cfg *config.Config, logger *slog.Logger) *OrderController {
	return &OrderController{orders: orders, cfg: cfg, logger: logger}
}

type foodWindowInput struct {
	FoodID uint `json:"food" binding:"required"`
}

type orderFoodInput struct {
	FoodID   uint `json:"food" binding:"required"`
	Quantity int  `json:"quantity" binding:"required"`
}

func (oc *OrderController) OpenFoodOrder(c *gin.Context) {
	var input foodWindowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, _ := middlewares.GetUser(c)
	food, err := oc.orders.OpenOrderWindow(c.Request.Context(), user.UserID, input.FoodID)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"food": food})
}

func (oc *OrderController) CloseFoodOrder(c *gin.Context) {
	var input foodWindowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, _ := middlewares.GetUser(c)
	food, err := oc.orders.CloseOrderWindow(c.Request.Context(), user.UserID, input.FoodID)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"food": food})
}

func (oc *OrderController) OrderFood(c *gin.Context) {
	var input orderFoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, _ := middlewares.GetUser(c)
	order, err := oc.orders.Place(c.Request.Context(), user.UserID, input.FoodID, input.Quantity)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (oc *OrderController) GetOrders(c *gin.Context) {
	user, _ := middlewares.GetUser(c)
	orders, err := oc.orders.ListForUser(c.Request.Context(), user)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (oc *OrderController) FulfillOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	user, _ := middlewares.GetUser(c)
	order, err := oc.orders.Fulfill(c.Request.Context(), user.UserID, id)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (oc *OrderController) RemoveOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	user, _ := middlewares.GetUser(c)
	order, err := oc.orders.Remove(c.Request.Context(), user.UserID, id)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetSubscriptionToken hands out a short-lived token so non-browser clients
// can authenticate the socket handshake without cookies.
func (oc *OrderController) GetSubscriptionToken(c *gin.Context) {
	user, _ := middlewares.GetUser(c)
	token, err := utils.CreateAccessToken([]byte(oc.cfg.JWTSecret), user, subscriptionTokenTTL)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// MomoReturn is the payment provider's callback target.
func (oc *OrderController) MomoReturn(c *gin.Context) {
	if err := oc.orders.HandleMomoCallback(c.Request.Context(), c.Request.URL.Query()); err != nil {
		respondError(c, oc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Payment processed"})
}

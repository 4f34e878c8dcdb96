package routes

import (
	"log/slog"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/controllers"
	"github.com/TuanDao2002/rmit-what-to-eat/middlewares"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Redis  *redis.Client

	Auth    *services.AuthService
	Foods   *services.FoodService
	Reviews *services.ReviewService
	Orders  *services.OrderService
	Hub     *services.Hub
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middlewares.RateLimit(deps.Redis, deps.Logger, deps.Cfg.RateLimit, deps.Cfg.RateBurst))

	authController := controllers.NewAuthController(deps.Auth, deps.Cfg, deps.Logger)
	foodController := controllers.NewFoodController(deps.Foods, deps.Logger)
	reviewController := controllers.NewReviewController(deps.Reviews, deps.Logger)
	orderController := controllers.NewOrderController(deps.Orders, deps.Cfg, deps.Logger)
	realtimeController := controllers.NewRealtimeController(deps.Hub, deps.Cfg, deps.Logger)

	authenticate := middlewares.AuthenticateUser(deps.Auth, deps.Cfg)
	vendorOnly := middlewares.AuthorizePermissions(models.RoleVendor)
	studentOnly := middlewares.AuthorizePermissions(models.RoleStudent)
	anyRole := middlewares.AuthorizePermissions(models.RoleVendor, models.RoleStudent)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/verifyEmail", authController.VerifyEmail)
		auth.POST("/login", authController.Login)
		auth.POST("/verifyOTP", authController.VerifyOTP)
		auth.DELETE("/logout", authenticate, authController.Logout)
	}

	food := r.Group("/api/food")
	{
		food.GET("", authenticate, anyRole, foodController.GetAllFoods)
		food.GET("/:id", authenticate, anyRole, foodController.GetSingleFood)
		food.POST("", authenticate, vendorOnly, foodController.CreateFood)
		food.PATCH("/:id", authenticate, vendorOnly, foodController.UpdateFood)
		food.DELETE("/:id", authenticate, vendorOnly, foodController.DeleteFood)
		food.POST("/like/:id", authenticate, studentOnly, foodController.LikeFood)
		food.POST("/dislike/:id", authenticate, studentOnly, foodController.DislikeFood)
		food.GET("/recommend", authenticate, studentOnly, foodController.GetRecommendations)
	}

	review := r.Group("/api/review")
	{
		review.GET("/:id", authenticate, anyRole, reviewController.GetFoodReviews)
		review.POST("", authenticate, studentOnly, reviewController.CreateReview)
		review.PATCH("/:id", authenticate, studentOnly, reviewController.UpdateReview)
		review.DELETE("/:id", authenticate, studentOnly, reviewController.DeleteReview)
	}

	order := r.Group("/api/order")
	{
		order.POST("/openFoodOrder", authenticate, vendorOnly, orderController.OpenFoodOrder)
		order.POST("/closeFoodOrder", authenticate, vendorOnly, orderController.CloseFoodOrder)
		order.POST("/orderFood", authenticate, studentOnly, orderController.OrderFood)
		order.GET("/getOrders", authenticate, anyRole, orderController.GetOrders)
		order.PATCH("/fulfillOrder/:id", authenticate, vendorOnly, orderController.FulfillOrder)
		order.PATCH("/removeOrder/:id", authenticate, vendorOnly, orderController.RemoveOrder)
		order.GET("/getSubscriptionToken", authenticate, anyRole, orderController.GetSubscriptionToken)
		order.GET("/momoReturn", orderController.MomoReturn)
	}

	r.GET("/ws", realtimeController.Connect)

	return r
}

package controllers

import (
	"log/slog"
	"net/http"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/middlewares"
	"github.com/TuanDao2002/rmit-what-to-eat/services"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth   *services.AuthService
	cfg    *config.Config
	logger *slog.Logger
}

func NewAuthController(auth *services.AuthService, cfg *config.Config, logger *slog.Logger) *AuthController {
	return &AuthController{auth: auth, cfg: cfg, logger: logger}
}

type registerInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

type verifyEmailInput struct {
	VerificationToken string `json:"verificationToken" binding:"required"`
}

type loginInput struct {
	Username string `json:"username" binding:"required"`
}

type verifyOTPInput struct {
	Username string `json:"username" binding:"required"`
	OTP      string `json:"otp" binding:"required"`
	Hash     string `json:"hash" binding:"required"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if err := ac.auth.Register(c.Request.Context(), input.Username, input.Email, c.Request.UserAgent()); err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "Please check your email to verify your account!"})
}

func (ac *AuthController) VerifyEmail(c *gin.Context) {
	var input verifyEmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Cannot verify user"})
		return
	}
	user, err := ac.auth.VerifyEmail(c.Request.Context(), input.VerificationToken, utils.GetIP(c))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Account with username: " + user.Username + " is created!"})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	result, err := ac.auth.Login(c.Request.Context(), input.Username, utils.GetIP(c), c.Request.UserAgent())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	msg := "Check your email for OTP to login"
	if result.NewIP {
		msg = "Login from different IP. If this is your device, check your email for OTP to login"
	}
	c.JSON(http.StatusOK, gin.H{"hash": result.Challenge, "msg": msg})
}

func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var input verifyOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, refreshSecret, err := ac.auth.VerifyOTP(
		c.Request.Context(),
		input.Username, input.OTP, input.Hash,
		utils.GetIP(c), c.Request.UserAgent(),
	)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	tokenUser := utils.NewTokenUser(user)
	secure := ac.cfg.Env != "dev"
	err = utils.AttachCookies(c, []byte(ac.cfg.JWTSecret), tokenUser, refreshSecret,
		ac.cfg.AccessTokenTTL, ac.cfg.RefreshTokenTTL, secure)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": tokenUser})
}

func (ac *AuthController) Logout(c *gin.Context) {
	user, ok := middlewares.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Authentication Invalid"})
		return
	}
	if err := ac.auth.Logout(c.Request.Context(), user.UserID); err != nil {
		respondError(c, ac.logger, err)
		return
	}
	utils.ClearCookies(c, ac.cfg.Env != "dev")
	c.JSON(http.StatusOK, gin.H{"msg": "Logged out successfully!"})
}

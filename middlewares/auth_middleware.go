package middlewares

import (
	"net/http"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/services"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// AuthenticateUser admits requests carrying a valid access cookie. When the
// access token has expired it falls back to the refresh cookie, matches it
// against the persisted refresh record and re-attaches fresh cookies.
func AuthenticateUser(auth *services.AuthService, cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	secure := cfg.Env != "dev"
	return func(c *gin.Context) {
		if tokenString, err := c.Cookie(utils.AccessTokenCookie); err == nil {
			if user, err := utils.ParseAccessToken(secret, tokenString); err == nil {
				c.Set(userContextKey, *user)
				c.Next()
				return
			}
		}

		refreshString, err := c.Cookie(utils.RefreshTokenCookie)
		if err != nil {
			abortUnauthenticated(c)
			return
		}
		user, refreshSecret, err := utils.ParseRefreshToken(secret, refreshString)
		if err != nil {
			abortUnauthenticated(c)
			return
		}
		if err := auth.ValidateRefresh(c.Request.Context(), user.UserID, refreshSecret); err != nil {
			abortUnauthenticated(c)
			return
		}
		if err := utils.AttachCookies(c, secret, *user, refreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, secure); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "Something went wrong, please try again later"})
			return
		}
		c.Set(userContextKey, *user)
		c.Next()
	}
}

// AuthorizePermissions restricts a route to a closed set of roles.
func AuthorizePermissions(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "Unauthorized to access this route"})
	}
}

// GetUser returns the authenticated user stored by AuthenticateUser.
func GetUser(c *gin.Context) (utils.TokenUser, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return utils.TokenUser{}, false
	}
	user, ok := value.(utils.TokenUser)
	return user, ok
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Authentication Invalid"})
}

package middlewares

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/services"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type noopMailer struct{}

func (noopMailer) Send(context.Context, string, string, string) error { return nil }

type authFixture struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	secret []byte
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Token{}))

	cfg := &config.Config{
		Env:             "dev",
		JWTSecret:       "test-jwt-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := services.NewAuthService(db, noopMailer{}, cfg, logger)

	router := gin.New()
	authed := router.Group("/", AuthenticateUser(auth, cfg))
	authed.GET("/me", func(c *gin.Context) {
		user, _ := GetUser(c)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	authed.GET("/vendor-only", AuthorizePermissions(models.RoleVendor), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return &authFixture{router: router, db: db, cfg: cfg, secret: []byte(cfg.JWTSecret)}
}

func (f *authFixture) seedUserWithRefresh(t *testing.T, role models.Role) (utils.TokenUser, string) {
	t.Helper()
	user := &models.User{Username: "ann", UsernameLower: "ann", Email: "ann@x.edu", Role: role}
	require.NoError(t, f.db.Create(user).Error)
	token := &models.Token{UserID: user.ID, RefreshToken: "refresh-secret", IP: "1.1.1.1", UserAgent: "ua"}
	require.NoError(t, f.db.Create(token).Error)
	return utils.NewTokenUser(user), token.RefreshToken
}

func (f *authFixture) request(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_NoCookies(t *testing.T) {
	f := newAuthFixture(t)

	w := f.request(t, "/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"msg":"Authentication Invalid"}`, w.Body.String())
}

func TestAuthenticate_ValidAccessCookie(t *testing.T) {
	f := newAuthFixture(t)
	user, _ := f.seedUserWithRefresh(t, models.RoleVendor)

	access, err := utils.CreateAccessToken(f.secret, user, time.Minute)
	require.NoError(t, err)

	w := f.request(t, "/me", &http.Cookie{Name: utils.AccessTokenCookie, Value: access})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"ann"}`, w.Body.String())
}

func TestAuthenticate_RefreshFallbackReissuesCookies(t *testing.T) {
	f := newAuthFixture(t)
	user, refreshSecret := f.seedUserWithRefresh(t, models.RoleVendor)

	expiredAccess, err := utils.CreateAccessToken(f.secret, user, -time.Minute)
	require.NoError(t, err)
	refresh, err := utils.CreateRefreshToken(f.secret, user, refreshSecret, time.Hour)
	require.NoError(t, err)

	w := f.request(t, "/me",
		&http.Cookie{Name: utils.AccessTokenCookie, Value: expiredAccess},
		&http.Cookie{Name: utils.RefreshTokenCookie, Value: refresh},
	)
	assert.Equal(t, http.StatusOK, w.Code)

	names := make(map[string]bool)
	for _, cookie := range w.Result().Cookies() {
		names[cookie.Name] = true
	}
	assert.True(t, names[utils.AccessTokenCookie], "expected a fresh access cookie")
	assert.True(t, names[utils.RefreshTokenCookie], "expected a fresh refresh cookie")
}

func TestAuthenticate_RevokedRefreshRejected(t *testing.T) {
	f := newAuthFixture(t)
	user, refreshSecret := f.seedUserWithRefresh(t, models.RoleVendor)

	refresh, err := utils.CreateRefreshToken(f.secret, user, refreshSecret, time.Hour)
	require.NoError(t, err)

	// logout removes the persisted refresh record
	require.NoError(t, f.db.Where("user_id = ?", user.UserID).Delete(&models.Token{}).Error)

	w := f.request(t, "/me", &http.Cookie{Name: utils.RefreshTokenCookie, Value: refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_MismatchedRefreshSecretRejected(t *testing.T) {
	f := newAuthFixture(t)
	user, _ := f.seedUserWithRefresh(t, models.RoleVendor)

	refresh, err := utils.CreateRefreshToken(f.secret, user, "some-other-secret", time.Hour)
	require.NoError(t, err)

	w := f.request(t, "/me", &http.Cookie{Name: utils.RefreshTokenCookie, Value: refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizePermissions(t *testing.T) {
	f := newAuthFixture(t)
	user, _ := f.seedUserWithRefresh(t, models.RoleStudent)

	access, err := utils.CreateAccessToken(f.secret, user, time.Minute)
	require.NoError(t, err)

	w := f.request(t, "/vendor-only", &http.Cookie{Name: utils.AccessTokenCookie, Value: access})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"msg":"Unauthorized to access this route"}`, w.Body.String())

	vendor := user
	vendor.Role = models.RoleVendor
	access, err = utils.CreateAccessToken(f.secret, vendor, time.Minute)
	require.NoError(t, err)

	w = f.request(t, "/vendor-only", &http.Cookie{Name: utils.AccessTokenCookie, Value: access})
	assert.Equal(t, http.StatusOK, w.Code)
}

package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
	"github.com/TuanDao2002/rmit-what-to-eat/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// TokenUser is the minimal user descriptor carried inside tokens and
// returned to clients. Raw tokens never appear in response bodies.
type TokenUser struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	UserID   uint        `json:"userId"`
	Role     models.Role `json:"role"`
}

func NewTokenUser(u *models.User) TokenUser {
	return TokenUser{
		Username: u.Username,
		Email:    u.Email,
		UserID:   u.ID,
		Role:     u.Role,
	}
}

type accessClaims struct {
	User TokenUser `json:"user"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	User         TokenUser `json:"user"`
	RefreshToken string    `json:"refreshToken"`
	jwt.RegisteredClaims
}

// VerificationClaims is the payload of the pre-registration email token.
// Expiry is carried as an explicit millisecond timestamp and checked against
// the wall clock by the caller.
type VerificationClaims struct {
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	ExpirationDate int64       `json:"expirationDate"`
	jwt.RegisteredClaims
}

func CreateAccessToken(secret []byte, user TokenUser, ttl time.Duration) (string, error) {
	claims := accessClaims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func CreateRefreshToken(secret []byte, user TokenUser, refreshSecret string, ttl time.Duration) (string, error) {
	claims := refreshClaims{
		User:         user,
		RefreshToken: refreshSecret,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func CreateVerificationToken(secret []byte, username, email string, role models.Role, expiresAt time.Time) (string, error) {
	claims := VerificationClaims{
		Username:       username,
		Email:          email,
		Role:           role,
		ExpirationDate: expiresAt.UnixMilli(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseAccessToken(secret []byte, tokenString string) (*TokenUser, error) {
	claims := &accessClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	return &claims.User, nil
}

// ParseRefreshToken returns the embedded user and the persisted refresh
// secret the cookie claims to hold.
func ParseRefreshToken(secret []byte, tokenString string) (*TokenUser, string, error) {
	claims := &refreshClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, "", err
	}
	return &claims.User, claims.RefreshToken, nil
}

func ParseVerificationToken(secret []byte, tokenString string) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Username == "" || claims.Email == "" || claims.Role == "" || claims.ExpirationDate == 0 {
		return nil, errs.Unauthenticated("Verification Failed")
	}
	return claims, nil
}

func parseHS256(secret []byte, tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return errs.Unauthenticated("Invalid or expired token")
	}
	return nil
}

// AttachCookies sets both auth cookies on the response. Cookies are
// http-only; Secure is dropped only for local dev over plain http.
func AttachCookies(c *gin.Context, secret []byte, user TokenUser, refreshSecret string, accessTTL, refreshTTL time.Duration, secure bool) error {
	accessToken, err := CreateAccessToken(secret, user, accessTTL)
	if err != nil {
		return err
	}
	refreshToken, err := CreateRefreshToken(secret, user, refreshSecret, refreshTTL)
	if err != nil {
		return err
	}
	c.SetSameSite(httpSameSite(secure))
	c.SetCookie(AccessTokenCookie, accessToken, int(accessTTL.Seconds()), "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, refreshToken, int(refreshTTL.Seconds()), "/", "", secure, true)
	return nil
}

// ClearCookies overwrites both auth cookies with an already-expired sentinel.
func ClearCookies(c *gin.Context, secure bool) {
	c.SetSameSite(httpSameSite(secure))
	c.SetCookie(AccessTokenCookie, "logout", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "logout", -1, "/", "", secure, true)
}

func httpSameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

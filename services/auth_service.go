package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/errs"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"gorm.io/gorm"
)

const (
	verificationTTL = 2 * time.Minute
	otpTTL          = 90 * time.Second
)

// AuthService implements the passwordless flow: pre-registration email
// verification, OTP challenge login and refresh-token persistence.
type AuthService struct {
	db     *gorm.DB
	mailer utils.Mailer
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, mailer utils.Mailer, cfg *config.Config, logger *slog.Logger) *AuthService {
	return &AuthService{db: db, mailer: mailer, cfg: cfg, logger: logger, now: time.Now}
}

// Register validates the requested identity and emails a signed verification
// token. No user record is created until the email is verified.
func (s *AuthService) Register(ctx context.Context, username, email, browser string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < 3 || len(username) > 20 {
		return errs.BadRequest("The username must have from 3 to 20 characters")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username_lower = ?", strings.ToLower(username)).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errs.BadRequest("This username already exists")
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errs.BadRequest("This email already exists")
	}

	role := s.roleFor(email)
	expiresAt := s.now().Add(verificationTTL)
	token, err := utils.CreateVerificationToken([]byte(s.cfg.VerificationSecret), username, email, role, expiresAt)
	if err != nil {
		return err
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.ClientURL, token)
	body := fmt.Sprintf(
		"Hello %s,\n\nA registration was requested from %s.\nOpen the link below within 2 minutes to verify your email:\n\n%s\n",
		username, browserOrUnknown(browser), verifyURL,
	)
	// account creation depends on this delivery, so a failure is surfaced
	if err := s.mailer.Send(ctx, email, "Verify your email", body); err != nil {
		return err
	}
	return nil
}

// roleFor derives the immutable account role from the email address:
// institutional student addresses become students, everything else a vendor.
func (s *AuthService) roleFor(email string) models.Role {
	if strings.HasSuffix(strings.ToLower(email), strings.ToLower(s.cfg.StudentEmailSuffix)) {
		return models.RoleStudent
	}
	return models.RoleVendor
}

// VerifyEmail redeems a verification token and creates the user with the
// requesting IP as its first trusted IP.
func (s *AuthService) VerifyEmail(ctx context.Context, token, ip string) (*models.User, error) {
	if token == "" {
		return nil, errs.Unauthenticated("Cannot verify user")
	}
	claims, err := utils.ParseVerificationToken([]byte(s.cfg.VerificationSecret), token)
	if err != nil {
		return nil, errs.Unauthenticated("Verification Failed")
	}
	if s.now().UnixMilli() >= claims.ExpirationDate {
		return nil, errs.Unauthenticated("Verification token is expired after 2 minutes")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", claims.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errs.Unauthenticated("Email is already verified")
	}

	user := &models.User{
		Username:      claims.Username,
		UsernameLower: strings.ToLower(claims.Username),
		Email:         claims.Email,
		Role:          claims.Role,
		IPAddresses:   ip,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// a concurrent registration may win the race; the unique index is
		// the arbiter
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.BadRequest("This username already exists")
		}
		return nil, err
	}
	return user, nil
}

type LoginResult struct {
	Challenge string
	NewIP     bool
}

// Login issues an OTP challenge for an existing account. The OTP itself only
// travels by email; the caller receives the signed challenge. When the
// request comes from an unknown IP the email is sent before responding so
// the owner is alerted; from a trusted IP it is sent best-effort afterwards.
func (s *AuthService) Login(ctx context.Context, username, ip, browser string) (*LoginResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.BadRequest("This account does not exist")
		}
		return nil, err
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(otpTTL)
	challenge := utils.MakeOTPChallenge(s.cfg.HashSecret, username, otp, expiresAt)

	subject := "Your login OTP"
	body := fmt.Sprintf("Your OTP is: %s\n\nIt expires after 90 seconds.", otp)

	if !user.HasIP(ip) {
		body = fmt.Sprintf(
			"A login was attempted from a new device (%s, IP %s).\n\n%s",
			browserOrUnknown(browser), ip, body,
		)
		if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
			return nil, err
		}
		return &LoginResult{Challenge: challenge, NewIP: true}, nil
	}

	go func() {
		if err := s.mailer.Send(context.Background(), user.Email, subject, body); err != nil {
			s.logger.Warn("otp email failed", slog.String("username", username), slog.String("error", err.Error()))
		}
	}()
	return &LoginResult{Challenge: challenge, NewIP: false}, nil
}

// VerifyOTP validates the challenge and hands the session over: the
// requesting IP joins the trusted set and the persisted refresh secret is
// returned (reused when present, minted otherwise).
func (s *AuthService) VerifyOTP(ctx context.Context, username, otp, challenge, ip, userAgent string) (*models.User, string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", errs.BadRequest("This account does not exist")
		}
		return nil, "", err
	}

	if err := utils.VerifyOTPChallenge(s.cfg.HashSecret, username, otp, challenge, s.now()); err != nil {
		return nil, "", err
	}

	if !user.HasIP(ip) {
		user.AddIP(ip)
		if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, "", err
		}
	}

	var token models.Token
	err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&token).Error
	if err == nil {
		return &user, token.RefreshToken, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	secret, err := utils.GenerateRefreshSecret()
	if err != nil {
		return nil, "", err
	}
	record := models.Token{RefreshToken: secret, IP: ip, UserAgent: userAgent, UserID: user.ID}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, "", err
	}
	return &user, secret, nil
}

// Logout deletes the persisted refresh record; client-held refresh tokens
// become unusable immediately. A still-valid access token keeps working
// until it expires, which is an accepted short exposure window.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Token{}).Error
}

// ValidateRefresh checks a refresh secret against the persisted record.
func (s *AuthService) ValidateRefresh(ctx context.Context, userID uint, secret string) error {
	var token models.Token
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND refresh_token = ?", userID, secret).
		First(&token).Error
	if err != nil {
		return errs.Unauthenticated("Invalid or expired token")
	}
	return nil
}

func browserOrUnknown(browser string) string {
	if browser == "" {
		return "an unknown browser"
	}
	return browser
}

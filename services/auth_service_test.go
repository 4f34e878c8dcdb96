package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, mailer *fakeMailer) (*AuthService, *fakeMailer) {
	t.Helper()
	if mailer == nil {
		mailer = &fakeMailer{}
	}
	svc := NewAuthService(newTestDB(t), mailer, testConfig(), testLogger())
	return svc, mailer
}

// extractToken pulls the value of a query parameter out of an email body.
func extractParam(t *testing.T, body, param string) string {
	t.Helper()
	idx := strings.Index(body, param+"=")
	require.NotEqual(t, -1, idx, "no %s in email body:\n%s", param, body)
	value := body[idx+len(param)+1:]
	if end := strings.IndexAny(value, " \n"); end != -1 {
		value = value[:end]
	}
	return value
}

// extractOTP pulls the 6-digit passcode out of the OTP email body.
func extractOTP(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "Your OTP is: ")
	require.NotEqual(t, -1, idx, "no OTP in email body:\n%s", body)
	return body[idx+len("Your OTP is: ") : idx+len("Your OTP is: ")+6]
}

func TestRegister_UsernameLength(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	err := svc.Register(context.Background(), "ab", "ab@x.edu", "")
	require.Error(t, err)
	assert.Equal(t, "The username must have from 3 to 20 characters", err.Error())

	err = svc.Register(context.Background(), strings.Repeat("a", 21), "long@x.edu", "")
	require.Error(t, err)
	assert.Equal(t, "The username must have from 3 to 20 characters", err.Error())
}

func TestRegister_CaseInsensitiveDuplicateUsername(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "1.1.1.1")

	err := svc.Register(context.Background(), "ANN", "other@x.edu", "")
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, e.Status)
	assert.Equal(t, "This username already exists", e.Message)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "1.1.1.1")

	err := svc.Register(context.Background(), "bob", "ann@x.edu", "")
	require.Error(t, err)
	assert.Equal(t, "This email already exists", err.Error())
}

func TestRegister_MailFailureSurfaces(t *testing.T) {
	svc, _ := newAuthService(t, &fakeMailer{err: errors.New("ses down")})

	err := svc.Register(context.Background(), "ann", "ann@x.edu", "")
	require.Error(t, err)
}

func TestRegisterVerifyEmail_CreatesUserWithRequestIP(t *testing.T) {
	svc, mailer := newAuthService(t, nil)

	require.NoError(t, svc.Register(context.Background(), "ann", "ann@x.edu", "Firefox"))
	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "ann@x.edu", mailer.last().To)

	token := extractParam(t, mailer.last().Body, "token")
	user, err := svc.VerifyEmail(context.Background(), token, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)
	assert.Equal(t, models.RoleVendor, user.Role)
	assert.Equal(t, []string{"1.2.3.4"}, user.TrustedIPs())

	var count int64
	require.NoError(t, svc.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// the username is now taken, regardless of case
	err = svc.Register(context.Background(), "ANN", "ann2@x.edu", "")
	require.Error(t, err)
	assert.Equal(t, "This username already exists", err.Error())
}

func TestRegister_StudentEmailGetsStudentRole(t *testing.T) {
	svc, mailer := newAuthService(t, nil)

	require.NoError(t, svc.Register(context.Background(), "sam", "s381@student.rmit.edu.vn", ""))
	token := extractParam(t, mailer.last().Body, "token")
	user, err := svc.VerifyEmail(context.Background(), token, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
}

func TestVerifyEmail_ExpiredToken(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	// valid signature, but past its embedded expiry
	token, err := utils.CreateVerificationToken(
		[]byte(svc.cfg.VerificationSecret), "ann", "ann@x.edu", models.RoleVendor,
		time.Now().Add(-time.Second),
	)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), token, "1.2.3.4")
	require.Error(t, err)
	assert.Equal(t, "Verification token is expired after 2 minutes", err.Error())
	assert.Equal(t, 401, errs.StatusOf(err))
}

func TestVerifyEmail_BadSignature(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	token, err := utils.CreateVerificationToken(
		[]byte("wrong-secret"), "ann", "ann@x.edu", models.RoleVendor,
		time.Now().Add(time.Minute),
	)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), token, "1.2.3.4")
	require.Error(t, err)
	assert.Equal(t, "Verification Failed", err.Error())
}

func TestVerifyEmail_EmailAlreadyVerified(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "1.1.1.1")

	token, err := utils.CreateVerificationToken(
		[]byte(svc.cfg.VerificationSecret), "ann2", "ann@x.edu", models.RoleVendor,
		time.Now().Add(time.Minute),
	)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), token, "1.2.3.4")
	require.Error(t, err)
	assert.Equal(t, "Email is already verified", err.Error())
}

func TestLogin_UnknownAccount(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	_, err := svc.Login(context.Background(), "ghost", "1.1.1.1", "")
	require.Error(t, err)
	assert.Equal(t, "This account does not exist", err.Error())
	assert.Equal(t, 400, errs.StatusOf(err))
}

func TestLogin_NewIPEmailsBeforeResponding(t *testing.T) {
	svc, mailer := newAuthService(t, nil)
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "9.9.9.9")

	result, err := svc.Login(context.Background(), "ann", "1.1.1.1", "Firefox")
	require.NoError(t, err)
	assert.True(t, result.NewIP)
	assert.NotEmpty(t, result.Challenge)
	// synchronous: the alert email is out before Login returns
	require.Equal(t, 1, mailer.count())
	assert.Contains(t, mailer.last().Body, "new device")
	assert.Contains(t, mailer.last().Body, "1.1.1.1")
}

func TestLogin_NewIPMailFailureSurfaces(t *testing.T) {
	svc, _ := newAuthService(t, &fakeMailer{err: errors.New("ses down")})
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "9.9.9.9")

	_, err := svc.Login(context.Background(), "ann", "1.1.1.1", "")
	require.Error(t, err)
}

func TestLogin_TrustedIPDoesNotBlockOnEmail(t *testing.T) {
	// a failing mailer must not fail a trusted-IP login: the send is
	// best-effort after responding
	svc, _ := newAuthService(t, &fakeMailer{err: errors.New("ses down")})
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "9.9.9.9")

	result, err := svc.Login(context.Background(), "ann", "9.9.9.9", "")
	require.NoError(t, err)
	assert.False(t, result.NewIP)
	assert.NotEmpty(t, result.Challenge)
}

func TestVerifyOTP_Expired(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "9.9.9.9")

	// correct OTP, expired challenge
	challenge := utils.MakeOTPChallenge(svc.cfg.HashSecret, "ann", "123456", time.Now().Add(-time.Second))
	_, _, err := svc.VerifyOTP(context.Background(), "ann", "123456", challenge, "9.9.9.9", "ua")
	require.Error(t, err)
	assert.Equal(t, "OTP is expired after 90 seconds", err.Error())
	assert.Equal(t, 401, errs.StatusOf(err))
}

func TestVerifyOTP_WrongOTP(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "9.9.9.9")

	challenge := utils.MakeOTPChallenge(svc.cfg.HashSecret, "ann", "123456", time.Now().Add(time.Minute))
	_, _, err := svc.VerifyOTP(context.Background(), "ann", "654321", challenge, "9.9.9.9", "ua")
	require.Error(t, err)
	assert.Equal(t, "Login Failed", err.Error())
}

func TestVerifyOTP_AddsNewIPAndReusesRefreshSecret(t *testing.T) {
	svc, mailer := newAuthService(t, nil)
	seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "9.9.9.9")

	// first login from a new IP
	result, err := svc.Login(context.Background(), "ann", "1.1.1.1", "")
	require.NoError(t, err)
	otp := extractOTP(t, mailer.last().Body)

	user, secret1, err := svc.VerifyOTP(context.Background(), "ann", otp, result.Challenge, "1.1.1.1", "ua")
	require.NoError(t, err)
	assert.NotEmpty(t, secret1)
	assert.Equal(t, []string{"9.9.9.9", "1.1.1.1"}, user.TrustedIPs())

	// second login from the now-trusted IP reuses the persisted secret
	result, err = svc.Login(context.Background(), "ann", "1.1.1.1", "")
	require.NoError(t, err)
	assert.False(t, result.NewIP)

	require.Eventually(t, func() bool { return mailer.count() >= 2 }, time.Second, 10*time.Millisecond)
	otp = extractOTP(t, mailer.last().Body)

	_, secret2, err := svc.VerifyOTP(context.Background(), "ann", otp, result.Challenge, "1.1.1.1", "ua")
	require.NoError(t, err)
	assert.Equal(t, secret1, secret2)

	var count int64
	require.NoError(t, svc.db.Model(&models.Token{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLogout_InvalidatesRefresh(t *testing.T) {
	svc, mailer := newAuthService(t, nil)
	user := seedUser(t, svc.db, "ann", "ann@x.edu", models.RoleVendor, "1.1.1.1")

	result, err := svc.Login(context.Background(), "ann", "2.2.2.2", "")
	require.NoError(t, err)
	otp := extractOTP(t, mailer.last().Body)
	_, secret, err := svc.VerifyOTP(context.Background(), "ann", otp, result.Challenge, "2.2.2.2", "ua")
	require.NoError(t, err)

	require.NoError(t, svc.ValidateRefresh(context.Background(), user.ID, secret))
	require.NoError(t, svc.Logout(context.Background(), user.ID))

	err = svc.ValidateRefresh(context.Background(), user.ID, secret)
	require.Error(t, err)
	assert.Equal(t, 401, errs.StatusOf(err))
}

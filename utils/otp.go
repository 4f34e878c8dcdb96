package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
)

// GenerateOTP returns a 6-digit one-time passcode.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateRefreshSecret returns a 40-byte hex-encoded secret.
func GenerateRefreshSecret() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func signOTP(secret, username, otp string, expiresAt int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s.%d", username, otp, expiresAt)
	return hex.EncodeToString(mac.Sum(nil))
}

// MakeOTPChallenge builds the stateless challenge handed to the client:
// hex(HMAC-SHA256(secret, username.otp.expiresMillis)) + "." + expiresMillis.
func MakeOTPChallenge(secret, username, otp string, expiresAt time.Time) string {
	millis := expiresAt.UnixMilli()
	return signOTP(secret, username, otp, millis) + "." + strconv.FormatInt(millis, 10)
}

// VerifyOTPChallenge checks expiry before recomputing the signature, so an
// expired challenge always fails even when the OTP is correct.
func VerifyOTPChallenge(secret, username, otp, challenge string, now time.Time) error {
	parts := strings.Split(challenge, ".")
	if len(parts) != 2 {
		return errs.Unauthenticated("Login Failed")
	}
	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return errs.Unauthenticated("Login Failed")
	}
	if now.UnixMilli() > expiresAt {
		return errs.Unauthenticated("OTP is expired after 90 seconds")
	}
	expected := signOTP(secret, username, otp, expiresAt)
	if !hmac.Equal([]byte(expected), []byte(parts[0])) {
		return errs.Unauthenticated("Login Failed")
	}
	return nil
}

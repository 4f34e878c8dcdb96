package services

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Token{},
		&models.Food{},
		&models.Review{},
		&models.Order{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                "dev",
		JWTSecret:          "test-jwt-secret",
		VerificationSecret: "test-verification-secret",
		HashSecret:         "test-hash-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		ClientURL:          "http://localhost:3000",
		StudentEmailSuffix: "@student.rmit.edu.vn",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

type fakeConn struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if ev, ok := v.(Event); ok {
		c.events = append(c.events, ev)
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) lastEvent() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return Event{}, false
	}
	return c.events[len(c.events)-1], true
}

func (c *fakeConn) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakePayment struct {
	mu        sync.Mutex
	payURL    string
	createErr error
	verifyErr error
	created   int
}

func (p *fakePayment) CreatePayment(_ context.Context, orderID, requestID string, amount int64, orderInfo string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	if p.createErr != nil {
		return "", p.createErr
	}
	return p.payURL, nil
}

func (p *fakePayment) VerifyCallback(_ url.Values) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyErr
}

func seedUser(t *testing.T, db *gorm.DB, username, email string, role models.Role, ip string) *models.User {
	t.Helper()
	user := &models.User{
		Username:      username,
		UsernameLower: strings.ToLower(username),
		Email:         email,
		Role:          role,
		IPAddresses:   ip,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedFood(t *testing.T, db *gorm.DB, vendorID uint, name string, quantity int, accepting bool) *models.Food {
	t.Helper()
	food := &models.Food{
		FoodName:        name,
		VendorID:        vendorID,
		Location:        "Building 2",
		Price:           30000,
		Category:        models.CategoryNoodle,
		MealType:        models.MealLunch,
		Taste:           models.TasteSalty,
		PrepareTime:     10,
		Quantity:        quantity,
		AcceptingOrders: accepting,
		Image:           "image",
	}
	if err := db.Create(food).Error; err != nil {
		t.Fatalf("seed food %s: %v", name, err)
	}
	return food
}

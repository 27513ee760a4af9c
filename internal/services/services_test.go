package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wisemarket1122/wisemarket/internal/auth"
	"github.com/wisemarket1122/wisemarket/internal/config"
	"github.com/wisemarket1122/wisemarket/internal/models"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive for the whole test.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.MarketItem{},
		&models.MarketItemImage{},
		&models.Board{},
		&models.BoardPost{},
		&models.Comment{},
		&models.ChatRoom{},
		&models.ChatMessage{},
	))
	return gdb
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:              "http://localhost:3000",
		CampusEmailDomain:    "@dongguk.ac.kr",
		SessionTTL:           24 * time.Hour,
		RememberTTL:          7 * 24 * time.Hour,
		UnverifiedAccountTTL: 48 * time.Hour,
	}
}

// recordingSender captures outgoing mail for assertions. When failWith is
// set every Send fails with it.
type recordingSender struct {
	sent     []sentMail
	failWith error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

var errSMTPDown = errors.New("smtp relay unreachable")

func seedUser(t *testing.T, gdb *gorm.DB, emailAddr, nickname, password string, verified bool) *models.User {
	t.Helper()

	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Email:        emailAddr,
		PasswordHash: hashed,
		Nickname:     nickname,
		IsVerified:   verified,
	}
	if !verified {
		token, err := auth.NewVerifyToken()
		require.NoError(t, err)
		user.VerifyToken = &token
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

func seedItem(t *testing.T, gdb *gorm.DB, sellerID uint, title string) *models.MarketItem {
	t.Helper()

	item := &models.MarketItem{
		SellerID:    sellerID,
		Title:       title,
		Description: "description of " + title,
		Price:       10000,
		Status:      models.StatusOnSale,
	}
	require.NoError(t, gdb.Create(item).Error)
	return item
}

func seedBoard(t *testing.T, gdb *gorm.DB, name string) *models.Board {
	t.Helper()

	board := &models.Board{Name: name}
	require.NoError(t, gdb.Create(board).Error)
	return board
}

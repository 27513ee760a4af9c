package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/models"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/session"
)

// --- Mock Services ---

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, emailAddr, password, passwordConfirm, nickname string) (*services.SignupResult, error) {
	args := m.Called(ctx, emailAddr, password, passwordConfirm, nickname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SignupResult), args.Error(1)
}

func (m *MockUserService) VerifyEmail(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockUserService) Authenticate(ctx context.Context, emailAddr, password string) (*models.User, error) {
	args := m.Called(ctx, emailAddr, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID uint) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) EmailExists(ctx context.Context, emailAddr string) (bool, error) {
	args := m.Called(ctx, emailAddr)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID uint, update services.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) DeleteAccount(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) PurgeUnverified(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Create(ctx context.Context, sellerID uint, title, description string, price int64, category string, imagePaths []string) (*models.MarketItem, error) {
	args := m.Called(ctx, sellerID, title, description, price, category, imagePaths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketItem), args.Error(1)
}

func (m *MockListingService) Search(ctx context.Context, query, category string, page int) (*services.ItemPage, error) {
	args := m.Called(ctx, query, category, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ItemPage), args.Error(1)
}

func (m *MockListingService) FindByID(ctx context.Context, itemID uint) (*services.ItemDetail, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ItemDetail), args.Error(1)
}

func (m *MockListingService) UpdateStatus(ctx context.Context, itemID, userID uint, status models.ItemStatus) error {
	args := m.Called(ctx, itemID, userID, status)
	return args.Error(0)
}

func (m *MockListingService) Delete(ctx context.Context, itemID, userID uint) error {
	args := m.Called(ctx, itemID, userID)
	return args.Error(0)
}

func (m *MockListingService) Latest(ctx context.Context, limit int) ([]services.ItemSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.ItemSummary), args.Error(1)
}

func (m *MockListingService) ListBySeller(ctx context.Context, sellerID uint) ([]models.MarketItem, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MarketItem), args.Error(1)
}

type MockBoardService struct {
	mock.Mock
}

func (m *MockBoardService) ListBoards(ctx context.Context) ([]models.Board, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Board), args.Error(1)
}

func (m *MockBoardService) FindBoard(ctx context.Context, boardID uint) (*models.Board, error) {
	args := m.Called(ctx, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Board), args.Error(1)
}

func (m *MockBoardService) ListPosts(ctx context.Context, boardID uint, query string, page int) (*services.PostPage, error) {
	args := m.Called(ctx, boardID, query, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PostPage), args.Error(1)
}

func (m *MockBoardService) CreatePost(ctx context.Context, boardID, authorID uint, title, content string, imagePath *string) (*models.BoardPost, error) {
	args := m.Called(ctx, boardID, authorID, title, content, imagePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BoardPost), args.Error(1)
}

func (m *MockBoardService) FindPost(ctx context.Context, boardID, postID uint) (*services.PostDetail, error) {
	args := m.Called(ctx, boardID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PostDetail), args.Error(1)
}

func (m *MockBoardService) UpdatePost(ctx context.Context, boardID, postID, authorID uint, title, content string, imagePath *string) error {
	args := m.Called(ctx, boardID, postID, authorID, title, content, imagePath)
	return args.Error(0)
}

func (m *MockBoardService) DeletePost(ctx context.Context, boardID, postID, authorID uint) error {
	args := m.Called(ctx, boardID, postID, authorID)
	return args.Error(0)
}

func (m *MockBoardService) AddComment(ctx context.Context, postID, authorID uint, content string) (*models.Comment, error) {
	args := m.Called(ctx, postID, authorID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockBoardService) DeleteComment(ctx context.Context, commentID, postID, authorID uint) error {
	args := m.Called(ctx, commentID, postID, authorID)
	return args.Error(0)
}

func (m *MockBoardService) ListPostsByAuthor(ctx context.Context, authorID uint) ([]services.AuthoredPost, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.AuthoredPost), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) ListRooms(ctx context.Context, userID uint) ([]services.RoomSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.RoomSummary), args.Error(1)
}

func (m *MockChatService) OpenRoom(ctx context.Context, itemID, buyerID uint) (*models.ChatRoom, error) {
	args := m.Called(ctx, itemID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockChatService) GetRoom(ctx context.Context, roomID, viewerID uint) (*services.RoomDetail, error) {
	args := m.Called(ctx, roomID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RoomDetail), args.Error(1)
}

func (m *MockChatService) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatService) History(ctx context.Context, roomID uint) ([]services.MessageView, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.MessageView), args.Error(1)
}

func (m *MockChatService) SaveMessage(ctx context.Context, roomID, senderID uint, content string) (*models.ChatMessage, error) {
	args := m.Called(ctx, roomID, senderID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, user session.User, ttl time.Duration) (string, error) {
	args := m.Called(ctx, user, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*session.User, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.User), args.Error(1)
}

func (m *MockSessionStore) Update(ctx context.Context, sessionID string, user session.User) error {
	args := m.Called(ctx, sessionID, user)
	return args.Error(0)
}

func (m *MockSessionStore) Destroy(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionStore) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, ttl)
	return args.Error(0)
}

// --- Test doubles for rendering and uploads ---

// stubRenderer records which template was rendered with what data and
// answers with a blank page.
type stubRenderer struct {
	code     int
	template string
	data     gin.H
}

func (r *stubRenderer) HTML(c *gin.Context, code int, name string, data gin.H) {
	r.code = code
	r.template = name
	r.data = data
	c.Status(code)
}

type stubImageStore struct {
	paths []string
}

func (s *stubImageStore) Save(c *gin.Context, file *multipart.FileHeader, subdir string) (string, error) {
	path := "/uploads/" + subdir + "/" + file.Filename
	s.paths = append(s.paths, path)
	return path, nil
}

// withUser fakes a logged-in session for a request.
func withUser(user *session.User, sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.ContextKeyUser, user)
			c.Set(middleware.ContextKeySessionID, sessionID)
		}
		c.Next()
	}
}

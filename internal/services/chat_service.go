package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/wisemarket1122/wisemarket/internal/models"
)

// RoomSummary is one row of the chat-room list: the room plus the listing
// title and both participants' nicknames.
type RoomSummary struct {
	models.ChatRoom
	ItemTitle      string `json:"item_title"`
	BuyerNickname  string `json:"buyer_nickname"`
	SellerNickname string `json:"seller_nickname"`
}

// RoomDetail is the room page view: the room, its listing title, both
// nicknames and the nickname of the other participant from the viewer's
// perspective.
type RoomDetail struct {
	Room           models.ChatRoom
	ItemTitle      string
	BuyerNickname  string
	SellerNickname string
	OtherNickname  string
}

// MessageView is a persisted chat message with its sender's nickname, as
// rendered in the history view and broadcast over the channel.
type MessageView struct {
	models.ChatMessage
	SenderNickname string `json:"nickname"`
}

// IChatService defines the interface for chat room and message operations.
// The websocket hub persists through SaveMessage; the room registry itself
// lives in the hub and is never stored here.
type IChatService interface {
	ListRooms(ctx context.Context, userID uint) ([]RoomSummary, error)
	OpenRoom(ctx context.Context, itemID, buyerID uint) (*models.ChatRoom, error)
	GetRoom(ctx context.Context, roomID, viewerID uint) (*RoomDetail, error)
	IsParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	History(ctx context.Context, roomID uint) ([]MessageView, error)
	SaveMessage(ctx context.Context, roomID, senderID uint, content string) (*models.ChatMessage, error)
}

// chatService implements IChatService.
type chatService struct {
	db *gorm.DB
}

// NewChatService creates a new ChatService.
func NewChatService(db *gorm.DB) IChatService {
	return &chatService{db: db}
}

// ListRooms returns every room the user participates in as buyer or seller,
// newest first.
func (s *chatService) ListRooms(ctx context.Context, userID uint) ([]RoomSummary, error) {
	var rooms []models.ChatRoom
	err := s.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms of user %d: %w", userID, err)
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		itemTitle, buyerNick, sellerNick, err := s.roomNames(ctx, room)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, RoomSummary{
			ChatRoom:       room,
			ItemTitle:      itemTitle,
			BuyerNickname:  buyerNick,
			SellerNickname: sellerNick,
		})
	}
	return summaries, nil
}

// OpenRoom finds or lazily creates the room for (item, buyer, seller).
// The same triple always resolves to the same room; a seller contacting
// their own listing gets ErrSelfChat.
func (s *chatService) OpenRoom(ctx context.Context, itemID, buyerID uint) (*models.ChatRoom, error) {
	var item models.MarketItem
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %d: %w", itemID, err)
	}
	if item.SellerID == buyerID {
		return nil, ErrSelfChat
	}

	var room models.ChatRoom
	err = s.db.WithContext(ctx).
		Where("item_id = ? AND buyer_id = ? AND seller_id = ?", itemID, buyerID, item.SellerID).
		First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding room for item %d: %w", itemID, err)
	}

	room = models.ChatRoom{ItemID: itemID, BuyerID: buyerID, SellerID: item.SellerID}
	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		// A concurrent open of the same triple hits the unique index; the
		// room it raced against is the one to use.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.ChatRoom
			findErr := s.db.WithContext(ctx).
				Where("item_id = ? AND buyer_id = ? AND seller_id = ?", itemID, buyerID, item.SellerID).
				First(&existing).Error
			if findErr == nil {
				return &existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create room for item %d: %w", itemID, err)
	}
	return &room, nil
}

// GetRoom loads the room page view for the given viewer.
func (s *chatService) GetRoom(ctx context.Context, roomID, viewerID uint) (*RoomDetail, error) {
	var room models.ChatRoom
	err := s.db.WithContext(ctx).First(&room, roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding room %d: %w", roomID, err)
	}

	itemTitle, buyerNick, sellerNick, err := s.roomNames(ctx, room)
	if err != nil {
		return nil, err
	}

	other := sellerNick
	if viewerID == room.SellerID {
		other = buyerNick
	}

	return &RoomDetail{
		Room:           room,
		ItemTitle:      itemTitle,
		BuyerNickname:  buyerNick,
		SellerNickname: sellerNick,
		OtherNickname:  other,
	}, nil
}

// IsParticipant reports whether the user is the buyer or seller of the room.
func (s *chatService) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var room models.ChatRoom
	err := s.db.WithContext(ctx).First(&room, roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("error finding room %d: %w", roomID, err)
	}
	return room.BuyerID == userID || room.SellerID == userID, nil
}

// History returns the full persisted message history of a room in send
// order. This read is independent of the live registry; it is what a page
// reload renders.
func (s *chatService) History(ctx context.Context, roomID uint) ([]MessageView, error) {
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history of room %d: %w", roomID, err)
	}

	views := make([]MessageView, 0, len(messages))
	if len(messages) == 0 {
		return views, nil
	}

	senderIDs := make([]uint, 0, len(messages))
	for _, msg := range messages {
		senderIDs = append(senderIDs, msg.SenderID)
	}
	var senders []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", senderIDs).Find(&senders).Error; err != nil {
		return nil, fmt.Errorf("failed to load message senders: %w", err)
	}
	nicknames := make(map[uint]string, len(senders))
	for _, sender := range senders {
		nicknames[sender.ID] = sender.Nickname
	}
	for _, msg := range messages {
		views = append(views, MessageView{ChatMessage: msg, SenderNickname: nicknames[msg.SenderID]})
	}
	return views, nil
}

// SaveMessage persists one message with a server-assigned timestamp and
// returns the stored row. Callers broadcast only after this returns nil.
func (s *chatService) SaveMessage(ctx context.Context, roomID, senderID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidInput
	}

	msg := &models.ChatMessage{RoomID: roomID, SenderID: senderID, Content: content}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save message in room %d: %w", roomID, err)
	}
	return msg, nil
}

// roomNames resolves the listing title and both participant nicknames of a
// room. A room whose listing or participants have vanished mid-cascade is
// reported as not found.
func (s *chatService) roomNames(ctx context.Context, room models.ChatRoom) (string, string, string, error) {
	var item models.MarketItem
	if err := s.db.WithContext(ctx).First(&item, room.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", "", ErrNotFound
		}
		return "", "", "", fmt.Errorf("error loading listing of room %d: %w", room.ID, err)
	}
	var buyer, seller models.User
	if err := s.db.WithContext(ctx).First(&buyer, room.BuyerID).Error; err != nil {
		return "", "", "", fmt.Errorf("error loading buyer of room %d: %w", room.ID, err)
	}
	if err := s.db.WithContext(ctx).First(&seller, room.SellerID).Error; err != nil {
		return "", "", "", fmt.Errorf("error loading seller of room %d: %w", room.ID, err)
	}
	return item.Title, buyer.Nickname, seller.Nickname, nil
}

package models

import "time"

// ItemStatus is the sale state of a market item.
type ItemStatus string

const (
	StatusOnSale   ItemStatus = "on_sale"
	StatusReserved ItemStatus = "reserved"
	StatusSold     ItemStatus = "sold"
)

// ValidItemStatus reports whether s is one of the allowed sale states.
func ValidItemStatus(s ItemStatus) bool {
	switch s {
	case StatusOnSale, StatusReserved, StatusSold:
		return true
	}
	return false
}

// User represents a registered campus account.
// Login is only possible once IsVerified is set; VerifyToken is single-use
// and cleared on verification.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"user_id"`
	Email        string    `gorm:"size:190;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Nickname     string    `gorm:"size:60;uniqueIndex;not null" json:"nickname"`
	IsVerified   bool      `gorm:"not null;default:false" json:"is_verified"`
	VerifyToken  *string   `gorm:"size:64;index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarketItem is a classified listing.
type MarketItem struct {
	ID          uint       `gorm:"primaryKey" json:"item_id"`
	SellerID    uint       `gorm:"index;not null" json:"seller_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Price       int64      `gorm:"not null" json:"price"`
	Category    string     `gorm:"size:60" json:"category,omitempty"`
	Status      ItemStatus `gorm:"size:20;not null;default:on_sale" json:"status"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MarketItemImage is one uploaded image of a listing. Images are ordered by
// insertion; the first one is the listing's thumbnail.
type MarketItemImage struct {
	ID        uint      `gorm:"primaryKey" json:"image_id"`
	ItemID    uint      `gorm:"index;not null" json:"item_id"`
	ImagePath string    `gorm:"size:255;not null" json:"image_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Board is a community board (a named category of posts).
type Board struct {
	ID          uint      `gorm:"primaryKey" json:"board_id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BoardPost is a post on a board, optionally with a single attached image.
type BoardPost struct {
	ID        uint      `gorm:"primaryKey" json:"post_id"`
	BoardID   uint      `gorm:"index;not null" json:"board_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImagePath *string   `gorm:"size:255" json:"image_path,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment belongs to exactly one post and one author.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"comment_id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRoom is a buyer/seller conversation scoped to one listing. The
// (item, buyer, seller) triple is unique; rooms are created lazily on the
// first contact attempt.
type ChatRoom struct {
	ID        uint      `gorm:"primaryKey" json:"room_id"`
	ItemID    uint      `gorm:"uniqueIndex:idx_room_triple;not null" json:"item_id"`
	BuyerID   uint      `gorm:"uniqueIndex:idx_room_triple;not null" json:"buyer_id"`
	SellerID  uint      `gorm:"uniqueIndex:idx_room_triple;not null" json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is one persisted message of a room. Messages are immutable and
// ordered by (created_at, id).
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"message_id"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	SenderID  uint      `gorm:"index;not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

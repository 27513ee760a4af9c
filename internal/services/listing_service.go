package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/wisemarket1122/wisemarket/internal/models"
)

// ItemsPerPage is the fixed page size of the market list view.
const ItemsPerPage = 12

// ItemSummary is one row of the market list: the item plus its thumbnail
// (first inserted image) and the seller's nickname.
type ItemSummary struct {
	models.MarketItem
	SellerNickname string  `json:"seller_nickname"`
	Thumbnail      *string `json:"thumbnail,omitempty"`
}

// ItemPage is one page of market list results.
type ItemPage struct {
	Items      []ItemSummary
	Page       int
	TotalItems int64
	TotalPages int
}

// ItemDetail is the full detail view of one listing.
type ItemDetail struct {
	Item           models.MarketItem
	Images         []models.MarketItemImage
	SellerNickname string
}

// IListingService defines the interface for market item operations.
type IListingService interface {
	Create(ctx context.Context, sellerID uint, title, description string, price int64, category string, imagePaths []string) (*models.MarketItem, error)
	Search(ctx context.Context, query, category string, page int) (*ItemPage, error)
	FindByID(ctx context.Context, itemID uint) (*ItemDetail, error)
	UpdateStatus(ctx context.Context, itemID, userID uint, status models.ItemStatus) error
	Delete(ctx context.Context, itemID, userID uint) error
	Latest(ctx context.Context, limit int) ([]ItemSummary, error)
	ListBySeller(ctx context.Context, sellerID uint) ([]models.MarketItem, error)
}

// listingService implements IListingService.
type listingService struct {
	db *gorm.DB
}

// NewListingService creates a new ListingService.
func NewListingService(db *gorm.DB) IListingService {
	return &listingService{db: db}
}

// Create inserts a new listing and its image rows. The insertion order of
// the images decides which one becomes the thumbnail.
func (s *listingService) Create(ctx context.Context, sellerID uint, title, description string, price int64, category string, imagePaths []string) (*models.MarketItem, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" || price < 0 {
		return nil, NewValidationError("Title, description and price are required.")
	}

	item := &models.MarketItem{
		SellerID:    sellerID,
		Title:       title,
		Description: description,
		Price:       price,
		Category:    strings.TrimSpace(category),
		Status:      models.StatusOnSale,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		for _, path := range imagePaths {
			img := models.MarketItemImage{ItemID: item.ID, ImagePath: path}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create listing for seller %d: %w", sellerID, err)
	}
	return item, nil
}

// Search returns one page of listings, newest first, optionally filtered by
// a case-insensitive substring of title+description and by category.
func (s *listingService) Search(ctx context.Context, query, category string, page int) (*ItemPage, error) {
	if page < 1 {
		page = 1
	}

	base := s.db.WithContext(ctx).Model(&models.MarketItem{})
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		base = base.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if c := strings.TrimSpace(category); c != "" {
		base = base.Where("category = ?", c)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	var items []models.MarketItem
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(ItemsPerPage).
		Offset((page - 1) * ItemsPerPage).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	summaries, err := s.decorate(ctx, items)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + ItemsPerPage - 1) / ItemsPerPage)
	return &ItemPage{
		Items:      summaries,
		Page:       page,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Latest returns the newest listings for the home page.
func (s *listingService) Latest(ctx context.Context, limit int) ([]ItemSummary, error) {
	var items []models.MarketItem
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest listings: %w", err)
	}
	return s.decorate(ctx, items)
}

// decorate attaches seller nicknames and thumbnails to raw item rows.
func (s *listingService) decorate(ctx context.Context, items []models.MarketItem) ([]ItemSummary, error) {
	summaries := make([]ItemSummary, 0, len(items))
	if len(items) == 0 {
		return summaries, nil
	}

	sellerIDs := make([]uint, 0, len(items))
	itemIDs := make([]uint, 0, len(items))
	for _, item := range items {
		sellerIDs = append(sellerIDs, item.SellerID)
		itemIDs = append(itemIDs, item.ID)
	}

	var sellers []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", sellerIDs).Find(&sellers).Error; err != nil {
		return nil, fmt.Errorf("failed to load sellers: %w", err)
	}
	nicknames := make(map[uint]string, len(sellers))
	for _, seller := range sellers {
		nicknames[seller.ID] = seller.Nickname
	}

	var images []models.MarketItemImage
	err := s.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Order("id ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load thumbnails: %w", err)
	}
	thumbnails := make(map[uint]string, len(items))
	for _, img := range images {
		if _, ok := thumbnails[img.ItemID]; !ok {
			thumbnails[img.ItemID] = img.ImagePath
		}
	}

	for _, item := range items {
		summary := ItemSummary{MarketItem: item, SellerNickname: nicknames[item.SellerID]}
		if thumb, ok := thumbnails[item.ID]; ok {
			t := thumb
			summary.Thumbnail = &t
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// FindByID loads the detail view of a listing: the item, its images in
// insertion order and the seller's nickname.
func (s *listingService) FindByID(ctx context.Context, itemID uint) (*ItemDetail, error) {
	var item models.MarketItem
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %d: %w", itemID, err)
	}

	var seller models.User
	if err := s.db.WithContext(ctx).First(&seller, item.SellerID).Error; err != nil {
		return nil, fmt.Errorf("error loading seller of listing %d: %w", itemID, err)
	}

	var images []models.MarketItemImage
	err = s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("id ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("error loading images of listing %d: %w", itemID, err)
	}

	return &ItemDetail{Item: item, Images: images, SellerNickname: seller.Nickname}, nil
}

// UpdateStatus changes the sale state of a listing. Only the seller may do
// it, and only to one of the enumerated states.
func (s *listingService) UpdateStatus(ctx context.Context, itemID, userID uint, status models.ItemStatus) error {
	if !models.ValidItemStatus(status) {
		return ErrInvalidInput
	}

	var item models.MarketItem
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error finding listing %d: %w", itemID, err)
	}
	if item.SellerID != userID {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Model(&item).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update status of listing %d: %w", itemID, err)
	}
	return nil
}

// Delete removes a listing and everything hanging off it as one transaction.
// Chat messages go first, then chat rooms, then images, then the item row;
// the schema has no foreign-key cascades, so the order is explicit.
func (s *listingService) Delete(ctx context.Context, itemID, userID uint) error {
	var item models.MarketItem
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error finding listing %d: %w", itemID, err)
	}
	if item.SellerID != userID {
		return ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomIDs := tx.Model(&models.ChatRoom{}).Select("id").Where("item_id = ?", itemID)
		if err := tx.Where("room_id IN (?)", roomIDs).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&models.ChatRoom{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&models.MarketItemImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MarketItem{}, itemID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete listing %d: %w", itemID, err)
	}
	log.Printf("Listing %d deleted by user %d", itemID, userID)
	return nil
}

// ListBySeller returns all listings of one seller, newest first.
func (s *listingService) ListBySeller(ctx context.Context, sellerID uint) ([]models.MarketItem, error) {
	var items []models.MarketItem
	err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings of seller %d: %w", sellerID, err)
	}
	return items, nil
}

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisemarket1122/wisemarket/internal/models"
)

func TestListingCreate_InsertsItemAndImages(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)

	item, err := svc.Create(context.Background(), seller.ID, "Mini fridge", "Barely used", 45000, "appliances",
		[]string{"/uploads/market/one.jpg", "/uploads/market/two.jpg"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnSale, item.Status)

	var images []models.MarketItemImage
	require.NoError(t, gdb.Where("item_id = ?", item.ID).Order("id ASC").Find(&images).Error)
	require.Len(t, images, 2)
	assert.Equal(t, "/uploads/market/one.jpg", images[0].ImagePath)
}

func TestListingCreate_Validation(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)

	_, err := svc.Create(context.Background(), seller.ID, "", "desc", 1000, "", nil)
	_, ok := AsValidation(err)
	assert.True(t, ok)

	_, err = svc.Create(context.Background(), seller.ID, "title", "desc", -1, "", nil)
	_, ok = AsValidation(err)
	assert.True(t, ok)
}

func TestListingSearch_PaginatesNewestFirst(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < ItemsPerPage+3; i++ {
		item := seedItem(t, gdb, seller.ID, fmt.Sprintf("Item %02d", i))
		require.NoError(t, gdb.Model(&models.MarketItem{}).Where("id = ?", item.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page1, err := svc.Search(context.Background(), "", "", 1)
	require.NoError(t, err)
	assert.Len(t, page1.Items, ItemsPerPage)
	assert.Equal(t, int64(ItemsPerPage+3), page1.TotalItems)
	assert.Equal(t, 2, page1.TotalPages)
	assert.Equal(t, "Item 14", page1.Items[0].Title, "newest first")

	page2, err := svc.Search(context.Background(), "", "", 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 3)
	assert.Equal(t, "Item 00", page2.Items[2].Title)
}

func TestListingSearch_QueryIsCaseInsensitive(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)
	seedItem(t, gdb, seller.ID, "MacBook charger")
	seedItem(t, gdb, seller.ID, "Desk lamp")

	page, err := svc.Search(context.Background(), "macbook", "", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "MacBook charger", page.Items[0].Title)
	assert.Equal(t, "seller", page.Items[0].SellerNickname)
}

func TestListingSearch_FiltersByCategory(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)

	item := seedItem(t, gdb, seller.ID, "Econ textbook")
	require.NoError(t, gdb.Model(&models.MarketItem{}).Where("id = ?", item.ID).
		Update("category", "books").Error)
	seedItem(t, gdb, seller.ID, "Desk lamp")

	page, err := svc.Search(context.Background(), "", "books", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Econ textbook", page.Items[0].Title)
}

func TestListingFindByID_ThumbnailIsFirstImage(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)

	item, err := svc.Create(context.Background(), seller.ID, "Bike", "City bike", 90000, "",
		[]string{"/uploads/market/first.jpg", "/uploads/market/second.jpg"})
	require.NoError(t, err)

	detail, err := svc.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, detail.Images, 2)
	assert.Equal(t, "/uploads/market/first.jpg", detail.Images[0].ImagePath)
	assert.Equal(t, "seller", detail.SellerNickname)

	page, err := svc.Search(context.Background(), "", "", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Thumbnail)
	assert.Equal(t, "/uploads/market/first.jpg", *page.Items[0].Thumbnail)
}

func TestListingFindByID_Unknown(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)

	_, err := svc.FindByID(context.Background(), 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingUpdateStatus(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)
	other := seedUser(t, gdb, "other@dongguk.ac.kr", "other", "secret123", true)
	item := seedItem(t, gdb, seller.ID, "Bike")

	// Not the seller.
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), item.ID, other.ID, models.StatusSold), ErrForbidden)

	// Not an allowed state.
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), item.ID, seller.ID, models.ItemStatus("gone")), ErrInvalidInput)

	require.NoError(t, svc.UpdateStatus(context.Background(), item.ID, seller.ID, models.StatusReserved))
	detail, err := svc.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReserved, detail.Item.Status)
}

func TestListingDelete_CascadesRoomsMessagesImages(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)
	buyer := seedUser(t, gdb, "buyer@dongguk.ac.kr", "buyer", "secret123", true)

	item, err := svc.Create(context.Background(), seller.ID, "Bike", "City bike", 90000, "",
		[]string{"/uploads/market/a.jpg"})
	require.NoError(t, err)

	room := &models.ChatRoom{ItemID: item.ID, BuyerID: buyer.ID, SellerID: seller.ID}
	require.NoError(t, gdb.Create(room).Error)
	require.NoError(t, gdb.Create(&models.ChatMessage{RoomID: room.ID, SenderID: buyer.ID, Content: "Still there?"}).Error)

	assert.ErrorIs(t, svc.Delete(context.Background(), item.ID, buyer.ID), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), item.ID, seller.ID))

	for _, model := range []interface{}{&models.MarketItem{}, &models.MarketItemImage{}, &models.ChatRoom{}, &models.ChatMessage{}} {
		var count int64
		require.NoError(t, gdb.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestListingLatest_RespectsLimit(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)
	for i := 0; i < 10; i++ {
		seedItem(t, gdb, seller.ID, fmt.Sprintf("Item %d", i))
	}

	latest, err := svc.Latest(context.Background(), 8)
	require.NoError(t, err)
	assert.Len(t, latest, 8)
}

func TestListBySeller(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewListingService(gdb)
	seller := seedUser(t, gdb, "seller@dongguk.ac.kr", "seller", "secret123", true)
	other := seedUser(t, gdb, "other@dongguk.ac.kr", "other", "secret123", true)
	seedItem(t, gdb, seller.ID, "Mine")
	seedItem(t, gdb, other.ID, "Theirs")

	items, err := svc.ListBySeller(context.Background(), seller.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Mine", items[0].Title)
}

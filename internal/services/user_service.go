package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wisemarket1122/wisemarket/internal/auth"
	"github.com/wisemarket1122/wisemarket/internal/config"
	"github.com/wisemarket1122/wisemarket/internal/email"
	"github.com/wisemarket1122/wisemarket/internal/models"
)

// SignupResult reports the outcome of a registration. MailSent distinguishes
// "account created, verification mail dispatched" from "account created but
// the mail could not be sent": the second is a soft notice, not a failure;
// the stored verification token stays valid either way.
type SignupResult struct {
	User     *models.User
	MailSent bool
}

// ProfileUpdate carries the fields of a my-page edit. The three password
// fields are all-or-nothing: filling any one of them requires all three.
type ProfileUpdate struct {
	Nickname           string
	CurrentPassword    string
	NewPassword        string
	NewPasswordConfirm string
}

// IUserService defines the interface for account operations.
// This allows for easier mocking in tests.
type IUserService interface {
	Register(ctx context.Context, emailAddr, password, passwordConfirm, nickname string) (*SignupResult, error)
	VerifyEmail(ctx context.Context, token string) error
	Authenticate(ctx context.Context, emailAddr, password string) (*models.User, error)
	FindByID(ctx context.Context, userID uint) (*models.User, error)
	EmailExists(ctx context.Context, emailAddr string) (bool, error)
	UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error)
	DeleteAccount(ctx context.Context, userID uint) error
	PurgeUnverified(ctx context.Context, olderThan time.Duration) (int64, error)
}

// userService implements IUserService.
type userService struct {
	db     *gorm.DB
	cfg    *config.Config
	sender email.Sender
}

// NewUserService creates a new UserService.
func NewUserService(db *gorm.DB, cfg *config.Config, sender email.Sender) IUserService {
	return &userService{db: db, cfg: cfg, sender: sender}
}

// Register validates the signup form, creates an unverified user with a
// fresh single-use verification token, and dispatches the verification mail.
// Validation failures create no row. A mail dispatch failure still leaves
// the account created and is reported via SignupResult.MailSent.
func (s *userService) Register(ctx context.Context, emailAddr, password, passwordConfirm, nickname string) (*SignupResult, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	nickname = strings.TrimSpace(nickname)

	if emailAddr == "" || password == "" || passwordConfirm == "" || nickname == "" {
		return nil, NewValidationError("Email, password and nickname are required.")
	}
	if !strings.HasSuffix(strings.ToLower(emailAddr), strings.ToLower(s.cfg.CampusEmailDomain)) {
		return nil, NewValidationError(fmt.Sprintf("Only campus email addresses (%s) can be used.", s.cfg.CampusEmailDomain))
	}
	if password != passwordConfirm {
		return nil, NewValidationError("Password and password confirmation do not match.")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR nickname = ?", emailAddr, nickname).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("error checking email/nickname uniqueness: %w", err)
	}
	if count > 0 {
		return nil, NewValidationError("That email or nickname is already in use.")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password for %s: %w", emailAddr, err)
	}

	token, err := auth.NewVerifyToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token for %s: %w", emailAddr, err)
	}

	user := &models.User{
		Email:        emailAddr,
		PasswordHash: hashed,
		Nickname:     nickname,
		IsVerified:   false,
		VerifyToken:  &token,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// A concurrent signup can slip past the count check; the unique
		// indexes on email and nickname catch it here.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("That email or nickname is already in use.")
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", emailAddr, err)
	}

	verifyURL := fmt.Sprintf("%s/auth/verify?token=%s", s.cfg.BaseURL, token)
	mailErr := s.sender.Send(ctx, emailAddr, "WISE market email verification", email.VerificationBody(verifyURL))
	if mailErr != nil {
		log.Printf("Verification mail for %s failed: %v", emailAddr, mailErr)
	}

	return &SignupResult{User: user, MailSent: mailErr == nil}, nil
}

// VerifyEmail consumes a verification token: sets the verified flag and
// clears the token so a second use fails with ErrNotFound.
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNotFound
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("verify_token = ?", token).
		Updates(map[string]interface{}{
			"is_verified":  true,
			"verify_token": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("error consuming verification token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Authenticate checks the credentials of a login attempt. Unknown email,
// wrong password and unverified account all come back as
// ErrInvalidCredentials.
func (s *userService) Authenticate(ctx context.Context, emailAddr, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", emailAddr).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", emailAddr, err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// FindByID finds a user by their ID.
func (s *userService) FindByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user %d: %w", userID, err)
	}
	return &user, nil
}

// EmailExists reports whether any account uses the given email address.
func (s *userService) EmailExists(ctx context.Context, emailAddr string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", emailAddr).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("error counting users by email: %w", err)
	}
	return count > 0, nil
}

// UpdateProfile changes the nickname and, when all three password fields are
// supplied and the current password matches, the password.
func (s *userService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	nickname := strings.TrimSpace(update.Nickname)
	if nickname == "" {
		return nil, NewValidationError("Please enter a nickname.")
	}

	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var dup int64
	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("nickname = ? AND id <> ?", nickname, userID).
		Count(&dup).Error
	if err != nil {
		return nil, fmt.Errorf("error checking nickname uniqueness: %w", err)
	}
	if dup > 0 {
		return nil, NewValidationError("That nickname is already in use.")
	}

	changes := map[string]interface{}{"nickname": nickname}

	hasPasswordInput := update.CurrentPassword != "" || update.NewPassword != "" || update.NewPasswordConfirm != ""
	if hasPasswordInput {
		if update.CurrentPassword == "" || update.NewPassword == "" || update.NewPasswordConfirm == "" {
			return nil, NewValidationError("To change your password, fill in the current password, the new password and its confirmation.")
		}
		if update.NewPassword != update.NewPasswordConfirm {
			return nil, NewValidationError("New password and confirmation do not match.")
		}
		if !auth.CheckPasswordHash(update.CurrentPassword, user.PasswordHash) {
			return nil, NewValidationError("Current password is incorrect.")
		}
		hashed, hashErr := auth.HashPassword(update.NewPassword)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash new password for user %d: %w", userID, hashErr)
		}
		changes["password_hash"] = hashed
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile for user %d: %w", userID, err)
	}
	return user, nil
}

// DeleteAccount removes the user and everything they own as one transaction:
// their comments, their posts (with the comments on them), the chat rooms
// they participate in (with messages), their listings (with images and the
// rooms/messages attached to those listings), then the user row.
func (s *userService) DeleteAccount(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Comments authored by the user, then comments on the user's posts.
		if err := tx.Where("author_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		postIDs := tx.Model(&models.BoardPost{}).Select("id").Where("author_id = ?", userID)
		if err := tx.Where("post_id IN (?)", postIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", userID).Delete(&models.BoardPost{}).Error; err != nil {
			return err
		}

		// Rooms the user participates in as buyer or seller.
		participantRooms := tx.Model(&models.ChatRoom{}).Select("id").
			Where("buyer_id = ? OR seller_id = ?", userID, userID)
		if err := tx.Where("room_id IN (?)", participantRooms).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("buyer_id = ? OR seller_id = ?", userID, userID).Delete(&models.ChatRoom{}).Error; err != nil {
			return err
		}

		// The user's listings drag their rooms, messages and images along.
		itemIDs := tx.Model(&models.MarketItem{}).Select("id").Where("seller_id = ?", userID)
		itemRooms := tx.Model(&models.ChatRoom{}).Select("id").Where("item_id IN (?)", itemIDs)
		if err := tx.Where("room_id IN (?)", itemRooms).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id IN (?)", itemIDs).Delete(&models.ChatRoom{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id IN (?)", itemIDs).Delete(&models.MarketItemImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("seller_id = ?", userID).Delete(&models.MarketItem{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.User{}, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete account %d: %w", userID, err)
	}
	log.Printf("Account %d deleted with owned data", userID)
	return nil
}

// PurgeUnverified deletes unverified accounts older than the given age.
// Called from the background cleanup task.
func (s *userService) PurgeUnverified(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := s.db.WithContext(ctx).
		Where("is_verified = ? AND created_at < ?", false, cutoff).
		Delete(&models.User{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge unverified accounts: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Purged %d unverified accounts older than %s", result.RowsAffected, olderThan)
	}
	return result.RowsAffected, nil
}

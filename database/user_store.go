package database

import (
	"context"
	"time"

	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/services"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

var _ services.UserStore = (*UserStore)(nil)

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByResetTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_token_expires_at > ?", hash, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) CountUsers(ctx context.Context, ids []uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *UserStore) SaveUser(ctx context.Context, user *models.User) error {
	res := s.db.WithContext(ctx).Model(user).Select("*").Omit("created_at").Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *UserStore) ListCompleteProfiles(ctx context.Context, excludeID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("profile_complete = ? AND id <> ?", true, excludeID).
		Order("created_at DESC, id DESC").
		Find(&users).Error
	return users, err
}

func (s *UserStore) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("reset_token_expires_at IS NOT NULL AND reset_token_expires_at <= ?", now).
		Updates(map[string]interface{}{"reset_token_hash": nil, "reset_token_expires_at": nil})
	return res.RowsAffected, res.Error
}

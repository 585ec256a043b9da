package database

import (
	"context"
	"strings"

	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PropertyStore struct {
	db *gorm.DB
}

var _ services.PropertyStore = (*PropertyStore)(nil)

func NewPropertyStore(db *gorm.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

func (s *PropertyStore) GetProperty(ctx context.Context, id uint) (*models.Property, error) {
	var p models.Property
	if err := s.db.WithContext(ctx).Preload("Owner").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PropertyStore) ListProperties(ctx context.Context, q services.PropertyQuery) ([]models.Property, error) {
	tx := s.db.WithContext(ctx).Preload("Owner")

	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}
	if q.RoomsMin != nil {
		tx = tx.Where("rooms >= ?", *q.RoomsMin)
	}
	if q.RoomsMax != nil {
		tx = tx.Where("rooms <= ?", *q.RoomsMax)
	}
	if q.OwnerID != nil {
		tx = tx.Where("user_id = ?", *q.OwnerID)
	}
	if len(q.Cities) > 0 {
		cities := s.db.Where("location ILIKE ?", likePattern(q.Cities[0]))
		for _, city := range q.Cities[1:] {
			cities = cities.Or("location ILIKE ?", likePattern(city))
		}
		tx = tx.Where(cities)
	}
	if q.Search != "" {
		pattern := likePattern(q.Search)
		tx = tx.Where("(title ILIKE ? OR location ILIKE ?)", pattern, pattern)
	}
	if b := q.Bounds; b != nil {
		tx = tx.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}

	var props []models.Property
	err := tx.Order("created_at DESC, id DESC").Find(&props).Error
	return props, err
}

func (s *PropertyStore) CreateProperty(ctx context.Context, property *models.Property) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(property).Error
}

func (s *PropertyStore) SaveProperty(ctx context.Context, property *models.Property) error {
	res := s.db.WithContext(ctx).Model(property).Select("*").Omit("created_at", clause.Associations).Updates(property)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProperty relies on the ON DELETE CASCADE foreign keys to remove the listing's conversations.
func (s *PropertyStore) DeleteProperty(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Property{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

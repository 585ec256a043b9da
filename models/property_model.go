package models

import "time"

type Property struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	UserID        uint     `gorm:"not null;index" json:"user_id"`
	Title         string   `gorm:"size:255;not null" json:"title"`
	Location      string   `gorm:"size:255;not null;index" json:"location"`
	Price         float64  `gorm:"type:numeric(12,2);not null;index" json:"price"`
	Description   *string  `gorm:"type:text" json:"description"`
	Rooms         *int     `gorm:"index" json:"rooms"`
	PropertyType  *string  `gorm:"size:60" json:"property_type"`
	MainImageURL  *string  `gorm:"size:512" json:"main_image_url"`
	GalleryImages []string `gorm:"column:gallery_image_urls;type:text;serializer:json" json:"gallery_images"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`

	Owner User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

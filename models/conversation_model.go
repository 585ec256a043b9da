package models

import (
	"fmt"
	"time"
)

type Conversation struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       *string `gorm:"size:120" json:"name"`
	PropertyID *uint   `gorm:"index" json:"property_id"`
	// DirectKey is only set for conversations created through the direct path. The unique
	// index is what keeps two concurrent creators from producing duplicates; NULLs never collide.
	DirectKey *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	Property *Property            `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"-"`
	Members  []ConversationMember `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Messages []Message            `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

type ConversationMember struct {
	ConversationID uint       `gorm:"primaryKey" json:"conversation_id"`
	UserID         uint       `gorm:"primaryKey;index" json:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// DirectKey identifies the 2-member conversation between a and b scoped to an optional listing.
// The pair is unordered.
func DirectKey(a, b uint, propertyID *uint) string {
	if a > b {
		a, b = b, a
	}
	var listing uint
	if propertyID != nil {
		listing = *propertyID
	}
	return fmt.Sprintf("%d:%d:%d", a, b, listing)
}

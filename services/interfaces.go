package services

import (
	"context"
	"time"

	"github.com/anjiri1684/smart_roommate/models"
)

// Stores report a missing row with gorm.ErrRecordNotFound and a unique-index collision with
// gorm.ErrDuplicatedKey, whatever backs them.

type UserStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error)
	CountUsers(ctx context.Context, ids []uint) (int64, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	// ListCompleteProfiles returns every complete profile except excludeID, newest first.
	ListCompleteProfiles(ctx context.Context, excludeID uint) ([]models.User, error)
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type PropertyQuery struct {
	MinPrice *float64
	MaxPrice *float64
	RoomsMin *int
	RoomsMax *int
	Cities   []string
	Search   string
	OwnerID  *uint
	// Bounds restricts to listings with coordinates inside the box; the radius itself is
	// applied by the service.
	Bounds *GeoBounds
}

type GeoBounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

type PropertyStore interface {
	GetProperty(ctx context.Context, id uint) (*models.Property, error)
	ListProperties(ctx context.Context, query PropertyQuery) ([]models.Property, error)
	CreateProperty(ctx context.Context, property *models.Property) error
	SaveProperty(ctx context.Context, property *models.Property) error
	DeleteProperty(ctx context.Context, id uint) error
}

type MessageView struct {
	ID         uint      `json:"id"`
	SenderID   uint      `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

type MemberView struct {
	ConversationID  uint    `json:"-"`
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	ProfileImageURL *string `json:"profile_image_url"`
}

type ConversationSummary struct {
	ID            uint         `json:"id"`
	Name          *string      `json:"name"`
	PropertyID    *uint        `json:"property_id"`
	CreatedAt     time.Time    `json:"created_at"`
	LastMessage   *string      `json:"last_message"`
	LastMessageAt *time.Time   `json:"last_message_at"`
	UnreadCount   int64        `json:"unread_count"`
	Members       []MemberView `json:"members" gorm:"-"`
}

// LastActivity is the most recent message time, or the creation time for an empty conversation.
func (s ConversationSummary) LastActivity() time.Time {
	if s.LastMessageAt != nil {
		return *s.LastMessageAt
	}
	return s.CreatedAt
}

type ConversationStore interface {
	FindDirectConversation(ctx context.Context, directKey string) (*models.Conversation, error)
	// FindPairConversation returns the oldest conversation whose members are exactly a and b and
	// whose listing is propertyID (both nil counts as a match).
	FindPairConversation(ctx context.Context, a, b uint, propertyID *uint) (*models.Conversation, error)
	// CreateConversation inserts the conversation and its members (never read) atomically.
	CreateConversation(ctx context.Context, conversation *models.Conversation, memberIDs []uint) error
	IsMember(ctx context.Context, conversationID, userID uint) (bool, error)
	// AppendMessage stamps msg with models.NextMessageTime, inserts it and advances the sender's
	// read position to it. Appends and reads of one conversation are serialized, and the stamp is
	// taken while holding that serialization.
	AppendMessage(ctx context.Context, msg *models.Message, now func() time.Time) error
	// ReadMessages returns the conversation's messages oldest first and advances the reader's
	// read position to now() (or the newest returned message, if later) under the same
	// serialization as AppendMessage. Read positions never move backward.
	ReadMessages(ctx context.Context, conversationID, readerID uint, now func() time.Time) ([]MessageView, error)
	ListConversationSummaries(ctx context.Context, userID uint) ([]ConversationSummary, error)
	ListMembers(ctx context.Context, conversationIDs []uint) ([]MemberView, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	// ListRecipients returns every member of the conversation except senderID.
	ListRecipients(ctx context.Context, conversationID, senderID uint) ([]models.User, error)
	RenameConversation(ctx context.Context, conversationID uint, name string) error
}

type MessageNotifier interface {
	NotifyNewMessage(ctx context.Context, sender *models.User, recipients []models.User, body string) error
}

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationStore struct {
	db *gorm.DB
}

var _ services.ConversationStore = (*ConversationStore)(nil)

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) FindDirectConversation(ctx context.Context, directKey string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).Where("direct_key = ?", directKey).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationStore) FindPairConversation(ctx context.Context, a, b uint, propertyID *uint) (*models.Conversation, error) {
	var conv models.Conversation
	res := s.db.WithContext(ctx).Raw(`
		SELECT c.*
		FROM conversations c
		JOIN conversation_members cm ON cm.conversation_id = c.id
		WHERE c.property_id IS NOT DISTINCT FROM ?
		AND cm.user_id IN (?, ?)
		GROUP BY c.id
		HAVING COUNT(DISTINCT cm.user_id) = 2
		AND (SELECT COUNT(*) FROM conversation_members x WHERE x.conversation_id = c.id) = 2
		ORDER BY c.id
		LIMIT 1`, propertyID, a, b).
		Scan(&conv)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &conv, nil
}

func (s *ConversationStore) CreateConversation(ctx context.Context, conv *models.Conversation, memberIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(conv).Error; err != nil {
			return err
		}
		members := make([]models.ConversationMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, models.ConversationMember{ConversationID: conv.ID, UserID: id})
		}
		return tx.Omit(clause.Associations).Create(&members).Error
	})
}

func (s *ConversationStore) IsMember(ctx context.Context, conversationID, userID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&n).Error
	return n > 0, err
}

func (s *ConversationStore) AppendMessage(ctx context.Context, msg *models.Message, now func() time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockConversation(tx, msg.ConversationID); err != nil {
			return err
		}
		floor, err := messageFloor(tx, msg.ConversationID)
		if err != nil {
			return err
		}
		msg.CreatedAt = models.NextMessageTime(now(), floor)
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}
		return advanceReadPosition(tx, msg.ConversationID, msg.SenderID, msg.CreatedAt)
	})
}

func (s *ConversationStore) ReadMessages(ctx context.Context, conversationID, readerID uint, now func() time.Time) ([]services.MessageView, error) {
	var msgs []services.MessageView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockConversation(tx, conversationID); err != nil {
			return err
		}
		readAt := now()
		err := tx.Raw(`
			SELECT m.id, m.sender_id, u.name AS sender_name, m.body, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.conversation_id = ?
			ORDER BY m.created_at ASC, m.id ASC`, conversationID).
			Scan(&msgs).Error
		if err != nil {
			return err
		}
		if n := len(msgs); n > 0 && msgs[n-1].CreatedAt.After(readAt) {
			readAt = msgs[n-1].CreatedAt
		}
		return advanceReadPosition(tx, conversationID, readerID, readAt)
	})
	return msgs, err
}

// lockConversation holds the conversation row until the transaction ends, serializing appends
// and reads of one conversation.
func lockConversation(tx *gorm.DB, conversationID uint) error {
	var conv models.Conversation
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&conv, conversationID).Error
}

// messageFloor is the latest message time or read position in the conversation.
func messageFloor(tx *gorm.DB, conversationID uint) (*time.Time, error) {
	var floor sql.NullTime
	err := tx.Raw(`
		SELECT GREATEST(
			(SELECT MAX(last_read_at) FROM conversation_members WHERE conversation_id = ?),
			(SELECT MAX(created_at) FROM messages WHERE conversation_id = ?))`, conversationID, conversationID).
		Row().Scan(&floor)
	if err != nil || !floor.Valid {
		return nil, err
	}
	return &floor.Time, nil
}

// advanceReadPosition never moves a read position backward.
func advanceReadPosition(tx *gorm.DB, conversationID, userID uint, at time.Time) error {
	return tx.Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ? AND (last_read_at IS NULL OR last_read_at < ?)", conversationID, userID, at).
		Update("last_read_at", at).Error
}

func (s *ConversationStore) ListConversationSummaries(ctx context.Context, userID uint) ([]services.ConversationSummary, error) {
	var out []services.ConversationSummary
	err := s.db.WithContext(ctx).Raw(`
		SELECT c.id, c.name, c.property_id, c.created_at,
			lm.body AS last_message,
			lm.created_at AS last_message_at,
			(SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id
				AND m.sender_id <> cm.user_id
				AND (cm.last_read_at IS NULL OR m.created_at > cm.last_read_at)) AS unread_count
		FROM conversation_members cm
		JOIN conversations c ON c.id = cm.conversation_id
		LEFT JOIN LATERAL (
			SELECT body, created_at FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		WHERE cm.user_id = ?
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id DESC`, userID).
		Scan(&out).Error
	return out, err
}

func (s *ConversationStore) ListMembers(ctx context.Context, conversationIDs []uint) ([]services.MemberView, error) {
	var out []services.MemberView
	if len(conversationIDs) == 0 {
		return out, nil
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT cm.conversation_id, u.id, u.name, u.profile_image_url
		FROM conversation_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.conversation_id IN ?
		ORDER BY cm.conversation_id, u.id`, conversationIDs).
		Scan(&out).Error
	return out, err
}

func (s *ConversationStore) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM messages m
		JOIN conversation_members cm ON cm.conversation_id = m.conversation_id
		WHERE cm.user_id = ?
		AND m.sender_id <> cm.user_id
		AND (cm.last_read_at IS NULL OR m.created_at > cm.last_read_at)`, userID).
		Scan(&n).Error
	return n, err
}

func (s *ConversationStore) ListRecipients(ctx context.Context, conversationID, senderID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.user_id = users.id").
		Where("cm.conversation_id = ? AND users.id <> ?", conversationID, senderID).
		Order("users.id").
		Find(&users).Error
	return users, err
}

func (s *ConversationStore) RenameConversation(ctx context.Context, conversationID uint, name string) error {
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

package models

import "time"

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2" json:"created_at"`

	Sender User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsUnreadFor applies the unread rule: sent by someone else and strictly newer than the
// member's last read. A nil lastReadAt means the member has never read the conversation.
func (m *Message) IsUnreadFor(memberID uint, lastReadAt *time.Time) bool {
	if m.SenderID == memberID {
		return false
	}
	if lastReadAt == nil {
		return true
	}
	return m.CreatedAt.After(*lastReadAt)
}

// NextMessageTime stamps a new message at now, or just after floor when the clock has not
// passed it. floor is the latest message time or read position in the conversation, so a
// message is never hidden behind a read that did not return it.
func NextMessageTime(now time.Time, floor *time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if floor != nil && !now.After(*floor) {
		return floor.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

func CountUnread(messages []Message, memberID uint, lastReadAt *time.Time) int64 {
	var n int64
	for i := range messages {
		if messages[i].IsUnreadFor(memberID, lastReadAt) {
			n++
		}
	}
	return n
}

// Package storetest provides an in-memory implementation of the service stores for tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/services"
	"gorm.io/gorm"
)

// Memory implements services.UserStore, services.PropertyStore and services.ConversationStore.
// It reports errors the way the gorm stores do.
type Memory struct {
	mu sync.Mutex

	users         map[uint]*models.User
	properties    map[uint]*models.Property
	conversations map[uint]*models.Conversation
	members       map[uint]map[uint]*models.ConversationMember
	messages      []models.Message

	nextUser, nextProperty, nextConversation, nextMessage uint

	// Fail, when set, is returned by every call.
	Fail error
}

var (
	_ services.UserStore         = (*Memory)(nil)
	_ services.PropertyStore     = (*Memory)(nil)
	_ services.ConversationStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		users:         map[uint]*models.User{},
		properties:    map[uint]*models.Property{},
		conversations: map[uint]*models.Conversation{},
		members:       map[uint]map[uint]*models.ConversationMember{},
	}
}

// AddUser stores a user named name and returns it with its id assigned.
func (m *Memory) AddUser(name string) *models.User {
	u := &models.User{Name: name, Email: strings.ToLower(name) + "@example.com"}
	_ = m.CreateUser(context.Background(), u)
	return u
}

// Conversations returns the number of stored conversations.
func (m *Memory) Conversations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

// Messages returns the number of stored messages in conversationID.
func (m *Memory) Messages(conversationID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			n++
		}
	}
	return n
}

// MemberIDs returns the member ids of conversationID in ascending order.
func (m *Memory) MemberIDs(conversationID uint) []uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint, 0, len(m.members[conversationID]))
	for id := range m.members[conversationID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LastReadAt returns the read position of userID in conversationID.
func (m *Memory) LastReadAt(conversationID, userID uint) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.members[conversationID][userID]; ok {
		return member.LastReadAt
	}
	return nil
}

func (m *Memory) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Memory) GetUserByResetTokenHash(_ context.Context, hash string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	for _, u := range m.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == hash &&
			u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Memory) CountUsers(_ context.Context, ids []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextUser++
	user.ID = m.nextUser
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().Add(time.Duration(user.ID) * time.Millisecond)
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *Memory) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *Memory) ListCompleteProfiles(_ context.Context, excludeID uint) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var out []models.User
	for _, u := range m.users {
		if u.ID != excludeID && u.ProfileComplete {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	var n int64
	for _, u := range m.users {
		if u.ResetTokenExpiresAt != nil && !u.ResetTokenExpiresAt.After(now) {
			u.ResetTokenHash = nil
			u.ResetTokenExpiresAt = nil
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetProperty(_ context.Context, id uint) (*models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	p, ok := m.properties[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	if owner, ok := m.users[p.UserID]; ok {
		cp.Owner = *owner
	}
	return &cp, nil
}

func (m *Memory) ListProperties(_ context.Context, q services.PropertyQuery) ([]models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var out []models.Property
	for _, p := range m.properties {
		if matches(p, q) {
			cp := *p
			if owner, ok := m.users[p.UserID]; ok {
				cp.Owner = *owner
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matches(p *models.Property, q services.PropertyQuery) bool {
	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}
	if q.RoomsMin != nil && (p.Rooms == nil || *p.Rooms < *q.RoomsMin) {
		return false
	}
	if q.RoomsMax != nil && (p.Rooms == nil || *p.Rooms > *q.RoomsMax) {
		return false
	}
	if q.OwnerID != nil && p.UserID != *q.OwnerID {
		return false
	}
	location := strings.ToLower(p.Location)
	if len(q.Cities) > 0 {
		found := false
		for _, city := range q.Cities {
			if strings.Contains(location, strings.ToLower(city)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Search != "" {
		s := strings.ToLower(q.Search)
		if !strings.Contains(location, s) && !strings.Contains(strings.ToLower(p.Title), s) {
			return false
		}
	}
	if b := q.Bounds; b != nil {
		if p.Latitude == nil || p.Longitude == nil {
			return false
		}
		if *p.Latitude < b.MinLat || *p.Latitude > b.MaxLat || *p.Longitude < b.MinLng || *p.Longitude > b.MaxLng {
			return false
		}
	}
	return true
}

func (m *Memory) CreateProperty(_ context.Context, property *models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.nextProperty++
	property.ID = m.nextProperty
	if property.CreatedAt.IsZero() {
		property.CreatedAt = time.Now()
	}
	cp := *property
	m.properties[property.ID] = &cp
	return nil
}

func (m *Memory) SaveProperty(_ context.Context, property *models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.properties[property.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *property
	m.properties[property.ID] = &cp
	return nil
}

// DeleteProperty cascades to the conversations scoped to the listing, like the foreign key does.
func (m *Memory) DeleteProperty(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.properties[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.properties, id)
	for convID, c := range m.conversations {
		if c.PropertyID != nil && *c.PropertyID == id {
			m.deleteConversationLocked(convID)
		}
	}
	return nil
}

func (m *Memory) deleteConversationLocked(id uint) {
	delete(m.conversations, id)
	delete(m.members, id)
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.ConversationID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
}

func (m *Memory) FindDirectConversation(_ context.Context, directKey string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	for _, c := range m.conversations {
		if c.DirectKey != nil && *c.DirectKey == directKey {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Memory) FindPairConversation(_ context.Context, a, b uint, propertyID *uint) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var found *models.Conversation
	for id, c := range m.conversations {
		members := m.members[id]
		if len(members) != 2 || members[a] == nil || members[b] == nil {
			continue
		}
		if (c.PropertyID == nil) != (propertyID == nil) || (c.PropertyID != nil && *c.PropertyID != *propertyID) {
			continue
		}
		if found == nil || c.ID < found.ID {
			found = c
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *found
	return &cp, nil
}

func (m *Memory) CreateConversation(_ context.Context, conversation *models.Conversation, memberIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if conversation.DirectKey != nil {
		for _, c := range m.conversations {
			if c.DirectKey != nil && *c.DirectKey == *conversation.DirectKey {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	m.nextConversation++
	conversation.ID = m.nextConversation
	cp := *conversation
	m.conversations[conversation.ID] = &cp
	m.members[conversation.ID] = map[uint]*models.ConversationMember{}
	for _, uid := range memberIDs {
		m.members[conversation.ID][uid] = &models.ConversationMember{ConversationID: conversation.ID, UserID: uid}
	}
	return nil
}

func (m *Memory) IsMember(_ context.Context, conversationID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	_, ok := m.members[conversationID][userID]
	return ok, nil
}

func (m *Memory) AppendMessage(_ context.Context, msg *models.Message, now func() time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	msg.CreatedAt = models.NextMessageTime(now(), m.floorLocked(msg.ConversationID))
	m.nextMessage++
	msg.ID = m.nextMessage
	m.messages = append(m.messages, *msg)
	m.advanceLocked(msg.ConversationID, msg.SenderID, msg.CreatedAt)
	return nil
}

func (m *Memory) floorLocked(conversationID uint) *time.Time {
	var floor *time.Time
	later := func(t time.Time) {
		if floor == nil || t.After(*floor) {
			t := t
			floor = &t
		}
	}
	for _, member := range m.members[conversationID] {
		if member.LastReadAt != nil {
			later(*member.LastReadAt)
		}
	}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			later(msg.CreatedAt)
		}
	}
	return floor
}

func (m *Memory) advanceLocked(conversationID, userID uint, at time.Time) {
	member, ok := m.members[conversationID][userID]
	if !ok {
		return
	}
	if member.LastReadAt == nil || member.LastReadAt.Before(at) {
		t := at
		member.LastReadAt = &t
	}
}

func (m *Memory) ReadMessages(_ context.Context, conversationID, readerID uint, now func() time.Time) ([]services.MessageView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	if _, ok := m.conversations[conversationID]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	readAt := now()
	var out []services.MessageView
	for _, msg := range m.conversationMessagesLocked(conversationID) {
		name := ""
		if u, ok := m.users[msg.SenderID]; ok {
			name = u.Name
		}
		out = append(out, services.MessageView{
			ID:         msg.ID,
			SenderID:   msg.SenderID,
			SenderName: name,
			Body:       msg.Body,
			CreatedAt:  msg.CreatedAt,
		})
	}
	if n := len(out); n > 0 && out[n-1].CreatedAt.After(readAt) {
		readAt = out[n-1].CreatedAt
	}
	m.advanceLocked(conversationID, readerID, readAt)
	return out, nil
}

func (m *Memory) conversationMessagesLocked(conversationID uint) []models.Message {
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) unreadLocked(conversationID, userID uint) int64 {
	member, ok := m.members[conversationID][userID]
	if !ok {
		return 0
	}
	return models.CountUnread(m.conversationMessagesLocked(conversationID), userID, member.LastReadAt)
}

func (m *Memory) ListConversationSummaries(_ context.Context, userID uint) ([]services.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var out []services.ConversationSummary
	for convID, members := range m.members {
		if _, ok := members[userID]; !ok {
			continue
		}
		c := m.conversations[convID]
		s := services.ConversationSummary{
			ID:          c.ID,
			Name:        c.Name,
			PropertyID:  c.PropertyID,
			CreatedAt:   c.CreatedAt,
			UnreadCount: m.unreadLocked(convID, userID),
		}
		if msgs := m.conversationMessagesLocked(convID); len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			body, at := last.Body, last.CreatedAt
			s.LastMessage, s.LastMessageAt = &body, &at
		}
		out = append(out, s)
	}
	// map order is random; the service orders by activity.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListMembers(_ context.Context, conversationIDs []uint) ([]services.MemberView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var out []services.MemberView
	for _, convID := range conversationIDs {
		ids := make([]uint, 0, len(m.members[convID]))
		for id := range m.members[convID] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			v := services.MemberView{ConversationID: convID, ID: id}
			if u, ok := m.users[id]; ok {
				v.Name = u.Name
				v.ProfileImageURL = u.ProfileImageURL
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Memory) UnreadCount(_ context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	var total int64
	for convID, members := range m.members {
		if _, ok := members[userID]; ok {
			total += m.unreadLocked(convID, userID)
		}
	}
	return total, nil
}

func (m *Memory) ListRecipients(_ context.Context, conversationID, senderID uint) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var out []models.User
	for id := range m.members[conversationID] {
		if id == senderID {
			continue
		}
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) RenameConversation(_ context.Context, conversationID uint, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	c, ok := m.conversations[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Name = &name
	return nil
}

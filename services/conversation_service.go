package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/metrics"
	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultNotifyTimeout = 10 * time.Second

// ConversationDirectory owns conversations, their fixed membership, messages and per-member
// read positions.
type ConversationDirectory struct {
	conversations ConversationStore
	users         UserStore
	properties    PropertyStore
	notifier      MessageNotifier
	log           *zap.Logger

	// NotifyTimeout bounds one notification fan-out.
	NotifyTimeout time.Duration
	// Now is the clock; tests replace it.
	Now func() time.Time

	pending sync.WaitGroup
}

func NewConversationDirectory(conversations ConversationStore, users UserStore, properties PropertyStore, notifier MessageNotifier, log *zap.Logger) *ConversationDirectory {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConversationDirectory{
		conversations: conversations,
		users:         users,
		properties:    properties,
		notifier:      notifier,
		log:           log,
		NotifyTimeout: defaultNotifyTimeout,
		Now:           time.Now,
	}
}

// now is truncated to the store's timestamp precision so that a value written and read back
// compares equal.
func (d *ConversationDirectory) now() time.Time {
	return d.Now().UTC().Truncate(time.Microsecond)
}

// FindOrCreateDirect returns the 2-member conversation between requester and recipient scoped to
// listingID, creating it when it does not exist yet. created reports whether it was created.
func (d *ConversationDirectory) FindOrCreateDirect(ctx context.Context, requesterID, recipientID uint, listingID *uint) (id uint, created bool, err error) {
	if recipientID == 0 {
		return 0, false, apperrors.InvalidRecipient("Invalid recipient.")
	}
	if recipientID == requesterID {
		return 0, false, apperrors.InvalidRecipient("You cannot message yourself.")
	}
	if err := d.requireUsers(ctx, []uint{requesterID, recipientID}); err != nil {
		return 0, false, err
	}
	if listingID != nil {
		if _, err := d.properties.GetProperty(ctx, *listingID); err != nil {
			return 0, false, notFoundOrInternal("Property", err)
		}
	}

	key := models.DirectKey(requesterID, recipientID, listingID)
	existing, err := d.conversations.FindDirectConversation(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A 2-member group for the same pair counts as their direct conversation.
		existing, err = d.conversations.FindPairConversation(ctx, requesterID, recipientID, listingID)
	}
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, apperrors.Internal("Server error", err)
	}

	conv := &models.Conversation{
		PropertyID: listingID,
		DirectKey:  &key,
		CreatedAt:  d.now(),
	}
	err = d.conversations.CreateConversation(ctx, conv, []uint{requesterID, recipientID})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the race to a concurrent creator; theirs is the conversation.
		existing, findErr := d.conversations.FindDirectConversation(ctx, key)
		if findErr != nil {
			return 0, false, apperrors.Internal("Server error", findErr)
		}
		return existing.ID, false, nil
	}
	if err != nil {
		return 0, false, apperrors.Internal("Server error", err)
	}

	metrics.ConversationsCreated.WithLabelValues("direct").Inc()
	d.log.Info("direct conversation created",
		zap.Uint("conversation_id", conv.ID),
		zap.Uint("requester_id", requesterID),
		zap.Uint("recipient_id", recipientID),
	)
	return conv.ID, true, nil
}

// CreateGroup always creates a new conversation for requester plus memberIDs.
func (d *ConversationDirectory) CreateGroup(ctx context.Context, requesterID uint, memberIDs []uint, name string) (uint, error) {
	members := uniqueIDs(append(append([]uint{}, memberIDs...), requesterID))
	if len(members) < 2 {
		return 0, apperrors.InsufficientMembers("Select at least one other person.")
	}
	if err := d.requireUsers(ctx, members); err != nil {
		return 0, err
	}

	conv := &models.Conversation{CreatedAt: d.now()}
	if name = strings.TrimSpace(name); name != "" {
		conv.Name = &name
	}
	if err := d.conversations.CreateConversation(ctx, conv, members); err != nil {
		return 0, apperrors.Internal("Server error", err)
	}

	metrics.ConversationsCreated.WithLabelValues("group").Inc()
	d.log.Info("group conversation created",
		zap.Uint("conversation_id", conv.ID),
		zap.Uint("requester_id", requesterID),
		zap.Int("members", len(members)),
	)
	return conv.ID, nil
}

// PostMessage appends a message from senderID. The sender's read position moves to the new
// message, and the other members are notified in the background.
func (d *ConversationDirectory) PostMessage(ctx context.Context, conversationID, senderID uint, body string) (uint, error) {
	if err := d.requireMember(ctx, conversationID, senderID); err != nil {
		return 0, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return 0, apperrors.EmptyBody("Message body is required.")
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}
	if err := d.conversations.AppendMessage(ctx, msg, d.now); err != nil {
		return 0, apperrors.Internal("Server error", err)
	}
	metrics.MessagesPosted.Inc()

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		d.notify(conversationID, senderID, body)
	}()

	return msg.ID, nil
}

// ListMessages returns the conversation oldest first and marks it read for requesterID.
func (d *ConversationDirectory) ListMessages(ctx context.Context, conversationID, requesterID uint) ([]MessageView, error) {
	if err := d.requireMember(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}
	msgs, err := d.conversations.ReadMessages(ctx, conversationID, requesterID, d.now)
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	if msgs == nil {
		msgs = []MessageView{}
	}
	return msgs, nil
}

// ListConversationsFor returns userID's conversations, most recently active first, each with
// the other members, the latest message and userID's unread count.
func (d *ConversationDirectory) ListConversationsFor(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	summaries, err := d.conversations.ListConversationSummaries(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	if len(summaries) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]uint, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	members, err := d.conversations.ListMembers(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	others := make(map[uint][]MemberView, len(summaries))
	for _, m := range members {
		if m.ID == userID {
			continue
		}
		others[m.ConversationID] = append(others[m.ConversationID], m)
	}

	for i := range summaries {
		summaries[i].Members = others[summaries[i].ID]
		if summaries[i].Members == nil {
			summaries[i].Members = []MemberView{}
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity().After(summaries[j].LastActivity())
	})
	return summaries, nil
}

// UnreadCount sums userID's unread counts across every conversation they belong to.
func (d *ConversationDirectory) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := d.conversations.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal("Server error", err)
	}
	return count, nil
}

func (d *ConversationDirectory) RenameConversation(ctx context.Context, conversationID, requesterID uint, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.Validation("Name is required.")
	}
	if err := d.requireMember(ctx, conversationID, requesterID); err != nil {
		return err
	}
	if err := d.conversations.RenameConversation(ctx, conversationID, name); err != nil {
		return apperrors.Internal("Server error", err)
	}
	return nil
}

// Wait blocks until every background notification has finished.
func (d *ConversationDirectory) Wait() {
	d.pending.Wait()
}

// notify never reports failure to the poster; it only logs.
func (d *ConversationDirectory) notify(conversationID, senderID uint, body string) {
	if d.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.NotifyTimeout)
	defer cancel()

	recipients, err := d.conversations.ListRecipients(ctx, conversationID, senderID)
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		d.log.Warn("loading notification recipients", zap.Uint("conversation_id", conversationID), zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}
	sender, err := d.users.GetUser(ctx, senderID)
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		d.log.Warn("loading notification sender", zap.Uint("sender_id", senderID), zap.Error(err))
		return
	}

	if err := d.notifier.NotifyNewMessage(ctx, sender, recipients, body); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		d.log.Warn("message notification failed",
			zap.Uint("conversation_id", conversationID),
			zap.String("body", utils.Truncate(body, 40)),
			zap.Error(err),
		)
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

func (d *ConversationDirectory) requireMember(ctx context.Context, conversationID, userID uint) error {
	ok, err := d.conversations.IsMember(ctx, conversationID, userID)
	if err != nil {
		return apperrors.Internal("Server error", err)
	}
	if !ok {
		return apperrors.AccessDenied("Access denied.")
	}
	return nil
}

func (d *ConversationDirectory) requireUsers(ctx context.Context, ids []uint) error {
	ids = uniqueIDs(ids)
	n, err := d.users.CountUsers(ctx, ids)
	if err != nil {
		return apperrors.Internal("Server error", err)
	}
	if n != int64(len(ids)) {
		return apperrors.NotFound("User", nil)
	}
	return nil
}

// uniqueIDs drops zero and repeated ids, keeping first occurrences.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func notFoundOrInternal(resource string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal("Server error", err)
}

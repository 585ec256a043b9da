package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/utils"
	"go.uber.org/zap"
)

const previewLimit = 140

// MessageNotifier e-mails the members of a conversation who opted in to e-mail updates.
type MessageNotifier struct {
	mailer  Mailer
	baseURL string
	log     *zap.Logger
}

func NewMessageNotifier(mailer Mailer, baseURL string, log *zap.Logger) *MessageNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageNotifier{mailer: mailer, baseURL: baseURL, log: log}
}

func (n *MessageNotifier) NotifyNewMessage(ctx context.Context, sender *models.User, recipients []models.User, body string) error {
	subject := fmt.Sprintf("New message from %s", sender.Name)
	preview := utils.Truncate(body, previewLimit)
	link := n.baseURL + "/messages"

	text := fmt.Sprintf("%s wrote: %s\n\nReply at %s", sender.Name, preview, link)
	htmlBody := fmt.Sprintf("<p><strong>%s</strong> wrote:</p><blockquote>%s</blockquote><p><a href=\"%s\">Open your messages</a></p>",
		html.EscapeString(sender.Name), html.EscapeString(preview), link)

	var errs []error
	for _, r := range recipients {
		if !r.EmailOptIn || r.Email == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := n.mailer.Send(ctx, r.Email, r.Name, subject, text, htmlBody); err != nil {
			n.log.Warn("message notification failed", zap.Uint("recipient_id", r.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("notify user %d: %w", r.ID, err))
		}
	}
	return errors.Join(errs...)
}

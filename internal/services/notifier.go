package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"remindbot/internal/models"
)

const (
	rateLimitedText = "I'm sorry, but you've been rate-limited. Maybe wait a bit and try again later."
	remindAtLayout  = time.RFC1123Z
)

// Notifier turns engine events into outbound messages. Errors are returned
// to the caller; the notifier never retries on its own.
type Notifier interface {
	NotifyCreated(ctx context.Context, request models.InboundMessage, remindAt time.Time) error
	NotifyRateLimited(ctx context.Context, request models.InboundMessage) error
	NotifyDue(ctx context.Context, reminder models.Reminder) error
}

type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error
}

type TelegramNotifier struct {
	sender MessageSender
}

func NewTelegramNotifier(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

func (n *TelegramNotifier) NotifyCreated(ctx context.Context, request models.InboundMessage, remindAt time.Time) error {
	text := fmt.Sprintf("Will do. I will remind you of this message at %s.", remindAt.UTC().Format(remindAtLayout))
	return n.sender.SendMessage(ctx, request.ChatID, text, request.MessageID)
}

func (n *TelegramNotifier) NotifyRateLimited(ctx context.Context, request models.InboundMessage) error {
	return n.sender.SendMessage(ctx, request.ChatID, rateLimitedText, request.MessageID)
}

// NotifyDue replies to the target message in its own chat and mentions the
// requester, so the reminder lands next to what it is about.
func (n *TelegramNotifier) NotifyDue(ctx context.Context, reminder models.Reminder) error {
	chatID, messageID, err := models.ParseTargetID(reminder.TargetID)
	if err != nil {
		return err
	}
	if _, err := strconv.ParseInt(reminder.RequesterID, 10, 64); err != nil {
		return fmt.Errorf("malformed requester id %q: %w", reminder.RequesterID, err)
	}

	text := fmt.Sprintf(`Hey <a href="tg://user?id=%s">there</a>! You asked me to remind you about this.`, reminder.RequesterID)
	return n.sender.SendMessage(ctx, chatID, text, messageID)
}

package bot

import (
	"strconv"
	"time"

	"remindbot/internal/models"
)

// ToInbound converts a Telegram update into an inbound message. Updates
// without a human-authored message (edits, channel posts, other bots) are
// dropped.
func ToInbound(update models.Update) (models.InboundMessage, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return models.InboundMessage{}, false
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}

	inbound := models.InboundMessage{
		ID:        models.TargetID(msg.Chat.Id, msg.MessageId),
		ChatID:    msg.Chat.Id,
		MessageID: msg.MessageId,
		AuthorID:  strconv.FormatInt(msg.From.Id, 10),
		Content:   content,
		CreatedAt: time.Unix(msg.Date, 0).UTC(),
	}
	if msg.ReplyToMessage != nil {
		inbound.ReplyToID = models.TargetID(msg.Chat.Id, msg.ReplyToMessage.MessageId)
	}

	return inbound, true
}

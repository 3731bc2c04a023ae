package bot

import (
	"testing"
	"time"

	"remindbot/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestToInbound(t *testing.T) {
	chat := models.Chat{Id: -100, Type: "supergroup"}
	human := &models.User{Id: 42, FirstName: "Ann"}

	tests := []struct {
		name   string
		update models.Update
		want   models.InboundMessage
		ok     bool
	}{
		{
			name: "reply",
			update: models.Update{UpdateId: 1, Message: &models.Message{
				MessageId: 8, Date: 1700000000, Text: "@bot in 2h", Chat: chat, From: human,
				ReplyToMessage: &models.Message{MessageId: 3, Chat: chat},
			}},
			want: models.InboundMessage{
				ID: "-100:8", ChatID: -100, MessageID: 8, AuthorID: "42", Content: "@bot in 2h",
				CreatedAt: time.Unix(1700000000, 0).UTC(), ReplyToID: "-100:3",
			},
			ok: true,
		},
		{
			name: "caption fallback",
			update: models.Update{UpdateId: 2, Message: &models.Message{
				MessageId: 9, Date: 1700000000, Caption: "@bot in 1d", Chat: chat, From: human,
			}},
			want: models.InboundMessage{
				ID: "-100:9", ChatID: -100, MessageID: 9, AuthorID: "42", Content: "@bot in 1d",
				CreatedAt: time.Unix(1700000000, 0).UTC(),
			},
			ok: true,
		},
		{name: "no message", update: models.Update{UpdateId: 3}},
		{name: "edited message", update: models.Update{UpdateId: 4, EditedMessage: &models.Message{MessageId: 1, Chat: chat, From: human}}},
		{name: "no author", update: models.Update{UpdateId: 5, Message: &models.Message{MessageId: 1, Chat: chat}}},
		{name: "bot author", update: models.Update{UpdateId: 6, Message: &models.Message{MessageId: 1, Chat: chat, From: &models.User{Id: 7, IsBot: true}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInbound(tt.update)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

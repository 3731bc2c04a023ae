package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InboundMessage is a transport-neutral view of a received message.
// ReplyToID is empty when the message does not reply to anything.
type InboundMessage struct {
	ID        string
	ChatID    int64
	MessageID int
	AuthorID  string
	Content   string
	CreatedAt time.Time
	ReplyToID string
}

func (m InboundMessage) IsReply() bool {
	return m.ReplyToID != ""
}

// TargetID identifies a Telegram message as "<chat_id>:<message_id>".
func TargetID(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

func ParseTargetID(id string) (chatID int64, messageID int, err error) {
	chat, msg, ok := strings.Cut(id, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed target id %q", id)
	}
	if chatID, err = strconv.ParseInt(chat, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed target chat in %q: %w", id, err)
	}
	if messageID, err = strconv.Atoi(msg); err != nil {
		return 0, 0, fmt.Errorf("malformed target message in %q: %w", id, err)
	}
	return chatID, messageID, nil
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

func ParseMessageType(s string) (MessageType, error) {
	switch t := MessageType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return MessageText, nil
	case MessageText, MessageImage, MessageFile:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMessageType, s)
}

type ChatMessage struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Message    string
	Type       MessageType
	Timestamp  time.Time
	IsRead     bool
}

func NewChatMessage(sender, receiver uuid.UUID, text string, typ MessageType, now time.Time) (*ChatMessage, []Event, error) {
	if sender == receiver {
		return nil, nil, ErrSelfMessage
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyMessage
	}
	t, err := ParseMessageType(string(typ))
	if err != nil {
		return nil, nil, err
	}
	m := &ChatMessage{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Message:    text,
		Type:       t,
		Timestamp:  now,
	}
	return m, []Event{MessageSent{
		MessageID:  m.ID,
		SenderID:   sender,
		ReceiverID: receiver,
		Type:       t,
		At:         now,
	}}, nil
}

// Between reports whether m belongs to the conversation of a and b.
func (m *ChatMessage) Between(a, b uuid.UUID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

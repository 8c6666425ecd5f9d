package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/domain"
)

type SendMessageCommand struct {
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Message    string
	Type       domain.MessageType
}

func (s *Service) SendMessage(ctx context.Context, cmd SendMessageCommand) (ChatMessageDto, error) {
	msg, events, err := domain.NewChatMessage(cmd.SenderID, cmd.ReceiverID, cmd.Message, cmd.Type, s.now())
	if err != nil {
		return ChatMessageDto{}, err
	}
	for _, id := range []uuid.UUID{cmd.SenderID, cmd.ReceiverID} {
		if _, err := s.gw.GetMember(ctx, id); err != nil {
			return ChatMessageDto{}, err
		}
	}

	sess := s.gw.Session()
	sess.AddMessage(msg, events...)
	if _, err := sess.SaveChanges(ctx); err != nil {
		return ChatMessageDto{}, err
	}
	return toChatMessageDto(msg), nil
}

// ListMessages returns the conversation between two users oldest first.
func (s *Service) ListMessages(ctx context.Context, userID, otherID uuid.UUID) ([]ChatMessageDto, error) {
	msgs, err := s.gw.ListMessages(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	return mapAll(msgs, toChatMessageDto), nil
}

// MarkConversationRead flags every message other sent to reader as read and
// returns how many changed.
func (s *Service) MarkConversationRead(ctx context.Context, reader, other uuid.UUID) (int, error) {
	if _, err := s.gw.GetMember(ctx, reader); err != nil {
		return 0, err
	}
	sess := s.gw.Session()
	sess.MarkRead(reader, other)
	return sess.SaveChanges(ctx)
}

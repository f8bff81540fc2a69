package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/repository"
)

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrNotChatParticipant = errors.New("not a participant of this chat")
	ErrInvalidContent     = errors.New("message content must not be empty")
	ErrSelfChat           = errors.New("cannot open a chat with yourself")
)

// MessageNotifier pushes freshly stored messages to connected users.
type MessageNotifier interface {
	Publish(userIDs []uuid.UUID, msg model.Message)
}

type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	notifier MessageNotifier
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, notifier MessageNotifier) *ChatService {
	return &ChatService{chatRepo: chatRepo, userRepo: userRepo, notifier: notifier}
}

// GetOrCreateChat returns the conversation between callerID and peerID.
func (s *ChatService) GetOrCreateChat(ctx context.Context, callerID, peerID uuid.UUID) (*model.Chat, error) {
	if callerID == peerID {
		return nil, ErrSelfChat
	}
	peer, err := s.userRepo.GetByID(ctx, peerID)
	if err != nil {
		return nil, fmt.Errorf("get peer: %w", err)
	}
	if peer == nil {
		return nil, ErrUserNotFound
	}

	chat, err := s.chatRepo.GetOrCreate(ctx, callerID, peerID)
	if err != nil {
		return nil, fmt.Errorf("get or create chat: %w", err)
	}
	return chat, nil
}

// Conversation opens (or creates) the chat with peerID and loads its history.
func (s *ChatService) Conversation(ctx context.Context, callerID, peerID uuid.UUID) (*model.Chat, []model.Message, error) {
	chat, err := s.GetOrCreateChat(ctx, callerID, peerID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.ListMessages(ctx, chat.ID, callerID)
	if err != nil {
		return nil, nil, err
	}
	return chat, msgs, nil
}

func (s *ChatService) AppendMessage(ctx context.Context, chatID, senderID uuid.UUID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidContent
	}

	chat, err := s.participantChat(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, chat, senderID, content, model.MessageKindText)
}

// PostOrderNotice records an order summary in the customer/farmer chat on
// behalf of the customer.
func (s *ChatService) PostOrderNotice(ctx context.Context, customerID, farmerID uuid.UUID, content string) (*model.Message, error) {
	chat, err := s.chatRepo.GetOrCreate(ctx, customerID, farmerID)
	if err != nil {
		return nil, fmt.Errorf("get or create chat: %w", err)
	}
	return s.store(ctx, chat, customerID, content, model.MessageKindOrder)
}

// ListMessages returns the history of chatID oldest first. Only participants
// may read it.
func (s *ChatService) ListMessages(ctx context.Context, chatID, callerID uuid.UUID) ([]model.Message, error) {
	if _, err := s.participantChat(ctx, chatID, callerID); err != nil {
		return nil, err
	}
	msgs, err := s.chatRepo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID uuid.UUID) ([]model.Chat, error) {
	chats, err := s.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

func (s *ChatService) participantChat(ctx context.Context, chatID, userID uuid.UUID) (*model.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotChatParticipant
	}
	return chat, nil
}

func (s *ChatService) store(ctx context.Context, chat *model.Chat, senderID uuid.UUID, content string, kind model.MessageKind) (*model.Message, error) {
	msg := &model.Message{ChatID: chat.ID, SenderID: senderID, Content: content, Kind: kind}
	if err := s.chatRepo.AppendMessage(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrChatMissing) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("append message: %w", err)
	}
	if s.notifier != nil {
		s.notifier.Publish(chat.Participants[:], *msg)
	}
	return msg, nil
}

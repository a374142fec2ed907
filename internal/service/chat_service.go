package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/model"
	"github.com/shinyyama/support-chat/internal/reqctx"
	"github.com/shinyyama/support-chat/internal/repository"
)

// TranscriptArchiver stores a copy of a closed conversation.
type TranscriptArchiver interface {
	Archive(ctx context.Context, cv *model.Conversation, msgs []model.Message) error
}

type ChatService interface {
	OpenConversation(ctx context.Context, customerUID, displayName string) (*model.Conversation, error)
	AdminInbox(ctx context.Context) ([]model.Conversation, error)
	GetConversation(ctx context.Context, id, requesterUID string, isAdmin bool) (*model.Conversation, error)
	ListMessages(ctx context.Context, id, requesterUID string, isAdmin bool) ([]model.Message, error)
	SendMessage(ctx context.Context, convID, senderUID string, sender model.SenderType, text string) (*model.Message, *model.Conversation, error)
	MarkConversationAsRead(ctx context.Context, convID, uid string, isAdmin bool) (*model.Conversation, error)
	CloseConversation(ctx context.Context, convID, adminUID string) (*model.Conversation, error)
}

type ChatOption func(*chatService)

// WithClock replaces time.Now; returned times are converted to UTC.
func WithClock(now func() time.Time) ChatOption {
	return func(s *chatService) { s.now = now }
}

func WithIDGenerator(newID func() string) ChatOption {
	return func(s *chatService) { s.newID = newID }
}

func WithArchiver(a TranscriptArchiver) ChatOption {
	return func(s *chatService) { s.archiver = a }
}

func WithNotifier(n NotificationService) ChatOption {
	return func(s *chatService) { s.notifier = n }
}

type chatService struct {
	repo     repository.ConversationRepository
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
	archiver TranscriptArchiver
	notifier NotificationService
}

func NewChatService(repo repository.ConversationRepository, log zerolog.Logger, opts ...ChatOption) ChatService {
	s := &chatService{
		repo:  repo,
		log:   log.With().Str("component", "chat").Logger(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *chatService) clock() time.Time {
	return s.now().UTC()
}

func (s *chatService) OpenConversation(ctx context.Context, customerUID, displayName string) (*model.Conversation, error) {
	if strings.TrimSpace(customerUID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	log := reqctx.Logger(ctx, s.log)

	cv, err := s.repo.FindOpenByCustomer(ctx, customerUID)
	if err == nil {
		cv, err = s.repo.RecountCustomerUnread(ctx, cv.ID)
		if err != nil {
			return nil, fmt.Errorf("recount unread: %w", err)
		}
		log.Info().Str("conversation_id", cv.ID).Int("unread", cv.UnreadForCustomer).Msg("reusing open conversation")
		return cv, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("find open conversation: %w", err)
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = customerUID
	}
	cv = model.NewConversation(s.newID(), customerUID, name, s.clock())
	if err := s.repo.Create(ctx, cv); err != nil {
		// Another request may have opened one first; the unique open slot decides.
		if winner, ferr := s.repo.FindOpenByCustomer(ctx, customerUID); ferr == nil {
			return winner, nil
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	log.Info().Str("conversation_id", cv.ID).Msg("conversation opened")
	return cv, nil
}

func (s *chatService) AdminInbox(ctx context.Context) ([]model.Conversation, error) {
	list, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open conversations: %w", err)
	}
	return list, nil
}

func (s *chatService) GetConversation(ctx context.Context, id, requesterUID string, isAdmin bool) (*model.Conversation, error) {
	return s.authorize(ctx, id, requesterUID, isAdmin)
}

func (s *chatService) ListMessages(ctx context.Context, id, requesterUID string, isAdmin bool) ([]model.Message, error) {
	if _, err := s.authorize(ctx, id, requesterUID, isAdmin); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (s *chatService) SendMessage(ctx context.Context, convID, senderUID string, sender model.SenderType, text string) (*model.Message, *model.Conversation, error) {
	if !sender.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown sender type", ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("%w: message text cannot be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > model.MessageMaxLength {
		return nil, nil, fmt.Errorf("%w: message text exceeds %d characters", ErrInvalidInput, model.MessageMaxLength)
	}
	cv, err := s.authorize(ctx, convID, senderUID, sender == model.SenderAdmin)
	if err != nil {
		return nil, nil, err
	}
	if !cv.IsOpen {
		return nil, nil, ErrConversationClosed
	}

	msg := &model.Message{
		ID:             s.newID(),
		ConversationID: convID,
		SenderType:     sender,
		SenderUserID:   senderUID,
		Text:           text,
		CreatedAt:      s.clock(),
	}
	updated, err := s.repo.AppendMessage(ctx, msg)
	if err != nil {
		return nil, nil, s.storageErr("append message", err)
	}
	reqctx.Logger(ctx, s.log).Info().
		Str("conversation_id", convID).
		Str("message_id", msg.ID).
		Uint64("seq", msg.Seq).
		Str("sender", string(sender)).
		Msg("message sent")
	return msg, updated, nil
}

func (s *chatService) MarkConversationAsRead(ctx context.Context, convID, uid string, isAdmin bool) (*model.Conversation, error) {
	if _, err := s.authorize(ctx, convID, uid, isAdmin); err != nil {
		return nil, err
	}
	reader := model.SenderCustomer
	if isAdmin {
		reader = model.SenderAdmin
	}
	cv, err := s.repo.ApplyRead(ctx, convID, model.ReadReceipt{Reader: reader, At: s.clock()})
	if err != nil {
		return nil, s.storageErr("mark read", err)
	}
	reqctx.Logger(ctx, s.log).Debug().Str("conversation_id", convID).Str("reader", string(reader)).Msg("conversation read")
	return cv, nil
}

func (s *chatService) CloseConversation(ctx context.Context, convID, adminUID string) (*model.Conversation, error) {
	cv, err := s.authorize(ctx, convID, adminUID, true)
	if err != nil {
		return nil, err
	}
	if !cv.IsOpen {
		return cv, nil
	}
	cv, err = s.repo.Close(ctx, convID, model.Closure{At: s.clock()})
	if err != nil {
		return nil, s.storageErr("close conversation", err)
	}
	log := reqctx.Logger(ctx, s.log)
	log.Info().Str("conversation_id", convID).Msg("conversation closed")

	if s.archiver != nil {
		if msgs, err := s.repo.ListMessages(ctx, convID); err != nil {
			log.Warn().Err(err).Str("conversation_id", convID).Msg("transcript not archived")
		} else if err := s.archiver.Archive(ctx, cv, msgs); err != nil {
			log.Warn().Err(err).Str("conversation_id", convID).Msg("transcript not archived")
		}
	}
	if s.notifier != nil {
		id := cv.ID
		s.notifier.Notify(ctx, cv.CustomerUserID, "Support conversation closed",
			"Your conversation with support has been closed", cv.LastMessagePreview, &id)
	}
	return cv, nil
}

// authorize loads the conversation and checks the requester may act on it.
func (s *chatService) authorize(ctx context.Context, id, uid string, isAdmin bool) (*model.Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	cv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if !cv.Accessible(uid, isAdmin) {
		reqctx.Logger(ctx, s.log).Warn().Str("conversation_id", id).Msg("conversation access denied")
		return nil, ErrForbidden
	}
	return cv, nil
}

func (s *chatService) storageErr(op string, err error) error {
	switch {
	case repository.IsNotFound(err):
		return ErrNotFound
	case errors.Is(err, repository.ErrConversationClosed):
		return ErrConversationClosed
	}
	return fmt.Errorf("%s: %w", op, err)
}

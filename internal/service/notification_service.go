package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/dto"
	"github.com/shinyyama/support-chat/internal/model"
	"github.com/shinyyama/support-chat/internal/reqctx"
	"github.com/shinyyama/support-chat/internal/repository"
)

// NotificationPublisher pushes a stored notification to the user's live connections.
type NotificationPublisher interface {
	NotificationCreated(userID string, n dto.Notification)
}

type NotificationService interface {
	Notify(ctx context.Context, userID, title, subtitle, message string, convID *string)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type notificationService struct {
	repo      repository.NotificationRepository
	publisher NotificationPublisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, publisher NotificationPublisher, log zerolog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		publisher: publisher,
		log:       log.With().Str("component", "notification").Logger(),
		now:       time.Now,
	}
}

// Notify is best-effort; failures are logged and never returned to the caller.
func (s *notificationService) Notify(ctx context.Context, userID, title, subtitle, message string, convID *string) {
	if userID == "" || title == "" {
		return
	}
	n := &model.Notification{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          model.Truncate(title, 200),
		Subtitle:       model.Truncate(subtitle, 200),
		Message:        model.Truncate(message, model.MessageMaxLength),
		ConversationID: convID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		reqctx.Logger(ctx, s.log).Warn().Err(err).Str("user_id", userID).Msg("notification not stored")
		return
	}
	if s.publisher != nil {
		s.publisher.NotificationCreated(userID, dto.NewNotification(n))
	}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if userID == "" {
		return nil, nil
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, nil
	}
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead succeeds for an already read notification and reports ErrNotFound
// only when the user has no such notification.
func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.repo.MarkRead(ctx, id, userID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.repo.FindForUser(ctx, id, userID); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, nil
	}
	return s.repo.MarkAllRead(ctx, userID, s.now().UTC())
}

func (s *notificationService) Delete(ctx context.Context, userID, id string) error {
	n, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

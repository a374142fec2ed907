package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shinyyama/support-chat/internal/model"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	Create(ctx context.Context, cv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindOpenByCustomer(ctx context.Context, customerUID string) (*model.Conversation, error)
	ListOpen(ctx context.Context) ([]model.Conversation, error)
	RecountCustomerUnread(ctx context.Context, id string) (*model.Conversation, error)
	AppendMessage(ctx context.Context, msg *model.Message) (*model.Conversation, error)
	ApplyRead(ctx context.Context, id string, receipt model.ReadReceipt) (*model.Conversation, error)
	Close(ctx context.Context, id string, closure model.Closure) (*model.Conversation, error)
	ListMessages(ctx context.Context, convID string) ([]model.Message, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, cv *model.Conversation) error {
	return r.db.WithContext(ctx).Create(cv).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	return findConversation(r.db.WithContext(ctx), id)
}

func (r *conversationRepository) FindOpenByCustomer(ctx context.Context, customerUID string) (*model.Conversation, error) {
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Where("customer_user_id = ? AND is_open = ?", customerUID, true).
		First(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) ListOpen(ctx context.Context) ([]model.Conversation, error) {
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("is_open = ?", true).
		Order("last_message_at DESC").
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RecountCustomerUnread rebuilds the customer's counter from the message log
// using the customer's read watermark. The count and the write happen in one
// statement so a concurrent append is never overwritten. Conversations without
// a watermark are left unchanged.
func (r *conversationRepository) RecountCustomerUnread(ctx context.Context, id string) (*model.Conversation, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Conversation{}).
		Where("id = ? AND last_customer_read_at IS NOT NULL", id).
		Update("unread_for_customer_count", gorm.Expr(
			"(SELECT COUNT(*) FROM messages WHERE messages.conversation_id = conversations.id"+
				" AND messages.sender_type = ? AND messages.created_at > conversations.last_customer_read_at)",
			string(model.SenderAdmin),
		)).Error; err != nil {
		return nil, fmt.Errorf("recount unread: %w", err)
	}
	return findConversation(db, id)
}

// AppendMessage stores msg and folds it into its conversation in one
// transaction. The conversation row is updated first so concurrent appends
// serialize on it; msg.Seq is taken from the incremented counter.
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.Message) (*model.Conversation, error) {
	var out *model.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		effect := model.NewMessageEffect(msg)
		res := tx.Model(&model.Conversation{}).
			Where("id = ? AND is_open = ?", msg.ConversationID, true).
			Updates(effect.Columns())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := findConversation(tx, msg.ConversationID); err != nil {
				return err
			}
			return ErrConversationClosed
		}
		cv, err := findConversation(tx, msg.ConversationID)
		if err != nil {
			return err
		}
		msg.Seq = cv.MessageSeq
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		out = cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepository) ApplyRead(ctx context.Context, id string, receipt model.ReadReceipt) (*model.Conversation, error) {
	return r.update(ctx, id, receipt.Columns())
}

func (r *conversationRepository) Close(ctx context.Context, id string, closure model.Closure) (*model.Conversation, error) {
	return r.update(ctx, id, closure.Columns())
}

func (r *conversationRepository) update(ctx context.Context, id string, cols map[string]interface{}) (*model.Conversation, error) {
	var out *model.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Conversation{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		cv, err := findConversation(tx, id)
		if err != nil {
			return err
		}
		out = cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepository) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func findConversation(db *gorm.DB, id string) (*model.Conversation, error) {
	var cv model.Conversation
	if err := db.Where("id = ?", id).First(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package implementation

import (
	"context"
	"errors"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/mapper"
	"clinic-chat-be/internal/model"
	"clinic-chat-be/internal/repository/contract"
	"clinic-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// AppendNext locks the session row so concurrent appenders, in this process or
// any other instance, take turns reading MAX(seq). The unique index on
// (chat_session_id, seq) backs this up. Runs as a savepoint when the caller
// already holds a transaction.
func (r *ChatMessageRepositoryImpl) AppendNext(ctx context.Context, message *entity.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.ChatSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", message.ChatSessionId).
			First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrNotFound
			}
			return err
		}
		if session.Status == constant.SessionStatusResolved {
			return apperror.ErrSessionClosed
		}

		var maxSeq int64
		err = tx.Model(&model.ChatMessage{}).
			Where("chat_session_id = ?", message.ChatSessionId).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error
		if err != nil {
			return err
		}

		if message.Id == uuid.Nil {
			message.Id = uuid.New()
		}
		if message.CreatedAt.IsZero() {
			message.CreatedAt = time.Now()
		}
		message.Seq = maxSeq + 1

		m := r.mapper.ChatMessageToModel(message)
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		err = tx.Model(&model.ChatSession{}).
			Where("id = ?", message.ChatSessionId).
			Update("updated_at", m.CreatedAt).Error
		if err != nil {
			return err
		}

		*message = *r.mapper.ChatMessageToEntity(m)
		return nil
	})
}

func (r *ChatMessageRepositoryImpl) FindBySession(ctx context.Context, sessionId uuid.UUID, afterSeq int64) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.SeqAfter{Seq: afterSeq},
		specification.OrderBy{Field: "seq"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatMessagesToEntities(models), nil
}

func (r *ChatMessageRepositoryImpl) FindLatest(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "seq", Desc: true},
		specification.Limit{N: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	// Reverse to ascending seq
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return r.mapper.ChatMessagesToEntities(models), nil
}

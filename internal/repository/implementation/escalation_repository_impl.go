package implementation

import (
	"context"
	"errors"
	"fmt"
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
)

type EscalationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EscalationMapper
}

func NewEscalationRepository(db *gorm.DB) contract.EscalationRepository {
	return &EscalationRepositoryImpl{
		db:     db,
		mapper: mapper.NewEscalationMapper(),
	}
}

func (r *EscalationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *EscalationRepositoryImpl) Create(ctx context.Context, escalation *entity.Escalation) error {
	m := r.mapper.ToModel(escalation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		// idx_escalations_active_session
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("chat session %s already has an active escalation: %w", escalation.ChatSessionId, apperror.ErrInvalidTransition)
		}
		return err
	}
	*escalation = *r.mapper.ToEntity(m)
	return nil
}

func (r *EscalationRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Escalation, error) {
	var m model.Escalation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *EscalationRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Escalation, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *EscalationRepositoryImpl) FindActiveBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Escalation, error) {
	return r.findOne(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.NotResolved{},
	)
}

func (r *EscalationRepositoryImpl) FindAll(ctx context.Context, filter entity.EscalationFilter) ([]*entity.Escalation, error) {
	var models []*model.Escalation
	specs := append(specification.FromEscalationFilter(filter), specification.OrderByPriority{})
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *EscalationRepositoryImpl) Count(ctx context.Context, filter entity.EscalationFilter) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Escalation{}), specification.FromEscalationFilter(filter)...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EscalationRepositoryImpl) ClaimUnassigned(ctx context.Context, id uuid.UUID, staffId uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Escalation{}).
		Where("id = ? AND assigned_staff_id IS NULL AND status = ?", id, constant.EscalationStatusOpen).
		Updates(map[string]interface{}{
			"assigned_staff_id": staffId,
			"status":            constant.EscalationStatusInProgress,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *EscalationRepositoryImpl) MarkResolved(ctx context.Context, id uuid.UUID, staffId uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Escalation{}).
		Where("id = ?", id).
		Where("status IN ?", []string{constant.EscalationStatusOpen, constant.EscalationStatusInProgress}).
		Updates(map[string]interface{}{
			"status":      constant.EscalationStatusResolved,
			"resolved_at": at,
			"resolved_by": staffId,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

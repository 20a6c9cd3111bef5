package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type UserProgressRepo interface {
	Create(ctx context.Context, tx *gorm.DB, progress *types.UserProgress) (*types.UserProgress, error)
	GetByUserAndPath(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pathID uuid.UUID) (*types.UserProgress, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserProgress, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, updates map[string]interface{}) error
}

type userProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProgressRepo(db *gorm.DB, baseLog *logger.Logger) UserProgressRepo {
	return &userProgressRepo{db: db, log: baseLog.With("repo", "UserProgressRepo")}
}

func (r *userProgressRepo) Create(ctx context.Context, tx *gorm.DB, progress *types.UserProgress) (*types.UserProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if progress == nil {
		return nil, nil
	}
	if progress.ID == uuid.Nil {
		progress.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}

func (r *userProgressRepo) GetByUserAndPath(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pathID uuid.UUID) (*types.UserProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var progress types.UserProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND path_id = ?", userID, pathID).
		Limit(1).
		Find(&progress).Error
	if err != nil {
		return nil, err
	}
	if progress.ID == uuid.Nil {
		return nil, nil
	}
	return &progress, nil
}

func (r *userProgressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.UserProgress
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userProgressRepo) UpdateFields(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if progressID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.UserProgress{}).
		Where("id = ?", progressID).
		Updates(updates).Error
}

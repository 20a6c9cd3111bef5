package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type LevelProgressRepo interface {
	// Upsert overwrites the score for (progress_id, level_number); submitting
	// a level again replaces the previous score rather than accumulating.
	Upsert(ctx context.Context, tx *gorm.DB, lp *types.LevelProgress) (*types.LevelProgress, error)
	GetByProgressID(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) ([]*types.LevelProgress, error)
	GetByProgressAndLevel(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, levelNumber int) (*types.LevelProgress, error)
	CountByProgressID(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) (int64, error)
}

type levelProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLevelProgressRepo(db *gorm.DB, baseLog *logger.Logger) LevelProgressRepo {
	return &levelProgressRepo{db: db, log: baseLog.With("repo", "LevelProgressRepo")}
}

func (r *levelProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, lp *types.LevelProgress) (*types.LevelProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if lp == nil {
		return nil, nil
	}
	if lp.ID == uuid.Nil {
		lp.ID = uuid.New()
	}
	lp.IsComplete = true
	lp.UpdatedAt = time.Now()
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "progress_id"}, {Name: "level_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"correct_answers", "total_questions", "is_complete", "updated_at"}),
		}).
		Create(lp).Error; err != nil {
		return nil, err
	}
	return r.GetByProgressAndLevel(ctx, transaction, lp.ProgressID, lp.LevelNumber)
}

func (r *levelProgressRepo) GetByProgressID(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) ([]*types.LevelProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LevelProgress
	if err := transaction.WithContext(ctx).
		Where("progress_id = ?", progressID).
		Order("level_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *levelProgressRepo) GetByProgressAndLevel(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, levelNumber int) (*types.LevelProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lp types.LevelProgress
	err := transaction.WithContext(ctx).
		Where("progress_id = ? AND level_number = ?", progressID, levelNumber).
		Limit(1).
		Find(&lp).Error
	if err != nil {
		return nil, err
	}
	if lp.ID == uuid.Nil {
		return nil, nil
	}
	return &lp, nil
}

func (r *levelProgressRepo) CountByProgressID(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.LevelProgress{}).
		Where("progress_id = ?", progressID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

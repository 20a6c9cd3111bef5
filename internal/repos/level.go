package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type LevelRepo interface {
	// CreateIgnoreConflict inserts the level, treating an existing
	// (path_id, level_number) as a no-op, then returns the surviving row.
	// This is what makes a worker retry safe.
	CreateIgnoreConflict(ctx context.Context, tx *gorm.DB, level *types.Level) (*types.Level, error)
	GetByPathAndNumber(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, levelNumber int) (*types.Level, error)
	GetByPathIDs(ctx context.Context, tx *gorm.DB, pathIDs []uuid.UUID) ([]*types.Level, error)
	CountByPathID(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) (int64, error)
}

type levelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLevelRepo(db *gorm.DB, baseLog *logger.Logger) LevelRepo {
	return &levelRepo{db: db, log: baseLog.With("repo", "LevelRepo")}
}

func (r *levelRepo) CreateIgnoreConflict(ctx context.Context, tx *gorm.DB, level *types.Level) (*types.Level, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if level == nil {
		return nil, nil
	}
	if level.ID == uuid.Nil {
		level.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path_id"}, {Name: "level_number"}},
			DoNothing: true,
		}).
		Create(level).Error; err != nil {
		return nil, err
	}
	// On conflict the generated ID is not the stored one; re-fetch so callers
	// always hold the surviving row.
	return r.GetByPathAndNumber(ctx, transaction, level.PathID, level.LevelNumber)
}

func (r *levelRepo) GetByPathAndNumber(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, levelNumber int) (*types.Level, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var level types.Level
	err := transaction.WithContext(ctx).
		Where("path_id = ? AND level_number = ?", pathID, levelNumber).
		Limit(1).
		Find(&level).Error
	if err != nil {
		return nil, err
	}
	if level.ID == uuid.Nil {
		return nil, nil
	}
	return &level, nil
}

func (r *levelRepo) GetByPathIDs(ctx context.Context, tx *gorm.DB, pathIDs []uuid.UUID) ([]*types.Level, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Level
	if len(pathIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("path_id IN ?", pathIDs).
		Order("path_id, level_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *levelRepo) CountByPathID(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Level{}).
		Where("path_id = ?", pathID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

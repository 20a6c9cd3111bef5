package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type ContentItemRepo interface {
	// CreateIgnoreConflict bulk-inserts items, skipping any row whose
	// (level_id, item_index) already exists.
	CreateIgnoreConflict(ctx context.Context, tx *gorm.DB, items []*types.ContentItem) error
	GetByLevelIDs(ctx context.Context, tx *gorm.DB, levelIDs []uuid.UUID) ([]*types.ContentItem, error)
	CountByLevelID(ctx context.Context, tx *gorm.DB, levelID uuid.UUID) (int64, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

func (r *contentItemRepo) CreateIgnoreConflict(ctx context.Context, tx *gorm.DB, items []*types.ContentItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if item != nil && item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "level_id"}, {Name: "item_index"}},
			DoNothing: true,
		}).
		Create(&items).Error
}

func (r *contentItemRepo) GetByLevelIDs(ctx context.Context, tx *gorm.DB, levelIDs []uuid.UUID) ([]*types.ContentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentItem
	if len(levelIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("level_id IN ?", levelIDs).
		Order("level_id, item_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentItemRepo) CountByLevelID(ctx context.Context, tx *gorm.DB, levelID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContentItem{}).
		Where("level_id = ?", levelID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

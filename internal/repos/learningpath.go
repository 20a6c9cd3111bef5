package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type LearningPathRepo interface {
	Create(ctx context.Context, tx *gorm.DB, paths []*types.LearningPath) ([]*types.LearningPath, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, pathIDs []uuid.UUID) ([]*types.LearningPath, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.LearningPath, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, creatorWallet string) ([]*types.LearningPath, error)
	GetWithEmbeddings(ctx context.Context, tx *gorm.DB) ([]*types.LearningPath, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) error
}

type learningPathRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningPathRepo(db *gorm.DB, baseLog *logger.Logger) LearningPathRepo {
	return &learningPathRepo{db: db, log: baseLog.With("repo", "LearningPathRepo")}
}

func (r *learningPathRepo) Create(ctx context.Context, tx *gorm.DB, paths []*types.LearningPath) ([]*types.LearningPath, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(paths) == 0 {
		return []*types.LearningPath{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&paths).Error; err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *learningPathRepo) GetByIDs(ctx context.Context, tx *gorm.DB, pathIDs []uuid.UUID) ([]*types.LearningPath, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LearningPath
	if len(pathIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", pathIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *learningPathRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.LearningPath, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LearningPath
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *learningPathRepo) GetByCreator(ctx context.Context, tx *gorm.DB, creatorWallet string) ([]*types.LearningPath, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LearningPath
	if err := transaction.WithContext(ctx).
		Where("creator_wallet = ?", creatorWallet).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetWithEmbeddings returns only paths that have a stored title embedding;
// the duplicate detector scores them in-process.
func (r *learningPathRepo) GetWithEmbeddings(ctx context.Context, tx *gorm.DB) ([]*types.LearningPath, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LearningPath
	if err := transaction.WithContext(ctx).
		Where("title_embedding IS NOT NULL").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *learningPathRepo) UpdateFields(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if pathID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.LearningPath{}).
		Where("id = ?", pathID).
		Updates(updates).Error
}

func (r *learningPathRepo) DeleteByID(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if pathID == uuid.Nil {
		return nil
	}
	r.log.Warn("Deleting learning path and all cascaded content", "path_id", pathID)
	return transaction.WithContext(ctx).
		Where("id = ?", pathID).
		Delete(&types.LearningPath{}).Error
}

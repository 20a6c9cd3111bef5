package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type UserNFTRepo interface {
	Create(ctx context.Context, tx *gorm.DB, nft *types.UserNFT) (*types.UserNFT, error)
	GetByUserAndPath(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pathID uuid.UUID) (*types.UserNFT, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserNFT, error)
}

type userNFTRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserNFTRepo(db *gorm.DB, baseLog *logger.Logger) UserNFTRepo {
	return &userNFTRepo{db: db, log: baseLog.With("repo", "UserNFTRepo")}
}

func (r *userNFTRepo) Create(ctx context.Context, tx *gorm.DB, nft *types.UserNFT) (*types.UserNFT, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if nft == nil {
		return nil, nil
	}
	if nft.ID == uuid.Nil {
		nft.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(nft).Error; err != nil {
		return nil, err
	}
	return nft, nil
}

func (r *userNFTRepo) GetByUserAndPath(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pathID uuid.UUID) (*types.UserNFT, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var nft types.UserNFT
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND path_id = ?", userID, pathID).
		Limit(1).
		Find(&nft).Error
	if err != nil {
		return nil, err
	}
	if nft.ID == uuid.Nil {
		return nil, nil
	}
	return &nft, nil
}

func (r *userNFTRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserNFT, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.UserNFT
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("minted_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type UserRepo interface {
	// Upsert creates or refreshes the user row keyed by wallet address.
	// Callers must pass an already-normalized (lower-cased) wallet.
	Upsert(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
	GetByWallet(ctx context.Context, tx *gorm.DB, walletAddress string) (*types.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Upsert(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if user == nil {
		return nil, nil
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	// An upsert only fills blanks; a re-registration with an empty name or
	// country never erases what the user already provided.
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "wallet_address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"name":       gorm.Expr("COALESCE(NULLIF(users.name, ''), EXCLUDED.name)"),
				"country":    gorm.Expr("COALESCE(NULLIF(users.country, ''), EXCLUDED.country)"),
				"updated_at": gorm.Expr("now()"),
			}),
		}).
		Create(user).Error; err != nil {
		return nil, err
	}
	return r.GetByWallet(ctx, transaction, user.WalletAddress)
}

func (r *userRepo) GetByWallet(ctx context.Context, tx *gorm.DB, walletAddress string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var user types.User
	err := transaction.WithContext(ctx).
		Where("wallet_address = ?", walletAddress).
		Limit(1).
		Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == uuid.Nil {
		return nil, nil
	}
	return &user, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

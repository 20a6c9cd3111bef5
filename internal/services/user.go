package services

import (
	"context"
	"errors"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/types"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

var ErrInvalidWallet = errors.New("invalid wallet address")

type UserService interface {
	// Upsert registers or refreshes a user keyed by wallet address. The
	// wallet is normalized here so every lower layer sees one casing.
	Upsert(ctx context.Context, walletAddress, name, country string) (*types.User, error)
	GetByWallet(ctx context.Context, walletAddress string) (*types.User, error)
}

type userService struct {
	userRepo repos.UserRepo
	log      *logger.Logger
}

func NewUserService(userRepo repos.UserRepo, baseLog *logger.Logger) UserService {
	return &userService{userRepo: userRepo, log: baseLog.With("service", "UserService")}
}

func (s *userService) Upsert(ctx context.Context, walletAddress, name, country string) (*types.User, error) {
	wallet := utils.NormalizeWallet(walletAddress)
	if !utils.IsWalletAddress(wallet) {
		return nil, ErrInvalidWallet
	}
	user, err := s.userRepo.Upsert(ctx, nil, &types.User{
		WalletAddress: wallet,
		Name:          name,
		Country:       country,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("User upserted", "wallet", wallet)
	return user, nil
}

func (s *userService) GetByWallet(ctx context.Context, walletAddress string) (*types.User, error) {
	wallet := utils.NormalizeWallet(walletAddress)
	if !utils.IsWalletAddress(wallet) {
		return nil, ErrInvalidWallet
	}
	user, err := s.userRepo.GetByWallet(ctx, nil, wallet)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

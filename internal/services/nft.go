package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

// CertificateRecord joins a minted certificate with its path title for the
// wallet listing.
type CertificateRecord struct {
	types.UserNFT
	PathTitle string `json:"path_title"`
}

type NFTService interface {
	ListByWallet(ctx context.Context, walletAddress string) ([]*CertificateRecord, error)
}

type nftService struct {
	userRepo repos.UserRepo
	pathRepo repos.LearningPathRepo
	nftRepo  repos.UserNFTRepo
	log      *logger.Logger
}

func NewNFTService(userRepo repos.UserRepo, pathRepo repos.LearningPathRepo, nftRepo repos.UserNFTRepo, baseLog *logger.Logger) NFTService {
	return &nftService{
		userRepo: userRepo,
		pathRepo: pathRepo,
		nftRepo:  nftRepo,
		log:      baseLog.With("service", "NFTService"),
	}
}

func (s *nftService) ListByWallet(ctx context.Context, walletAddress string) ([]*CertificateRecord, error) {
	user, err := s.userRepo.GetByWallet(ctx, nil, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	nfts, err := s.nftRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		return nil, err
	}
	if len(nfts) == 0 {
		return []*CertificateRecord{}, nil
	}

	pathIDs := make([]uuid.UUID, 0, len(nfts))
	for _, n := range nfts {
		pathIDs = append(pathIDs, n.PathID)
	}
	paths, err := s.pathRepo.GetByIDs(ctx, nil, pathIDs)
	if err != nil {
		return nil, err
	}
	titles := make(map[uuid.UUID]string, len(paths))
	for _, p := range paths {
		titles[p.ID] = p.Title
	}

	records := make([]*CertificateRecord, 0, len(nfts))
	for _, n := range nfts {
		records = append(records, &CertificateRecord{UserNFT: *n, PathTitle: titles[n.PathID]})
	}
	return records, nil
}

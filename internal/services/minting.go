package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/types"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

// Eligibility failures the handler maps onto distinct status codes.
var (
	ErrMintingDisabled = errors.New("certificate minting is disabled")
	ErrPathNotFound    = errors.New("learning path not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotComplete     = errors.New("path is not complete")
	ErrAlreadyMinted   = errors.New("certificate already minted")
)

// Stage markers wrapped around downstream failures so the caller can report
// where a mint attempt died without parsing error strings.
var (
	ErrArtStage         = errors.New("certificate art generation failed")
	ErrPinImageStage    = errors.New("pinning certificate image failed")
	ErrPinMetadataStage = errors.New("pinning certificate metadata failed")
	ErrMintStage        = errors.New("mint transaction failed")
	ErrRecordStage      = errors.New("recording certificate failed")
	ErrSetURIStage      = errors.New("setting token uri failed")
)

// MintResult is the successful outcome of CompleteAndMint.
type MintResult struct {
	TokenID         int64  `json:"token_id"`
	ContractAddress string `json:"nft_contract_address"`
	TxHash          string `json:"tx_hash"`
	ExplorerURL     string `json:"explorer_url,omitempty"`
	MetadataURL     string `json:"metadata_url"`
	ImageURL        string `json:"image_gateway_url"`
}

// MintingService turns a completed path into an on-chain certificate:
// artwork, IPFS pins, the mint transaction, the local record, and the
// token uri pointing at the pinned metadata.
type MintingService interface {
	CompleteAndMint(ctx context.Context, pathID uuid.UUID, walletAddress string) (*MintResult, error)
}

type mintingService struct {
	chain        ChainService
	ipfs         IPFSService
	certificates CertificateService
	userRepo     repos.UserRepo
	pathRepo     repos.LearningPathRepo
	progressRepo repos.UserProgressRepo
	nftRepo      repos.UserNFTRepo
	enabled      bool
	log          *logger.Logger
}

func NewMintingService(
	chain ChainService,
	ipfs IPFSService,
	certificates CertificateService,
	userRepo repos.UserRepo,
	pathRepo repos.LearningPathRepo,
	progressRepo repos.UserProgressRepo,
	nftRepo repos.UserNFTRepo,
	baseLog *logger.Logger,
) MintingService {
	log := baseLog.With("service", "MintingService")
	return &mintingService{
		chain:        chain,
		ipfs:         ipfs,
		certificates: certificates,
		userRepo:     userRepo,
		pathRepo:     pathRepo,
		progressRepo: progressRepo,
		nftRepo:      nftRepo,
		enabled:      utils.GetEnvAsBool("NFT_MINTING_ENABLED", true, log),
		log:          log,
	}
}

func (s *mintingService) CompleteAndMint(ctx context.Context, pathID uuid.UUID, walletAddress string) (*MintResult, error) {
	if !s.enabled || s.chain == nil || s.ipfs == nil {
		return nil, ErrMintingDisabled
	}
	log := s.log.With("pathID", pathID, "wallet", walletAddress)

	paths, err := s.pathRepo.GetByIDs(ctx, nil, []uuid.UUID{pathID})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrPathNotFound
	}
	path := paths[0]

	user, err := s.userRepo.GetByWallet(ctx, nil, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	progress, err := s.progressRepo.GetByUserAndPath(ctx, nil, user.ID, pathID)
	if err != nil {
		return nil, err
	}
	if progress == nil || !progress.IsComplete {
		return nil, ErrNotComplete
	}

	existing, err := s.nftRepo.GetByUserAndPath(ctx, nil, user.ID, pathID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMinted
	}
	// The local table can lag the chain (a crash between mint and record);
	// the contract is the authority on double mints.
	minted, err := s.chain.HasUserMinted(ctx, walletAddress, pathID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintStage, err)
	}
	if minted {
		return nil, ErrAlreadyMinted
	}

	filename, imageData, err := s.certificates.EnsureImage(ctx, pathID, path.Title, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtStage, err)
	}

	imageCID, err := s.ipfs.PinFile(ctx, filename, imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPinImageStage, err)
	}
	imageURL := s.ipfs.GatewayURL(imageCID)

	metadata := map[string]any{
		"name":        "KODO Certificate: " + path.Title,
		"description": fmt.Sprintf("Certificate of completion for the learning path %q on KODO.", path.Title),
		"image":       imageURL,
		"attributes": []map[string]any{
			{"trait_type": "Platform", "value": "KODO"},
			{"trait_type": "Recipient", "value": walletAddress},
		},
	}
	metadataCID, err := s.ipfs.PinJSON(ctx, "metadata_"+pathID.String(), metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPinMetadataStage, err)
	}
	metadataURL := s.ipfs.GatewayURL(metadataCID)

	tokenID, txHash, err := s.chain.MintCertificate(ctx, walletAddress, pathID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintStage, err)
	}
	log.Info("Certificate minted", "tokenID", tokenID, "tx", txHash)

	nft := &types.UserNFT{
		UserID:          user.ID,
		PathID:          pathID,
		TokenID:         tokenID,
		ContractAddress: s.chain.ContractAddress(),
		MetadataURL:     metadataURL,
		ImageURL:        imageURL,
		MintedAt:        time.Now(),
	}
	if _, err := s.nftRepo.Create(ctx, nil, nft); err != nil {
		// The token exists on chain; surface the inconsistency loudly rather
		// than letting the user re-mint.
		log.Error("Mint succeeded but recording failed", "tokenID", tokenID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRecordStage, err)
	}

	if _, err := s.chain.SetTokenURI(ctx, tokenID, metadataURL); err != nil {
		log.Error("Failed to set token uri", "tokenID", tokenID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSetURIStage, err)
	}

	return &MintResult{
		TokenID:         tokenID,
		ContractAddress: s.chain.ContractAddress(),
		TxHash:          txHash,
		ExplorerURL:     s.chain.ExplorerTxURL(txHash),
		MetadataURL:     metadataURL,
		ImageURL:        imageURL,
	}, nil
}

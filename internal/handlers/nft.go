package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/services"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

type NFTHandler struct {
	minting services.MintingService
	nfts    services.NFTService
	log     *logger.Logger
}

func NewNFTHandler(minting services.MintingService, nfts services.NFTService, baseLog *logger.Logger) *NFTHandler {
	return &NFTHandler{minting: minting, nfts: nfts, log: baseLog.With("handler", "NFTHandler")}
}

// wallet_address is accepted as an alias for user_wallet.
type completePathRequest struct {
	UserWallet    string `json:"user_wallet"`
	WalletAddress string `json:"wallet_address"`
}

// CompletePath mints the certificate for a finished path. Eligibility
// failures map to precise status codes so the client can explain them.
func (h *NFTHandler) CompletePath(c *gin.Context) {
	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid path id")
		return
	}
	var req completePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "user_wallet is required")
		return
	}
	rawWallet := req.UserWallet
	if rawWallet == "" {
		rawWallet = req.WalletAddress
	}
	if rawWallet == "" {
		respondError(c, http.StatusBadRequest, "user_wallet is required")
		return
	}
	wallet := utils.NormalizeWallet(rawWallet)
	if !utils.IsWalletAddress(wallet) {
		respondError(c, http.StatusBadRequest, "invalid wallet address")
		return
	}

	result, err := h.minting.CompleteAndMint(c.Request.Context(), pathID, wallet)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMintingDisabled):
			respondError(c, http.StatusForbidden, "certificate minting is disabled")
		case errors.Is(err, services.ErrPathNotFound):
			respondError(c, http.StatusNotFound, "path not found")
		case errors.Is(err, services.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrNotComplete):
			respondError(c, http.StatusBadRequest, "path is not complete")
		case errors.Is(err, services.ErrAlreadyMinted):
			respondError(c, http.StatusConflict, "certificate already minted")
		default:
			h.log.Error("Mint attempt failed", "pathID", pathID, "error", err)
			respondErrorDetail(c, http.StatusInternalServerError, "minting failed", mintStageDetail(err))
		}
		return
	}
	c.JSON(http.StatusOK, struct {
		Message string `json:"message"`
		*services.MintResult
	}{"Certificate minted and metadata set successfully", result})
}

// mintStageDetail names the stage that failed without exposing transport
// or chain internals.
func mintStageDetail(err error) string {
	switch {
	case errors.Is(err, services.ErrArtStage):
		return "certificate artwork could not be generated"
	case errors.Is(err, services.ErrPinImageStage):
		return "certificate image could not be pinned"
	case errors.Is(err, services.ErrPinMetadataStage):
		return "certificate metadata could not be pinned"
	case errors.Is(err, services.ErrMintStage):
		return "mint transaction failed"
	case errors.Is(err, services.ErrRecordStage):
		return "certificate was minted but could not be recorded; contact support"
	case errors.Is(err, services.ErrSetURIStage):
		return "certificate was minted but its metadata link could not be set; contact support"
	default:
		return "unexpected failure"
	}
}

func (h *NFTHandler) ListByWallet(c *gin.Context) {
	wallet := utils.NormalizeWallet(c.Param("wallet"))
	if !utils.IsWalletAddress(wallet) {
		respondError(c, http.StatusBadRequest, "invalid wallet address")
		return
	}
	records, err := h.nfts.ListByWallet(c.Request.Context(), wallet)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("Certificate listing failed", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to load certificates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"nfts": records})
}

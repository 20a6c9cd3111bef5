package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/services"
)

type stubMinting struct {
	result *services.MintResult
	err    error
	wallet string
	pathID uuid.UUID
}

func (s *stubMinting) CompleteAndMint(ctx context.Context, pathID uuid.UUID, walletAddress string) (*services.MintResult, error) {
	s.pathID = pathID
	s.wallet = walletAddress
	return s.result, s.err
}

func newNFTTestRouter(t *testing.T, minting *stubMinting) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewNFTHandler(minting, nil, log)
	router := gin.New()
	router.POST("/paths/:id/complete", h.CompletePath)
	return router
}

func TestCompletePathWireFormat(t *testing.T) {
	minting := &stubMinting{result: &services.MintResult{
		TokenID:         42,
		ContractAddress: "0xC0n7r4c7",
		TxHash:          "0xmint",
		ExplorerURL:     "https://explorer.test/tx/0xmint",
		MetadataURL:     "https://gateway.test/ipfs/QmMeta",
		ImageURL:        "https://gateway.test/ipfs/QmImage",
	}}
	router := newNFTTestRouter(t, minting)
	pathID := uuid.New()

	rec := postJSON(router, "/paths/"+pathID.String()+"/complete", `{"user_wallet": "0xABCdef1234567890abcdef1234567890ABCDEF12"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if minting.wallet != "0xabcdef1234567890abcdef1234567890abcdef12" {
		t.Fatalf("wallet passed as %q", minting.wallet)
	}
	if minting.pathID != pathID {
		t.Fatalf("pathID passed as %s", minting.pathID)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["message"] == "" {
		t.Fatal("response missing message")
	}
	if got, _ := resp["token_id"].(float64); got != 42 {
		t.Fatalf("token_id = %v", resp["token_id"])
	}
	if resp["nft_contract_address"] != "0xC0n7r4c7" {
		t.Fatalf("nft_contract_address = %v", resp["nft_contract_address"])
	}
	if resp["metadata_url"] != "https://gateway.test/ipfs/QmMeta" {
		t.Fatalf("metadata_url = %v", resp["metadata_url"])
	}
	if resp["image_gateway_url"] != "https://gateway.test/ipfs/QmImage" {
		t.Fatalf("image_gateway_url = %v", resp["image_gateway_url"])
	}
}

func TestCompletePathAcceptsWalletAddressAlias(t *testing.T) {
	minting := &stubMinting{result: &services.MintResult{TokenID: 1}}
	router := newNFTTestRouter(t, minting)

	rec := postJSON(router, "/paths/"+uuid.NewString()+"/complete", `{"wallet_address": "0xabcdef1234567890abcdef1234567890abcdef12"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if minting.wallet != "0xabcdef1234567890abcdef1234567890abcdef12" {
		t.Fatalf("wallet passed as %q", minting.wallet)
	}
}

func TestCompletePathRequiresWallet(t *testing.T) {
	router := newNFTTestRouter(t, &stubMinting{})

	rec := postJSON(router, "/paths/"+uuid.NewString()+"/complete", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCompletePathStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"disabled", services.ErrMintingDisabled, http.StatusForbidden},
		{"path missing", services.ErrPathNotFound, http.StatusNotFound},
		{"not complete", services.ErrNotComplete, http.StatusBadRequest},
		{"already minted", services.ErrAlreadyMinted, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newNFTTestRouter(t, &stubMinting{err: tc.err})
			rec := postJSON(router, "/paths/"+uuid.NewString()+"/complete", `{"user_wallet": "0xabcdef1234567890abcdef1234567890abcdef12"}`)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

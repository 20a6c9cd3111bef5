package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/types"
)

type mintHarness struct {
	chain    *fakeChain
	ipfs     *fakeIPFS
	users    *fakeUserRepo
	paths    *fakePathRepo
	progress *fakeProgressRepo
	nfts     *fakeNFTRepo
	svc      MintingService
}

func newMintHarness(t *testing.T) *mintHarness {
	t.Helper()
	h := &mintHarness{
		chain:    newFakeChain(),
		ipfs:     &fakeIPFS{},
		users:    newFakeUserRepo(),
		paths:    newFakePathRepo(),
		progress: newFakeProgressRepo(),
		nfts:     newFakeNFTRepo(),
	}
	h.svc = NewMintingService(h.chain, h.ipfs, &fakeCerts{}, h.users, h.paths, h.progress, h.nfts, testLogger(t))
	return h
}

func (h *mintHarness) seedEligible(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	ctx := context.Background()
	wallet := "0xabc0000000000000000000000000000000000030"
	user, _ := h.users.Upsert(ctx, nil, &types.User{WalletAddress: wallet, Name: "Ada"})
	path := &types.LearningPath{ID: uuid.New(), Title: "🚀 Rockets", CreatorWallet: wallet, TotalLevels: 3}
	_, _ = h.paths.Create(ctx, nil, []*types.LearningPath{path})
	_, _ = h.progress.Create(ctx, nil, &types.UserProgress{
		UserID:     user.ID,
		PathID:     path.ID,
		IsComplete: true,
	})
	return path.ID, wallet
}

func TestMintDisabledWithoutChain(t *testing.T) {
	svc := NewMintingService(nil, nil, &fakeCerts{}, newFakeUserRepo(), newFakePathRepo(), newFakeProgressRepo(), newFakeNFTRepo(), testLogger(t))
	_, err := svc.CompleteAndMint(context.Background(), uuid.New(), "0xabc0000000000000000000000000000000000030")
	if !errors.Is(err, ErrMintingDisabled) {
		t.Fatalf("expected ErrMintingDisabled, got %v", err)
	}
}

func TestMintRequiresCompletePath(t *testing.T) {
	h := newMintHarness(t)
	pathID, wallet := h.seedEligible(t)

	// Flip the progress row back to incomplete.
	ctx := context.Background()
	user, _ := h.users.GetByWallet(ctx, nil, wallet)
	progress, _ := h.progress.GetByUserAndPath(ctx, nil, user.ID, pathID)
	progress.IsComplete = false

	_, err := h.svc.CompleteAndMint(ctx, pathID, wallet)
	if !errors.Is(err, ErrNotComplete) {
		t.Fatalf("expected ErrNotComplete, got %v", err)
	}
	// Eligibility is decided before any chain interaction.
	if h.chain.hasMintedCall != 0 || len(h.chain.minted) != 0 {
		t.Fatal("chain was called for an ineligible mint")
	}
}

func TestMintRejectsExistingRecord(t *testing.T) {
	h := newMintHarness(t)
	pathID, wallet := h.seedEligible(t)
	ctx := context.Background()
	user, _ := h.users.GetByWallet(ctx, nil, wallet)
	_, _ = h.nfts.Create(ctx, nil, &types.UserNFT{UserID: user.ID, PathID: pathID, TokenID: 7})

	_, err := h.svc.CompleteAndMint(ctx, pathID, wallet)
	if !errors.Is(err, ErrAlreadyMinted) {
		t.Fatalf("expected ErrAlreadyMinted, got %v", err)
	}
	if len(h.chain.minted) != 0 {
		t.Fatal("mint transaction sent despite existing record")
	}
}

func TestMintRejectsWhenChainSaysMinted(t *testing.T) {
	h := newMintHarness(t)
	pathID, wallet := h.seedEligible(t)
	h.chain.hasMinted = true

	_, err := h.svc.CompleteAndMint(context.Background(), pathID, wallet)
	if !errors.Is(err, ErrAlreadyMinted) {
		t.Fatalf("expected ErrAlreadyMinted, got %v", err)
	}
	if len(h.chain.minted) != 0 {
		t.Fatal("mint transaction sent despite on-chain record")
	}
}

func TestMintHappyPath(t *testing.T) {
	h := newMintHarness(t)
	pathID, wallet := h.seedEligible(t)
	ctx := context.Background()

	result, err := h.svc.CompleteAndMint(ctx, pathID, wallet)
	if err != nil {
		t.Fatalf("CompleteAndMint: %v", err)
	}
	if result.TokenID != 42 {
		t.Fatalf("token id = %d", result.TokenID)
	}
	if result.ImageURL == "" || result.MetadataURL == "" {
		t.Fatalf("result missing urls: %+v", result)
	}

	user, _ := h.users.GetByWallet(ctx, nil, wallet)
	record, _ := h.nfts.GetByUserAndPath(ctx, nil, user.ID, pathID)
	if record == nil {
		t.Fatal("no certificate record written")
	}
	if record.TokenID != 42 {
		t.Fatalf("recorded token id = %d", record.TokenID)
	}
	if uri := h.chain.tokenURIs[42]; uri != result.MetadataURL {
		t.Fatalf("token uri = %q, want %q", uri, result.MetadataURL)
	}
	// Image + metadata pins.
	if h.ipfs.pinCount != 2 {
		t.Fatalf("pin count = %d, want 2", h.ipfs.pinCount)
	}
}

func TestMintStageErrorsAreClassified(t *testing.T) {
	h := newMintHarness(t)
	pathID, wallet := h.seedEligible(t)
	h.ipfs.pinErr = errors.New("pinata down")

	_, err := h.svc.CompleteAndMint(context.Background(), pathID, wallet)
	if !errors.Is(err, ErrPinImageStage) {
		t.Fatalf("expected ErrPinImageStage, got %v", err)
	}
	if len(h.chain.minted) != 0 {
		t.Fatal("mint transaction sent after pin failure")
	}
}

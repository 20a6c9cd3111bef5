package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/types"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, wallet string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:            uuid.New(),
		WalletAddress: wallet,
		Name:          "Test User",
		Country:       "DE",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedPath(tb testing.TB, ctx context.Context, tx *gorm.DB, creatorWallet string, totalLevels int) *types.LearningPath {
	tb.Helper()
	p := &types.LearningPath{
		ID:               uuid.New(),
		Title:            "🧪 Test Path",
		ShortDescription: "short",
		LongDescription:  "long",
		CreatorWallet:    creatorWallet,
		TotalLevels:      totalLevels,
		IntentType:       types.IntentLearn,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed path: %v", err)
	}
	return p
}

func SeedLevel(tb testing.TB, ctx context.Context, tx *gorm.DB, pathID uuid.UUID, number int) *types.Level {
	tb.Helper()
	l := &types.Level{
		ID:          uuid.New(),
		PathID:      pathID,
		LevelNumber: number,
		LevelTitle:  "📘 Level",
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed level: %v", err)
	}
	return l
}

func SeedProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, pathID uuid.UUID) *types.UserProgress {
	tb.Helper()
	p := &types.UserProgress{
		ID:          uuid.New(),
		UserID:      userID,
		PathID:      pathID,
		CurrentItem: -1,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return p
}

package repos

import (
	"context"
	"testing"

	"github.com/noodl-labs/kodo-backend/internal/repos/testutil"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

func TestLevelCreateIgnoreConflict(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	tx := testutil.Tx(t, db)

	path := testutil.SeedPath(t, ctx, tx, "0xabc0000000000000000000000000000000000001", 3)
	repo := NewLevelRepo(db, log)

	first, err := repo.CreateIgnoreConflict(ctx, tx, &types.Level{
		PathID:      path.ID,
		LevelNumber: 1,
		LevelTitle:  "🚀 Basics",
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first == nil {
		t.Fatal("first create returned nil level")
	}

	// A retry of the same (path, level_number) must be a no-op that hands
	// back the surviving row.
	second, err := repo.CreateIgnoreConflict(ctx, tx, &types.Level{
		PathID:      path.ID,
		LevelNumber: 1,
		LevelTitle:  "🚀 Basics (retry)",
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected surviving row %s, got %s", first.ID, second.ID)
	}
	if second.LevelTitle != "🚀 Basics" {
		t.Fatalf("retry overwrote the original title: %q", second.LevelTitle)
	}

	count, err := repo.CountByPathID(ctx, tx, path.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 level, got %d", count)
	}
}

func TestLevelGetByPathAndNumberMissing(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	tx := testutil.Tx(t, db)

	path := testutil.SeedPath(t, ctx, tx, "0xabc0000000000000000000000000000000000002", 3)
	repo := NewLevelRepo(db, log)

	level, err := repo.GetByPathAndNumber(ctx, tx, path.ID, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if level != nil {
		t.Fatalf("expected nil for missing level, got %+v", level)
	}
}

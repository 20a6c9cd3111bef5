package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/noodl-labs/kodo-backend/internal/types"
)

func seedEmbeddedPath(t *testing.T, repo *fakePathRepo, title string, vec []float32) *types.LearningPath {
	t.Helper()
	raw, err := json.Marshal(vec)
	if err != nil {
		t.Fatalf("marshal embedding: %v", err)
	}
	path := &types.LearningPath{
		ID:             uuid.New(),
		Title:          title,
		CreatorWallet:  "0xabc0000000000000000000000000000000000050",
		TitleEmbedding: datatypes.JSON(raw),
	}
	if _, err := repo.Create(context.Background(), nil, []*types.LearningPath{path}); err != nil {
		t.Fatalf("seed path: %v", err)
	}
	return path
}

func TestFindSimilarMatchesCloseTopic(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.85")
	paths := newFakePathRepo()
	existing := seedEmbeddedPath(t, paths, "🚀 Rocket Science", []float32{1, 0, 0})
	ai := &fakeAI{embedVec: []float32{0.99, 0.1, 0}}

	svc := NewDuplicateCheckService(ai, paths, testLogger(t))
	similar, vec, err := svc.FindSimilar(context.Background(), "rocketry basics")
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if similar == nil {
		t.Fatal("expected a match above threshold")
	}
	if similar.PathID != existing.ID.String() {
		t.Fatalf("matched %s, want %s", similar.PathID, existing.ID)
	}
	if len(vec) == 0 {
		t.Fatal("topic embedding not returned")
	}
}

func TestFindSimilarIgnoresDistantTopic(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.85")
	paths := newFakePathRepo()
	seedEmbeddedPath(t, paths, "🚀 Rocket Science", []float32{1, 0, 0})
	ai := &fakeAI{embedVec: []float32{0, 1, 0}}

	svc := NewDuplicateCheckService(ai, paths, testLogger(t))
	similar, _, err := svc.FindSimilar(context.Background(), "sourdough baking")
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if similar != nil {
		t.Fatalf("orthogonal embedding matched: %+v", similar)
	}
}

func TestFindSimilarFailsOpenOnEmbedError(t *testing.T) {
	paths := newFakePathRepo()
	seedEmbeddedPath(t, paths, "🚀 Rocket Science", []float32{1, 0, 0})
	ai := &fakeAI{embedErr: errors.New("model down")}

	svc := NewDuplicateCheckService(ai, paths, testLogger(t))
	similar, vec, err := svc.FindSimilar(context.Background(), "rocketry basics")
	if err != nil {
		t.Fatalf("fail-open check must not error: %v", err)
	}
	if similar != nil || vec != nil {
		t.Fatalf("expected nil results on embed failure, got %+v / %v", similar, vec)
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
		ok   bool
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1, true},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, true},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0, false},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := cosineSimilarity(tc.a, tc.b)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && (got < tc.want-1e-9 || got > tc.want+1e-9) {
				t.Fatalf("similarity = %f, want %f", got, tc.want)
			}
		})
	}
}

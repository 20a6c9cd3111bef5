package services

import (
	"context"
	"encoding/json"
	"math"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

// DuplicateCheckService compares a proposed topic against stored path title
// embeddings. It is fail-open: any error inside the check reports "no
// duplicate" so an embedding outage never blocks path creation.
type DuplicateCheckService interface {
	// FindSimilar returns the closest existing path at or above the
	// similarity threshold, or nil when none qualifies. The returned
	// embedding is the topic's own vector, for reuse by the caller.
	FindSimilar(ctx context.Context, topic string) (*SimilarPath, []float32, error)
}

type SimilarPath struct {
	PathID     string  `json:"path_id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

type duplicateCheckService struct {
	ai        AIClient
	pathRepo  repos.LearningPathRepo
	enabled   bool
	threshold float64
	log       *logger.Logger
}

func NewDuplicateCheckService(ai AIClient, pathRepo repos.LearningPathRepo, baseLog *logger.Logger) DuplicateCheckService {
	log := baseLog.With("service", "DuplicateCheckService")
	return &duplicateCheckService{
		ai:        ai,
		pathRepo:  pathRepo,
		enabled:   utils.GetEnvAsBool("DUPLICATE_CHECK_ENABLED", true, log),
		threshold: utils.GetEnvAsFloat("SIMILARITY_THRESHOLD", 0.85, log),
		log:       log,
	}
}

func (s *duplicateCheckService) FindSimilar(ctx context.Context, topic string) (*SimilarPath, []float32, error) {
	vec, err := s.ai.Embed(ctx, topic)
	if err != nil {
		s.log.Warn("Embedding failed, skipping duplicate check", "error", err)
		return nil, nil, nil
	}
	// When the check is disabled the embedding is still computed and stored,
	// so paths created now participate if the check is turned back on.
	if !s.enabled {
		return nil, vec, nil
	}
	candidates, err := s.pathRepo.GetWithEmbeddings(ctx, nil)
	if err != nil {
		s.log.Warn("Loading candidate embeddings failed, skipping duplicate check", "error", err)
		return nil, vec, nil
	}

	var best *SimilarPath
	for _, p := range candidates {
		if len(p.TitleEmbedding) == 0 {
			continue
		}
		var stored []float32
		if err := json.Unmarshal(p.TitleEmbedding, &stored); err != nil {
			continue
		}
		sim, ok := cosineSimilarity(vec, stored)
		if !ok || sim < s.threshold {
			continue
		}
		if best == nil || sim > best.Similarity {
			best = &SimilarPath{PathID: p.ID.String(), Title: p.Title, Similarity: sim}
		}
	}
	if best != nil {
		s.log.Info("Topic matched an existing path", "pathID", best.PathID, "similarity", best.Similarity)
	}
	return best, vec, nil
}

func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

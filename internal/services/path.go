package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

var ErrLevelNotFound = errors.New("level not found")

// PathSummary is the catalog row; content stays behind the level endpoint.
type PathSummary struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"short_description"`
	LongDescription  string    `json:"long_description"`
	CreatorWallet    string    `json:"creator_wallet"`
	TotalLevels      int       `json:"total_levels"`
	IntentType       string    `json:"intent_type"`
	ContentHash      *string   `json:"content_hash,omitempty"`
}

type LevelContent struct {
	PathID      uuid.UUID            `json:"path_id"`
	LevelNumber int                  `json:"level_number"`
	LevelTitle  string               `json:"level_title"`
	Items       []*types.ContentItem `json:"items"`
}

type PathService interface {
	ListPaths(ctx context.Context) ([]*PathSummary, error)
	GetLevelContent(ctx context.Context, pathID uuid.UUID, levelNumber int) (*LevelContent, error)
}

type pathService struct {
	pathRepo  repos.LearningPathRepo
	levelRepo repos.LevelRepo
	itemRepo  repos.ContentItemRepo
	log       *logger.Logger
}

func NewPathService(pathRepo repos.LearningPathRepo, levelRepo repos.LevelRepo, itemRepo repos.ContentItemRepo, baseLog *logger.Logger) PathService {
	return &pathService{
		pathRepo:  pathRepo,
		levelRepo: levelRepo,
		itemRepo:  itemRepo,
		log:       baseLog.With("service", "PathService"),
	}
}

func (s *pathService) ListPaths(ctx context.Context) ([]*PathSummary, error) {
	paths, err := s.pathRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	summaries := make([]*PathSummary, 0, len(paths))
	for _, p := range paths {
		summaries = append(summaries, &PathSummary{
			ID:               p.ID,
			Title:            p.Title,
			ShortDescription: p.ShortDescription,
			LongDescription:  p.LongDescription,
			CreatorWallet:    p.CreatorWallet,
			TotalLevels:      p.TotalLevels,
			IntentType:       p.IntentType,
			ContentHash:      p.ContentHash,
		})
	}
	return summaries, nil
}

func (s *pathService) GetLevelContent(ctx context.Context, pathID uuid.UUID, levelNumber int) (*LevelContent, error) {
	paths, err := s.pathRepo.GetByIDs(ctx, nil, []uuid.UUID{pathID})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrPathNotFound
	}
	level, err := s.levelRepo.GetByPathAndNumber(ctx, nil, pathID, levelNumber)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, ErrLevelNotFound
	}
	items, err := s.itemRepo.GetByLevelIDs(ctx, nil, []uuid.UUID{level.ID})
	if err != nil {
		return nil, err
	}
	return &LevelContent{
		PathID:      pathID,
		LevelNumber: levelNumber,
		LevelTitle:  level.LevelTitle,
		Items:       items,
	}, nil
}

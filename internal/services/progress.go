package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

var (
	ErrLevelOutOfRange = errors.New("level number out of range")
	ErrScoreNotFound   = errors.New("no score recorded for level")
)

// LevelScoreResult echoes the stored score plus the derived path state.
type LevelScoreResult struct {
	PathID         uuid.UUID `json:"path_id"`
	LevelNumber    int       `json:"level_number"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	PathComplete   bool      `json:"path_complete"`
}

// PathScores groups one path's level scores for the per-user listing.
type PathScores struct {
	PathID     uuid.UUID              `json:"path_id"`
	Title      string                 `json:"title"`
	IsComplete bool                   `json:"is_complete"`
	Levels     []*types.LevelProgress `json:"levels"`
}

// ProgressService records quiz scores and derives path completion. A path
// is complete once level scores cover every level from 1 to total_levels.
type ProgressService interface {
	UpsertLevelScore(ctx context.Context, walletAddress string, pathID uuid.UUID, levelNumber, correctAnswers, totalQuestions int) (*LevelScoreResult, error)
	GetLevelScore(ctx context.Context, walletAddress string, pathID uuid.UUID, levelNumber int) (*LevelScoreResult, error)
	GetUserScores(ctx context.Context, walletAddress string) ([]*PathScores, error)
}

type progressService struct {
	userRepo          repos.UserRepo
	pathRepo          repos.LearningPathRepo
	progressRepo      repos.UserProgressRepo
	levelProgressRepo repos.LevelProgressRepo
	log               *logger.Logger
}

func NewProgressService(
	userRepo repos.UserRepo,
	pathRepo repos.LearningPathRepo,
	progressRepo repos.UserProgressRepo,
	levelProgressRepo repos.LevelProgressRepo,
	baseLog *logger.Logger,
) ProgressService {
	return &progressService{
		userRepo:          userRepo,
		pathRepo:          pathRepo,
		progressRepo:      progressRepo,
		levelProgressRepo: levelProgressRepo,
		log:               baseLog.With("service", "ProgressService"),
	}
}

func (s *progressService) UpsertLevelScore(ctx context.Context, walletAddress string, pathID uuid.UUID, levelNumber, correctAnswers, totalQuestions int) (*LevelScoreResult, error) {
	user, err := s.userRepo.GetByWallet(ctx, nil, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	paths, err := s.pathRepo.GetByIDs(ctx, nil, []uuid.UUID{pathID})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrPathNotFound
	}
	path := paths[0]
	if levelNumber < 1 || levelNumber > path.TotalLevels {
		return nil, ErrLevelOutOfRange
	}

	progress, err := s.progressRepo.GetByUserAndPath(ctx, nil, user.ID, pathID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress, err = s.progressRepo.Create(ctx, nil, &types.UserProgress{
			UserID:       user.ID,
			PathID:       pathID,
			CurrentLevel: levelNumber,
			CurrentItem:  -1,
			StartedAt:    time.Now(),
		})
		if err != nil {
			return nil, err
		}
	}

	stored, err := s.levelProgressRepo.Upsert(ctx, nil, &types.LevelProgress{
		ProgressID:     progress.ID,
		LevelNumber:    levelNumber,
		CorrectAnswers: correctAnswers,
		TotalQuestions: totalQuestions,
	})
	if err != nil {
		return nil, err
	}

	complete, err := s.recomputeCompletion(ctx, progress, path.TotalLevels)
	if err != nil {
		return nil, err
	}

	return &LevelScoreResult{
		PathID:         pathID,
		LevelNumber:    stored.LevelNumber,
		CorrectAnswers: stored.CorrectAnswers,
		TotalQuestions: stored.TotalQuestions,
		PathComplete:   complete,
	}, nil
}

// recomputeCompletion derives is_complete from coverage of 1..totalLevels.
// It never un-completes a path: once set, the flag is sticky.
func (s *progressService) recomputeCompletion(ctx context.Context, progress *types.UserProgress, totalLevels int) (bool, error) {
	if progress.IsComplete {
		return true, nil
	}
	scores, err := s.levelProgressRepo.GetByProgressID(ctx, nil, progress.ID)
	if err != nil {
		return false, err
	}
	covered := make(map[int]bool, len(scores))
	for _, lp := range scores {
		covered[lp.LevelNumber] = true
	}
	for n := 1; n <= totalLevels; n++ {
		if !covered[n] {
			updates := map[string]interface{}{"updated_at": time.Now()}
			if highest := highestCovered(covered, totalLevels); highest > 0 && highest < totalLevels {
				updates["current_level"] = highest + 1
			}
			if err := s.progressRepo.UpdateFields(ctx, nil, progress.ID, updates); err != nil {
				return false, err
			}
			return false, nil
		}
	}
	now := time.Now()
	if err := s.progressRepo.UpdateFields(ctx, nil, progress.ID, map[string]interface{}{
		"is_complete":   true,
		"completed_at":  now,
		"current_level": totalLevels,
		"updated_at":    now,
	}); err != nil {
		return false, err
	}
	s.log.Info("Path completed", "progressID", progress.ID)
	return true, nil
}

func highestCovered(covered map[int]bool, totalLevels int) int {
	highest := 0
	for n := 1; n <= totalLevels; n++ {
		if covered[n] {
			highest = n
		}
	}
	return highest
}

func (s *progressService) GetLevelScore(ctx context.Context, walletAddress string, pathID uuid.UUID, levelNumber int) (*LevelScoreResult, error) {
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
	if progress == nil {
		return nil, ErrScoreNotFound
	}
	lp, err := s.levelProgressRepo.GetByProgressAndLevel(ctx, nil, progress.ID, levelNumber)
	if err != nil {
		return nil, err
	}
	if lp == nil {
		return nil, ErrScoreNotFound
	}
	return &LevelScoreResult{
		PathID:         pathID,
		LevelNumber:    lp.LevelNumber,
		CorrectAnswers: lp.CorrectAnswers,
		TotalQuestions: lp.TotalQuestions,
		PathComplete:   progress.IsComplete,
	}, nil
}

func (s *progressService) GetUserScores(ctx context.Context, walletAddress string) ([]*PathScores, error) {
	user, err := s.userRepo.GetByWallet(ctx, nil, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	progressRows, err := s.progressRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		return nil, err
	}
	if len(progressRows) == 0 {
		return []*PathScores{}, nil
	}

	pathIDs := make([]uuid.UUID, 0, len(progressRows))
	for _, p := range progressRows {
		pathIDs = append(pathIDs, p.PathID)
	}
	paths, err := s.pathRepo.GetByIDs(ctx, nil, pathIDs)
	if err != nil {
		return nil, err
	}
	titles := make(map[uuid.UUID]string, len(paths))
	for _, p := range paths {
		titles[p.ID] = p.Title
	}

	results := make([]*PathScores, 0, len(progressRows))
	for _, p := range progressRows {
		levels, err := s.levelProgressRepo.GetByProgressID(ctx, nil, p.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, &PathScores{
			PathID:     p.PathID,
			Title:      titles[p.PathID],
			IsComplete: p.IsComplete,
			Levels:     levels,
		})
	}
	return results, nil
}

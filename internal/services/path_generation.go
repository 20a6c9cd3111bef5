package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/types"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

// ErrQueueFull signals that the bounded generation queue rejected the job;
// callers translate it to a retry-later response.
var ErrQueueFull = errors.New("generation queue is full")

// DuplicatePathError carries the existing path a new topic collided with.
type DuplicatePathError struct {
	Similar *SimilarPath
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("topic duplicates existing path %s (similarity %.2f)", e.Similar.PathID, e.Similar.Similarity)
}

// PathGenerationService accepts generation requests, runs them on a fixed
// worker pool, and narrates progress through the task log.
type PathGenerationService interface {
	// Enqueue validates the request, reserves a task id and queues the job.
	// It returns *DuplicatePathError when the topic is too close to an
	// existing path and ErrQueueFull when the queue has no room.
	Enqueue(ctx context.Context, topic string, creatorWallet string) (uuid.UUID, error)
	// Start launches the worker pool; it returns once ctx is cancelled and
	// all in-flight jobs have finished.
	Start(ctx context.Context) error
}

type generationJob struct {
	taskID        uuid.UUID
	topic         string
	creatorWallet string
	embedding     []float32
}

type pathGenerationService struct {
	ai        AIClient
	chain     ChainService
	dupCheck  DuplicateCheckService
	taskLogs  TaskLogService
	pathRepo  repos.LearningPathRepo
	levelRepo repos.LevelRepo
	itemRepo  repos.ContentItemRepo
	jobs      chan generationJob
	workers   int
	register  bool
	log       *logger.Logger
}

func NewPathGenerationService(
	ai AIClient,
	chain ChainService,
	dupCheck DuplicateCheckService,
	taskLogs TaskLogService,
	pathRepo repos.LearningPathRepo,
	levelRepo repos.LevelRepo,
	itemRepo repos.ContentItemRepo,
	baseLog *logger.Logger,
) PathGenerationService {
	log := baseLog.With("service", "PathGenerationService")
	return &pathGenerationService{
		ai:        ai,
		chain:     chain,
		dupCheck:  dupCheck,
		taskLogs:  taskLogs,
		pathRepo:  pathRepo,
		levelRepo: levelRepo,
		itemRepo:  itemRepo,
		jobs:      make(chan generationJob, utils.GetEnvAsInt("GENERATION_QUEUE_SIZE", 16, log)),
		workers:   utils.GetEnvAsInt("GENERATION_WORKERS", 2, log),
		register:  utils.GetEnvAsBool("CHAIN_REGISTRATION_ENABLED", true, log),
		log:       log,
	}
}

func (s *pathGenerationService) Enqueue(ctx context.Context, topic string, creatorWallet string) (uuid.UUID, error) {
	similar, embedding, err := s.dupCheck.FindSimilar(ctx, topic)
	if err != nil {
		return uuid.Nil, err
	}
	if similar != nil {
		return uuid.Nil, &DuplicatePathError{Similar: similar}
	}

	taskID := uuid.New()
	if err := s.taskLogs.CreateTask(ctx, taskID); err != nil {
		return uuid.Nil, err
	}
	// The queued entry goes in before the job is visible to workers, so the
	// log reads in order even when a worker picks the job up immediately.
	if err := s.taskLogs.Append(ctx, taskID, types.LogLevelInfo, "Request accepted, waiting for a worker...", nil); err != nil {
		s.log.Warn("Failed to append queued entry", "taskID", taskID, "error", err)
	}
	job := generationJob{taskID: taskID, topic: topic, creatorWallet: creatorWallet, embedding: embedding}
	select {
	case s.jobs <- job:
	default:
		// No worker will ever touch this task; drop its log so the id is not
		// pollable forever.
		if err := s.taskLogs.Delete(ctx, taskID); err != nil {
			s.log.Warn("Failed to delete rejected task log", "taskID", taskID, "error", err)
		}
		return uuid.Nil, ErrQueueFull
	}
	s.log.Info("Generation job queued", "taskID", taskID, "creator", creatorWallet)
	return taskID, nil
}

func (s *pathGenerationService) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-s.jobs:
					s.run(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

type generatedLevel struct {
	Number int
	Title  string
	Items  []map[string]any
}

// run executes one generation job end to end. Any failure past path insert
// deletes the partially built path so no half-finished course is listed.
func (s *pathGenerationService) run(ctx context.Context, job generationJob) {
	log := s.log.With("taskID", job.taskID)

	progress := func(status string, data map[string]any) {
		if err := s.taskLogs.Append(ctx, job.taskID, types.LogLevelInfo, status, data); err != nil {
			log.Warn("Failed to append progress entry", "error", err)
		}
	}
	fail := func(status string, data map[string]any) {
		if err := s.taskLogs.Append(ctx, job.taskID, types.LogLevelError, status, data); err != nil {
			log.Warn("Failed to append failure entry", "error", err)
		}
	}

	var pathID uuid.UUID
	cleanup := func() {
		if pathID == uuid.Nil {
			return
		}
		if err := s.pathRepo.DeleteByID(context.WithoutCancel(ctx), nil, pathID); err != nil {
			log.Error("Failed to clean up partial path", "pathID", pathID, "error", err)
		}
	}

	progress("Analyzing your request...", nil)
	intent := s.classifyIntent(ctx, job.topic)

	progress("Crafting a title...", nil)
	title, err := s.generateTitle(ctx, job.topic, intent)
	if err != nil {
		fail(classifyFailure(err), nil)
		return
	}

	progress("Designing the curriculum...", map[string]any{"title": title})
	levelTitles, err := s.generateCurriculum(ctx, title, intent)
	if err != nil {
		fail(classifyFailure(err), nil)
		return
	}

	progress("Writing descriptions...", nil)
	shortDesc, longDesc, err := s.generateDescriptions(ctx, title, levelTitles)
	if err != nil {
		fail(classifyFailure(err), nil)
		return
	}

	// Generate all level content before touching the database; a level the
	// model cannot produce is dropped and the survivors renumbered, keeping
	// level numbers contiguous.
	var built []generatedLevel
	for i, levelTitle := range levelTitles {
		progress(fmt.Sprintf("Building level %d of %d: %s", i+1, len(levelTitles), levelTitle), nil)
		items, err := s.generateLevelItems(ctx, title, levelTitle, i+1, len(levelTitles), intent)
		if err != nil {
			log.Warn("Level generation failed, skipping level", "level", i+1, "error", err)
			progress(fmt.Sprintf("Could not build level %q, skipping it", levelTitle), nil)
			continue
		}
		built = append(built, generatedLevel{Number: len(built) + 1, Title: levelTitle, Items: items})
	}
	if len(built) == 0 {
		fail("The model could not produce any level content. Please try again.", nil)
		return
	}

	progress("Saving your path...", nil)
	path := &types.LearningPath{
		ID:               uuid.New(),
		Title:            title,
		ShortDescription: shortDesc,
		LongDescription:  longDesc,
		CreatorWallet:    job.creatorWallet,
		TotalLevels:      len(built),
		IntentType:       intent,
	}
	if len(job.embedding) > 0 {
		if raw, err := json.Marshal(job.embedding); err == nil {
			path.TitleEmbedding = datatypes.JSON(raw)
		}
	}
	if _, err := s.pathRepo.Create(ctx, nil, []*types.LearningPath{path}); err != nil {
		fail("Failed to save the path. Please try again.", nil)
		log.Error("Path insert failed", "error", err)
		return
	}
	pathID = path.ID

	if err := s.persistLevels(ctx, pathID, built); err != nil {
		fail("Failed to save level content. Please try again.", nil)
		log.Error("Level persist failed", "pathID", pathID, "error", err)
		cleanup()
		return
	}

	if s.chain != nil && s.register {
		progress("Registering the path on chain...", nil)
		contentHash := computeContentHash(built)
		txHash, err := s.chain.RegisterPath(ctx, pathID, contentHash)
		if err != nil {
			fail(classifyFailure(err), nil)
			log.Error("Chain registration failed", "pathID", pathID, "error", err)
			cleanup()
			return
		}
		hashHex := "0x" + hex.EncodeToString(contentHash[:])
		if err := s.pathRepo.UpdateFields(ctx, nil, pathID, map[string]interface{}{"content_hash": hashHex}); err != nil {
			log.Error("Failed to store content hash", "pathID", pathID, "error", err)
		}
		progress("Path registered on chain", map[string]any{"tx_hash": txHash, "explorer_url": s.chain.ExplorerTxURL(txHash)})
	}

	if err := s.taskLogs.Append(ctx, job.taskID, types.LogLevelSuccess, "Your path is ready!", map[string]any{
		"path_id":      pathID.String(),
		"title":        title,
		"total_levels": len(built),
	}); err != nil {
		log.Warn("Failed to append terminal entry", "error", err)
	}
	log.Info("Generation job finished", "pathID", pathID, "levels", len(built))
}

func (s *pathGenerationService) persistLevels(ctx context.Context, pathID uuid.UUID, built []generatedLevel) error {
	for _, lvl := range built {
		stored, err := s.levelRepo.CreateIgnoreConflict(ctx, nil, &types.Level{
			PathID:      pathID,
			LevelNumber: lvl.Number,
			LevelTitle:  lvl.Title,
		})
		if err != nil {
			return err
		}
		items := make([]*types.ContentItem, 0, len(lvl.Items))
		for idx, item := range lvl.Items {
			itemType, _ := item["type"].(string)
			content, err := json.Marshal(item["content"])
			if err != nil {
				return err
			}
			items = append(items, &types.ContentItem{
				LevelID:   stored.ID,
				ItemIndex: idx,
				ItemType:  itemType,
				Content:   datatypes.JSON(content),
			})
		}
		if err := s.itemRepo.CreateIgnoreConflict(ctx, nil, items); err != nil {
			return err
		}
	}
	return nil
}

// classifyIntent never fails the run: an unusable answer falls back to the
// study-course framing.
func (s *pathGenerationService) classifyIntent(ctx context.Context, topic string) string {
	parsed, err := s.ai.GenerateJSON(ctx, classifyIntentPrompt(topic))
	if err != nil {
		s.log.Warn("Intent classification failed, defaulting to learn", "error", err)
		return types.IntentLearn
	}
	if intent, _ := parsed["intent"].(string); intent == types.IntentHelp {
		return types.IntentHelp
	}
	return types.IntentLearn
}

func (s *pathGenerationService) generateTitle(ctx context.Context, topic string, intent string) (string, error) {
	parsed, err := s.ai.GenerateJSON(ctx, rephraseTitlePrompt(topic, intent))
	if err != nil {
		return "", err
	}
	title, _ := parsed["title"].(string)
	if title == "" {
		return "", errors.New("model returned an empty title")
	}
	return title, nil
}

func (s *pathGenerationService) generateCurriculum(ctx context.Context, title string, intent string) ([]string, error) {
	parsed, err := s.ai.GenerateJSON(ctx, curriculumPrompt(title, intent))
	if err != nil {
		return nil, err
	}
	raw, _ := parsed["levels"].([]any)
	titles := make([]string, 0, len(raw))
	for _, v := range raw {
		if t, ok := v.(string); ok && t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) < 3 {
		return nil, fmt.Errorf("curriculum has %d levels, need at least 3", len(titles))
	}
	if len(titles) > 10 {
		titles = titles[:10]
	}
	return titles, nil
}

func (s *pathGenerationService) generateDescriptions(ctx context.Context, title string, levelTitles []string) (string, string, error) {
	parsed, err := s.ai.GenerateJSON(ctx, descriptionsPrompt(title, levelTitles))
	if err != nil {
		return "", "", err
	}
	shortDesc, _ := parsed["short_description"].(string)
	longDesc, _ := parsed["long_description"].(string)
	if shortDesc == "" || longDesc == "" {
		return "", "", errors.New("model returned empty descriptions")
	}
	return shortDesc, longDesc, nil
}

func (s *pathGenerationService) generateLevelItems(ctx context.Context, pathTitle, levelTitle string, levelNumber, totalLevels int, intent string) ([]map[string]any, error) {
	parsed, err := s.ai.GenerateJSON(ctx, levelContentPrompt(pathTitle, levelTitle, levelNumber, totalLevels, intent))
	if err != nil {
		return nil, err
	}
	raw, _ := parsed["items"].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		item, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if err := validateItem(item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, errors.New("level has no usable items")
	}
	return items, nil
}

func validateItem(item map[string]any) error {
	itemType, _ := item["type"].(string)
	switch itemType {
	case types.ItemTypeSlide:
		// Slide content is a markdown string, not a structured object.
		text, _ := item["content"].(string)
		if strings.TrimSpace(text) == "" {
			return errors.New("slide item has no content")
		}
	case types.ItemTypeQuiz:
		content, _ := item["content"].(map[string]any)
		options, _ := content["options"].([]any)
		if len(options) != 4 {
			return fmt.Errorf("quiz has %d options, want 4", len(options))
		}
		idx, ok := content["correctAnswerIndex"].(float64)
		if !ok || idx < 0 || idx > 3 {
			return errors.New("quiz correctAnswerIndex out of range")
		}
	default:
		return fmt.Errorf("unknown item type %q", itemType)
	}
	return nil
}

// computeContentHash produces the anchoring digest over the generated
// content. json.Marshal writes map keys in sorted order, so the digest is
// deterministic for identical content.
func computeContentHash(built []generatedLevel) [32]byte {
	doc := make([]map[string]any, 0, len(built))
	for _, lvl := range built {
		doc = append(doc, map[string]any{
			"level": lvl.Number,
			"title": lvl.Title,
			"items": lvl.Items,
		})
	}
	raw, _ := json.Marshal(doc)
	return sha256.Sum256(raw)
}

func classifyFailure(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "The platform wallet has insufficient funds to register the path. Please try again later."
	case errors.Is(err, ErrTxReverted):
		return "The chain rejected the registration transaction. Please try again later."
	default:
		return "Something went wrong while generating your path. Please try again."
	}
}

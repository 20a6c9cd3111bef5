package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/types"
)

// Scripted AI client: answers are matched against prompt substrings so a
// test can drive the whole pipeline without a network.
type fakeAI struct {
	mu        sync.Mutex
	responses map[string]map[string]any
	calls     []string
	embedVec  []float32
	embedErr  error
	imageData []byte
	imageErr  error
}

func (f *fakeAI) GenerateJSON(ctx context.Context, prompt string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return nil, errors.New("no scripted response for prompt")
}

func (f *fakeAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.embedVec != nil {
		return f.embedVec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeAI) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.imageData, nil
}

func (f *fakeAI) callsMatching(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

type fakePathRepo struct {
	mu      sync.Mutex
	paths   map[uuid.UUID]*types.LearningPath
	deleted []uuid.UUID
}

func newFakePathRepo() *fakePathRepo {
	return &fakePathRepo{paths: make(map[uuid.UUID]*types.LearningPath)}
}

func (f *fakePathRepo) Create(ctx context.Context, tx *gorm.DB, paths []*types.LearningPath) ([]*types.LearningPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		f.paths[p.ID] = p
	}
	return paths, nil
}

func (f *fakePathRepo) GetByIDs(ctx context.Context, tx *gorm.DB, pathIDs []uuid.UUID) ([]*types.LearningPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.LearningPath
	for _, id := range pathIDs {
		if p, ok := f.paths[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePathRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.LearningPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.LearningPath
	for _, p := range f.paths {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePathRepo) GetByCreator(ctx context.Context, tx *gorm.DB, creatorWallet string) ([]*types.LearningPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.LearningPath
	for _, p := range f.paths {
		if p.CreatorWallet == creatorWallet {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePathRepo) GetWithEmbeddings(ctx context.Context, tx *gorm.DB) ([]*types.LearningPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.LearningPath
	for _, p := range f.paths {
		if len(p.TitleEmbedding) > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePathRepo) UpdateFields(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.paths[pathID]
	if !ok {
		return nil
	}
	if v, ok := updates["content_hash"]; ok {
		if s, ok := v.(string); ok {
			p.ContentHash = &s
		}
	}
	return nil
}

func (f *fakePathRepo) DeleteByID(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.paths, pathID)
	f.deleted = append(f.deleted, pathID)
	return nil
}

type fakeLevelRepo struct {
	mu     sync.Mutex
	levels map[uuid.UUID]*types.Level
}

func newFakeLevelRepo() *fakeLevelRepo {
	return &fakeLevelRepo{levels: make(map[uuid.UUID]*types.Level)}
}

func (f *fakeLevelRepo) CreateIgnoreConflict(ctx context.Context, tx *gorm.DB, level *types.Level) (*types.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.levels {
		if l.PathID == level.PathID && l.LevelNumber == level.LevelNumber {
			return l, nil
		}
	}
	if level.ID == uuid.Nil {
		level.ID = uuid.New()
	}
	f.levels[level.ID] = level
	return level, nil
}

func (f *fakeLevelRepo) GetByPathAndNumber(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, levelNumber int) (*types.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.levels {
		if l.PathID == pathID && l.LevelNumber == levelNumber {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLevelRepo) GetByPathIDs(ctx context.Context, tx *gorm.DB, pathIDs []uuid.UUID) ([]*types.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Level
	for _, l := range f.levels {
		for _, id := range pathIDs {
			if l.PathID == id {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (f *fakeLevelRepo) CountByPathID(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, l := range f.levels {
		if l.PathID == pathID {
			n++
		}
	}
	return n, nil
}

type fakeItemRepo struct {
	mu    sync.Mutex
	items []*types.ContentItem
}

func (f *fakeItemRepo) CreateIgnoreConflict(ctx context.Context, tx *gorm.DB, items []*types.ContentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeItemRepo) GetByLevelIDs(ctx context.Context, tx *gorm.DB, levelIDs []uuid.UUID) ([]*types.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ContentItem
	for _, item := range f.items {
		for _, id := range levelIDs {
			if item.LevelID == id {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (f *fakeItemRepo) CountByLevelID(ctx context.Context, tx *gorm.DB, levelID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if item.LevelID == levelID {
			n++
		}
	}
	return n, nil
}

// In-memory task log: records entries and signals when a terminal entry
// arrives so tests can wait for a worker to finish.
type fakeTaskLogs struct {
	mu       sync.Mutex
	entries  map[uuid.UUID][]TaskStatusRow
	terminal chan uuid.UUID
}

func newFakeTaskLogs() *fakeTaskLogs {
	return &fakeTaskLogs{
		entries:  make(map[uuid.UUID][]TaskStatusRow),
		terminal: make(chan uuid.UUID, 8),
	}
}

func (f *fakeTaskLogs) CreateTask(ctx context.Context, taskID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[taskID] = []TaskStatusRow{}
	return nil
}

func (f *fakeTaskLogs) Append(ctx context.Context, taskID uuid.UUID, level string, status string, data map[string]any) error {
	f.mu.Lock()
	rows := f.entries[taskID]
	f.entries[taskID] = append(rows, TaskStatusRow{Seq: len(rows), Level: level, Status: status, Data: data})
	f.mu.Unlock()
	if level == types.LogLevelSuccess || level == types.LogLevelError {
		f.terminal <- taskID
	}
	return nil
}

func (f *fakeTaskLogs) Delete(ctx context.Context, taskID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, taskID)
	return nil
}

func (f *fakeTaskLogs) Read(ctx context.Context, taskID uuid.UUID) (*TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, ok := f.entries[taskID]
	if !ok {
		return nil, nil
	}
	status := &TaskStatus{TaskID: taskID, Entries: append([]TaskStatusRow(nil), rows...)}
	if n := len(rows); n > 0 {
		switch rows[n-1].Level {
		case types.LogLevelSuccess:
			status.Done = true
		case types.LogLevelError:
			status.Done = true
			status.Failed = true
		}
	}
	return status, nil
}

func (f *fakeTaskLogs) lastEntry(taskID uuid.UUID) (TaskStatusRow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.entries[taskID]
	if len(rows) == 0 {
		return TaskStatusRow{}, false
	}
	return rows[len(rows)-1], true
}

type fakeDupCheck struct {
	similar *SimilarPath
	vec     []float32
}

func (f *fakeDupCheck) FindSimilar(ctx context.Context, topic string) (*SimilarPath, []float32, error) {
	return f.similar, f.vec, nil
}

type fakeChain struct {
	mu            sync.Mutex
	registerErr   error
	mintErr       error
	setURIErr     error
	hasMinted     bool
	hasMintedErr  error
	nextTokenID   int64
	registered    []uuid.UUID
	minted        []uuid.UUID
	tokenURIs     map[int64]string
	hasMintedCall int
}

func newFakeChain() *fakeChain {
	return &fakeChain{nextTokenID: 42, tokenURIs: make(map[int64]string)}
}

func (f *fakeChain) RegisterPath(ctx context.Context, pathID uuid.UUID, contentHash [32]byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.registered = append(f.registered, pathID)
	return "0xregister", nil
}

func (f *fakeChain) MintCertificate(ctx context.Context, toWallet string, pathID uuid.UUID) (int64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mintErr != nil {
		return 0, "", f.mintErr
	}
	f.minted = append(f.minted, pathID)
	return f.nextTokenID, "0xmint", nil
}

func (f *fakeChain) SetTokenURI(ctx context.Context, tokenID int64, uri string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setURIErr != nil {
		return "", f.setURIErr
	}
	f.tokenURIs[tokenID] = uri
	return "0xseturi", nil
}

func (f *fakeChain) HasUserMinted(ctx context.Context, wallet string, pathID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasMintedCall++
	return f.hasMinted, f.hasMintedErr
}

func (f *fakeChain) ExplorerTxURL(txHash string) string { return "https://explorer.test/tx/" + txHash }
func (f *fakeChain) ContractAddress() string            { return "0xC0n7r4c7" }

type fakeIPFS struct {
	mu       sync.Mutex
	pinErr   error
	pinCount int
}

func (f *fakeIPFS) PinFile(ctx context.Context, filename string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinErr != nil {
		return "", f.pinErr
	}
	f.pinCount++
	return "QmImage" + filename, nil
}

func (f *fakeIPFS) PinJSON(ctx context.Context, name string, doc any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinErr != nil {
		return "", f.pinErr
	}
	f.pinCount++
	return "QmMeta" + name, nil
}

func (f *fakeIPFS) GatewayURL(cid string) string { return "https://gateway.test/ipfs/" + cid }

type fakeCerts struct {
	err error
}

func (f *fakeCerts) EnsureImage(ctx context.Context, pathID uuid.UUID, pathTitle string, recipientWallet string) (string, []byte, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return "cert.png", []byte("png-bytes"), nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*types.User)}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[user.WalletAddress]; ok {
		existing.Name = user.Name
		existing.Country = user.Country
		return existing, nil
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.WalletAddress] = user
	return user, nil
}

func (f *fakeUserRepo) GetByWallet(ctx context.Context, tx *gorm.DB, walletAddress string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[walletAddress], nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.User
	for _, u := range f.users {
		for _, id := range userIDs {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

type fakeProgressRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.UserProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[uuid.UUID]*types.UserProgress)}
}

func (f *fakeProgressRepo) Create(ctx context.Context, tx *gorm.DB, progress *types.UserProgress) (*types.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if progress.ID == uuid.Nil {
		progress.ID = uuid.New()
	}
	f.rows[progress.ID] = progress
	return progress, nil
}

func (f *fakeProgressRepo) GetByUserAndPath(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pathID uuid.UUID) (*types.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.UserID == userID && p.PathID == pathID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProgressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.UserProgress
	for _, p := range f.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) UpdateFields(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[progressID]
	if !ok {
		return nil
	}
	if v, ok := updates["is_complete"].(bool); ok {
		p.IsComplete = v
	}
	if v, ok := updates["current_level"].(int); ok {
		p.CurrentLevel = v
	}
	return nil
}

type fakeLevelProgressRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.LevelProgress
}

func newFakeLevelProgressRepo() *fakeLevelProgressRepo {
	return &fakeLevelProgressRepo{rows: make(map[uuid.UUID]*types.LevelProgress)}
}

func (f *fakeLevelProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, lp *types.LevelProgress) (*types.LevelProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ProgressID == lp.ProgressID && row.LevelNumber == lp.LevelNumber {
			row.CorrectAnswers = lp.CorrectAnswers
			row.TotalQuestions = lp.TotalQuestions
			row.IsComplete = true
			return row, nil
		}
	}
	if lp.ID == uuid.Nil {
		lp.ID = uuid.New()
	}
	lp.IsComplete = true
	f.rows[lp.ID] = lp
	return lp, nil
}

func (f *fakeLevelProgressRepo) GetByProgressID(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) ([]*types.LevelProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.LevelProgress
	for _, row := range f.rows {
		if row.ProgressID == progressID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeLevelProgressRepo) GetByProgressAndLevel(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, levelNumber int) (*types.LevelProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ProgressID == progressID && row.LevelNumber == levelNumber {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeLevelProgressRepo) CountByProgressID(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.ProgressID == progressID {
			n++
		}
	}
	return n, nil
}

type fakeNFTRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*types.UserNFT
	createErr error
}

func newFakeNFTRepo() *fakeNFTRepo {
	return &fakeNFTRepo{rows: make(map[uuid.UUID]*types.UserNFT)}
}

func (f *fakeNFTRepo) Create(ctx context.Context, tx *gorm.DB, nft *types.UserNFT) (*types.UserNFT, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if nft.ID == uuid.Nil {
		nft.ID = uuid.New()
	}
	f.rows[nft.ID] = nft
	return nft, nil
}

func (f *fakeNFTRepo) GetByUserAndPath(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pathID uuid.UUID) (*types.UserNFT, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.UserID == userID && n.PathID == pathID {
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeNFTRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserNFT, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.UserNFT
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

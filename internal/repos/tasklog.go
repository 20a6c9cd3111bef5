package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

type TaskLogRepo interface {
	CreateTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error
	TaskExists(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (bool, error)
	// Append assigns the next seq inside a transaction. Exactly one worker
	// owns a task id, so two appenders never race on the same task.
	Append(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, level string, status string, data datatypes.JSON) (*types.TaskLogEntry, error)
	GetEntries(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TaskLogEntry, error)
	// DeleteTask removes the head row and every entry. Only used when a
	// queued job is rejected before a worker ever saw it.
	DeleteTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error
}

type taskLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskLogRepo(db *gorm.DB, baseLog *logger.Logger) TaskLogRepo {
	return &taskLogRepo{db: db, log: baseLog.With("repo", "TaskLogRepo")}
}

func (r *taskLogRepo) CreateTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(&types.TaskLog{TaskID: taskID}).Error
}

func (r *taskLogRepo) TaskExists(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.TaskLog{}).
		Where("task_id = ?", taskID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *taskLogRepo) Append(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, level string, status string, data datatypes.JSON) (*types.TaskLogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entry *types.TaskLogEntry
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var maxSeq int64
		if err := txx.Model(&types.TaskLogEntry{}).
			Where("task_id = ?", taskID).
			Select("COALESCE(MAX(seq), -1)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		entry = &types.TaskLogEntry{
			ID:     uuid.New(),
			TaskID: taskID,
			Seq:    int(maxSeq) + 1,
			Level:  level,
			Status: status,
			Data:   data,
		}
		return txx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *taskLogRepo) DeleteTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("task_id = ?", taskID).Delete(&types.TaskLogEntry{}).Error; err != nil {
			return err
		}
		return txx.Where("task_id = ?", taskID).Delete(&types.TaskLog{}).Error
	})
}

func (r *taskLogRepo) GetEntries(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TaskLogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TaskLogEntry
	if err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("seq ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

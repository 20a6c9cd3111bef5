package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/sse"
	"github.com/noodl-labs/kodo-backend/internal/types"
)

// TaskLogService owns the pollable progress log of asynchronous generation
// runs and mirrors every appended entry onto the task's SSE channel.
type TaskLogService interface {
	CreateTask(ctx context.Context, taskID uuid.UUID) error
	Append(ctx context.Context, taskID uuid.UUID, level string, status string, data map[string]any) error
	Read(ctx context.Context, taskID uuid.UUID) (*TaskStatus, error)
	// Delete discards a task that was never handed to a worker, so a
	// rejected enqueue does not leave a pollable task id behind.
	Delete(ctx context.Context, taskID uuid.UUID) error
}

// TaskStatus is the poll response. Done flips when the last entry carries a
// terminal level; Failed narrows which terminal it was.
type TaskStatus struct {
	TaskID  uuid.UUID       `json:"task_id"`
	Entries []TaskStatusRow `json:"progress"`
	Done    bool            `json:"done"`
	Failed  bool            `json:"failed"`
}

type TaskStatusRow struct {
	Seq    int            `json:"seq"`
	Level  string         `json:"level"`
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
}

type taskLogService struct {
	taskLogRepo repos.TaskLogRepo
	hub         *sse.Hub
	log         *logger.Logger
}

func NewTaskLogService(taskLogRepo repos.TaskLogRepo, hub *sse.Hub, baseLog *logger.Logger) TaskLogService {
	return &taskLogService{
		taskLogRepo: taskLogRepo,
		hub:         hub,
		log:         baseLog.With("service", "TaskLogService"),
	}
}

func (s *taskLogService) CreateTask(ctx context.Context, taskID uuid.UUID) error {
	return s.taskLogRepo.CreateTask(ctx, nil, taskID)
}

func (s *taskLogService) Append(ctx context.Context, taskID uuid.UUID, level string, status string, data map[string]any) error {
	var payload datatypes.JSON
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(raw)
	}
	entry, err := s.taskLogRepo.Append(ctx, nil, taskID, level, status, payload)
	if err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.Broadcast(sse.Message{
			Channel: sse.TaskChannel(taskID),
			Event:   sse.EventTaskProgress,
			Data: TaskStatusRow{
				Seq:    entry.Seq,
				Level:  entry.Level,
				Status: entry.Status,
				Data:   data,
			},
		})
	}
	return nil
}

func (s *taskLogService) Delete(ctx context.Context, taskID uuid.UUID) error {
	return s.taskLogRepo.DeleteTask(ctx, nil, taskID)
}

// Read returns nil when the task id was never issued, so the handler can
// distinguish 404 from an empty log.
func (s *taskLogService) Read(ctx context.Context, taskID uuid.UUID) (*TaskStatus, error) {
	exists, err := s.taskLogRepo.TaskExists(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	entries, err := s.taskLogRepo.GetEntries(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	status := &TaskStatus{TaskID: taskID, Entries: make([]TaskStatusRow, 0, len(entries))}
	for _, e := range entries {
		row := TaskStatusRow{Seq: e.Seq, Level: e.Level, Status: e.Status}
		if len(e.Data) > 0 {
			_ = json.Unmarshal(e.Data, &row.Data)
		}
		status.Entries = append(status.Entries, row)
	}
	if n := len(status.Entries); n > 0 {
		last := status.Entries[n-1]
		switch last.Level {
		case types.LogLevelSuccess:
			status.Done = true
		case types.LogLevelError:
			status.Done = true
			status.Failed = true
		}
	}
	return status, nil
}

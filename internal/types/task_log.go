package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Log entry levels. A terminal entry is either success or error; clients
// watch for the typed level rather than scanning status strings.
const (
	LogLevelInfo    = "info"
	LogLevelSuccess = "success"
	LogLevelError   = "error"
)

// TaskLog is the head row for one asynchronous generation run. It exists so
// an empty log is distinguishable from an unknown task id.
type TaskLog struct {
	TaskID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"task_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (TaskLog) TableName() string { return "task_logs" }

// TaskLogEntry rows are append-only and ordered by seq within a task. They
// are never deleted; unbounded growth is an accepted tradeoff.
type TaskLogEntry struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"-"`
	TaskID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_task_log_seq,priority:1" json:"-"`
	Seq       int            `gorm:"column:seq;not null;uniqueIndex:idx_task_log_seq,priority:2" json:"seq"`
	Level     string         `gorm:"column:level;not null" json:"level"`
	Status    string         `gorm:"column:status;not null" json:"status"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (TaskLogEntry) TableName() string { return "task_log_entries" }

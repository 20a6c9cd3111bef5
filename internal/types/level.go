package types

import (
	"time"

	"github.com/google/uuid"
)

// Level numbers are 1-based and contiguous within a path. The composite
// unique index is what makes worker retries safe: re-creating an existing
// (path_id, level_number) is a conflict-ignore, not an error.
type Level struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PathID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_level_path_number,priority:1" json:"path_id"`
	LevelNumber int       `gorm:"column:level_number;not null;uniqueIndex:idx_level_path_number,priority:2" json:"level_number"`
	LevelTitle  string    `gorm:"column:level_title;not null" json:"level_title"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Level) TableName() string { return "levels" }

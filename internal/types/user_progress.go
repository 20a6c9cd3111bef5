package types

import (
	"time"

	"github.com/google/uuid"
)

// IsComplete is derived: every level-score upsert re-checks whether
// LevelProgress rows cover levels 1..total_levels and sets the flag. The
// minting workflow only reads it.
type UserProgress struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_path,priority:1" json:"user_id"`
	PathID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_path,priority:2" json:"path_id"`
	CurrentLevel int        `gorm:"column:current_level;not null;default:1" json:"current_level"`
	CurrentItem  int        `gorm:"column:current_item;not null;default:-1" json:"current_item"`
	IsComplete   bool       `gorm:"column:is_complete;not null;default:false" json:"is_complete"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	StartedAt    time.Time  `gorm:"column:started_at;not null;default:now()" json:"started_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserProgress) TableName() string { return "user_progress" }

// Submitting a level once completes it; there are no partial-credit retries.
type LevelProgress struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProgressID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_level_progress,priority:1" json:"progress_id"`
	LevelNumber    int       `gorm:"column:level_number;not null;uniqueIndex:idx_level_progress,priority:2" json:"level_number"`
	CorrectAnswers int       `gorm:"column:correct_answers;not null;default:0" json:"correct_answers"`
	TotalQuestions int       `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	IsComplete     bool      `gorm:"column:is_complete;not null;default:true" json:"is_complete"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (LevelProgress) TableName() string { return "level_progress" }

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ItemTypeSlide = "slide"
	ItemTypeQuiz  = "quiz"
)

// Content holds a markdown string for slides, or a
// {question, options[4], correctAnswerIndex, explanation} object for quizzes.
// item_index is 0-based and defines display order within the level.
type ContentItem struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LevelID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_item_level_index,priority:1" json:"level_id"`
	ItemIndex int            `gorm:"column:item_index;not null;uniqueIndex:idx_item_level_index,priority:2" json:"item_index"`
	ItemType  string         `gorm:"column:item_type;not null" json:"item_type"`
	Content   datatypes.JSON `gorm:"column:content;type:jsonb;not null" json:"content"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_items" }

type QuizContent struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

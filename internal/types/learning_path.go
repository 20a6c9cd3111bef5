package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Intent routes which prompt templates a generation run uses. It is decided
// once, before curriculum generation, and never revisited.
const (
	IntentLearn = "learn"
	IntentHelp  = "help"
)

type LearningPath struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	ShortDescription string         `gorm:"column:short_description" json:"short_description"`
	LongDescription  string         `gorm:"column:long_description" json:"long_description"`
	CreatorWallet    string         `gorm:"column:creator_wallet;not null;index" json:"creator_wallet"`
	TotalLevels      int            `gorm:"column:total_levels;not null;default:0" json:"total_levels"`
	IntentType       string         `gorm:"column:intent_type;not null;default:learn" json:"intent_type"`
	TitleEmbedding   datatypes.JSON `gorm:"column:title_embedding;type:jsonb" json:"title_embedding,omitempty"`
	ContentHash      *string        `gorm:"column:content_hash" json:"content_hash,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (LearningPath) TableName() string { return "learning_paths" }

package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WalletAddress string    `gorm:"column:wallet_address;not null;uniqueIndex" json:"wallet_address"`
	Name          string    `gorm:"column:name" json:"name"`
	Country       string    `gorm:"column:country" json:"country"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }

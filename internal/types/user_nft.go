package types

import (
	"time"

	"github.com/google/uuid"
)

// One certificate per (user, path); the row is written only after a
// successful on-chain mint and off-chain pin.
type UserNFT struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_nft_user_path,priority:1" json:"user_id"`
	PathID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_nft_user_path,priority:2" json:"path_id"`
	TokenID         int64     `gorm:"column:token_id;not null" json:"token_id"`
	ContractAddress string    `gorm:"column:contract_address;not null" json:"contract_address"`
	MetadataURL     string    `gorm:"column:metadata_url;not null" json:"metadata_url"`
	ImageURL        string    `gorm:"column:image_url;not null" json:"image_url"`
	MintedAt        time.Time `gorm:"column:minted_at;not null;default:now()" json:"minted_at"`
}

func (UserNFT) TableName() string { return "user_nfts" }

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

// SavedAddress is an entry in the user's address book. Orders copy the value,
// never reference the row.
type SavedAddress struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID     `gorm:"column:user_id;type:uuid;not null;index"`
	Address   types.Address `gorm:"column:address;type:jsonb;serializer:json;not null"`
	IsDefault bool          `gorm:"column:is_default;not null;default:false"`
	Deleted   bool          `gorm:"column:deleted;not null;default:false"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

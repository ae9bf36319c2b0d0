package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

// CoinRule configures coin earning for one subcategory. At most one active
// (non-deleted) rule may exist per subcategory; the partial unique index in the
// schema enforces what the legacy system only pre-checked.
type CoinRule struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubcategoryID uuid.UUID          `gorm:"column:subcategory_id;type:uuid;not null"`
	Type          enums.CoinRuleType `gorm:"column:type;type:text;not null"`
	Value         int                `gorm:"column:value;not null"`
	Enabled       bool               `gorm:"column:enabled;not null;default:true"`
	Deleted       bool               `gorm:"column:deleted;not null;default:false"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// CoinTransaction is an append-only ledger entry. Coins is always a positive
// magnitude; Type carries the direction. OrderID is null for entries written
// during order placement before the order row exists, then backfilled in the
// same transaction.
type CoinTransaction struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index:idx_coin_txns_user"`
	OrderID   *uuid.UUID        `gorm:"column:order_id;type:uuid;index:idx_coin_txns_order"`
	Coins     int               `gorm:"column:coins;not null"`
	Type      enums.CoinTxnType `gorm:"column:type;type:text;not null"`
	OrderType enums.OrderType   `gorm:"column:order_type;type:text;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

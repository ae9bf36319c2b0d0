package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one (user, product, unit) row in the active cart. Lines are soft
// deleted when the quantity would drop to zero, when removed explicitly, or in
// bulk when an order is placed from the cart. Quantity stays >= 1 while the
// line is live.
type CartLine struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_cart_lines_user"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	UnitID    uuid.UUID `gorm:"column:unit_id;type:uuid;not null"`
	Quantity  int       `gorm:"column:quantity;not null;default:1"`
	Deleted   bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

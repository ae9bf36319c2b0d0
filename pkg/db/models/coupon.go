package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

// Coupon is immutable during a single checkout. Upto caps the computed
// discount; zero means uncapped. MinPrice of zero means no floor.
type Coupon struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string            `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	DiscountPercent float64           `gorm:"column:discount_percent;not null"`
	Upto            int               `gorm:"column:upto;not null;default:0"`
	MinPrice        int               `gorm:"column:min_price;not null;default:0"`
	Use             enums.CouponUsage `gorm:"column:use;type:text;not null;default:'many'"`
	Deleted         bool              `gorm:"column:deleted;not null;default:false"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponRedemption records one successful use of a coupon by a user. For
// use:"one" coupons the unique (coupon_id, user_id) index is the enforcement
// point; the row is only written inside the order placement transaction.
type CouponRedemption struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:ux_coupon_redemptions_coupon_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_coupon_redemptions_coupon_user"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

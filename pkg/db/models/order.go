package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

// Order is the settled record of a checkout. Address and Lines are snapshots
// frozen at placement; they never change when the catalog or address book
// does. CoinsCredited is the one-shot gate that keeps repeated Delivered
// transitions from crediting earn coins twice.
type Order struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string             `gorm:"column:order_number;not null;uniqueIndex:ux_orders_number"`
	CreatedBy   uuid.UUID          `gorm:"column:created_by;type:uuid;not null;index:idx_orders_created_by"`
	Type        enums.OrderType    `gorm:"column:type;type:text;not null;default:'OnlineStore'"`
	Status      enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'Pending'"`
	Address     types.Address      `gorm:"column:address;type:jsonb;serializer:json;not null"`
	Lines       []types.OrderLine  `gorm:"column:lines;type:jsonb;serializer:json;not null"`
	Summary     types.OrderSummary `gorm:"column:summary;type:jsonb;serializer:json;not null"`
	CouponID    *uuid.UUID         `gorm:"column:coupon_id;type:uuid"`

	CoinsCredited bool `gorm:"column:coins_credited;not null;default:false"`

	IsReturn     bool               `gorm:"column:is_return;not null;default:false"`
	ReturnStatus enums.ReturnStatus `gorm:"column:return_status;type:text;not null;default:'None'"`
	Refunded     bool               `gorm:"column:refunded;not null;default:false"`
	RefundID     *string            `gorm:"column:refund_id"`
	RefundNote   *string            `gorm:"column:refund_note"`

	EstimatedDelivery *time.Time `gorm:"column:estimated_delivery"`
	DeliveredAt       *time.Time `gorm:"column:delivered_at"`
	CancelledAt       *time.Time `gorm:"column:cancelled_at"`

	Payment   *Payment  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

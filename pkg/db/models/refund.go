package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Refund records one refund attempt against the gateway. Amount always equals
// the order's grand total; partial refunds are not modeled. RefundID is the
// idempotency handle sent to the gateway, unique so a retried workflow can
// never create a second row for the same attempt.
type Refund struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_refunds_order"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	RefundID        string          `gorm:"column:refund_id;not null;uniqueIndex:ux_refunds_refund_id"`
	ExternalOrderID string          `gorm:"column:external_order_id"`
	Amount          int             `gorm:"column:amount;not null"`
	Reason          string          `gorm:"column:reason;not null"`
	GatewayResponse json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// ReturnRequest is the single return cycle modeled per order.
type ReturnRequest struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_return_requests_order"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Reason    string    `gorm:"column:reason;not null"`
	Comment   *string   `gorm:"column:comment"`
	ImageURL  *string   `gorm:"column:image_url"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

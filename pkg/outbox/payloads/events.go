package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

// OrderCreatedEvent signals a newly placed order awaiting payment confirmation.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	UserID      uuid.UUID  `json:"user_id"`
	GrandTotal  int        `json:"grand_total"`
	CoinsUsed   int        `json:"coins_used"`
	CouponID    *uuid.UUID `json:"coupon_id,omitempty"`
}

// OrderPaidEvent is emitted once the gateway confirms payment.
type OrderPaidEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	PaidAt    time.Time `json:"paid_at"`
}

// OrderDeliveredEvent triggers the one-shot coin credit for the order.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	CoinsEarned int       `json:"coins_earned"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderCancelledEvent drives refund reconciliation after a cancellation.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      int             `json:"amount"`
	CancelledBy enums.ActorRole `json:"cancelled_by"`
	CancelledAt time.Time       `json:"cancelled_at"`
}

// ReturnApprovedEvent drives refund reconciliation after an approved return.
type ReturnApprovedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int       `json:"amount"`
	ApprovedAt time.Time `json:"approved_at"`
}

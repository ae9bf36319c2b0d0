package refunds

import (
	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

// CancelInput identifies who is cancelling which order.
type CancelInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Role    enums.ActorRole
}

// ReturnInput is a shopper's return request.
type ReturnInput struct {
	OrderID  uuid.UUID
	UserID   uuid.UUID
	Reason   string
	Comment  *string
	ImageURL *string
}

// ReturnDecision is the admin verdict on a pending return.
type ReturnDecision struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Approve bool
}

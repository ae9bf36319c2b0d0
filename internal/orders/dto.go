package orders

import (
	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

// PlaceInput carries everything checkout submits. CoinsToUse is the shopper's
// requested spend; the service clamps it to what the balance and the cart's
// coin-program lines actually allow, it never errors on an optimistic number.
type PlaceInput struct {
	UserID     uuid.UUID
	Role       enums.ActorRole
	AddressID  uuid.UUID
	CouponID   *uuid.UUID
	Donation   int
	CoinsToUse int
	OrderType  enums.OrderType
}

// PlacedOrder is the checkout result: the persisted order plus the gateway
// redirect the client must follow to pay.
type PlacedOrder struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"payment_url"`
	SessionID  string        `json:"session_id"`
}

// StatusInput is an admin or delivery status override.
type StatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	ActorID uuid.UUID
	Role    enums.ActorRole
}

// PaymentConfirmation is the parsed gateway webhook for a completed charge.
type PaymentConfirmation struct {
	SessionID      string
	GatewayOrderID string
	Status         string
	RawBody        []byte
}

// Page is one cursor-paginated slice of a user's order history.
type Page struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox/payloads"
	"github.com/swiftbasket/swiftbasket-backend/pkg/shipping"
)

type coinCreditor interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int, orderID uuid.UUID, orderType enums.OrderType) error
}

type refundEnsurer interface {
	EnsureRefund(ctx context.Context, orderID uuid.UUID) error
}

type shipmentPusher interface {
	Enabled() bool
	CreateShipment(ctx context.Context, req shipping.ShipmentRequest) error
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Handlers owns the domain side effects driven by outbox events: the one-shot
// coin credit on delivery, refund reconciliation for cancellations and
// approved returns, and the courier push once payment clears.
type Handlers struct {
	coins   coinCreditor
	refunds refundEnsurer
	courier shipmentPusher
	orders  orderLoader
	logg    *logger.Logger
}

// NewHandlers wires the handler set.
func NewHandlers(coins coinCreditor, refunds refundEnsurer, courier shipmentPusher, orders orderLoader, logg *logger.Logger) (*Handlers, error) {
	if coins == nil {
		return nil, fmt.Errorf("coin service required")
	}
	if refunds == nil {
		return nil, fmt.Errorf("refund service required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Handlers{coins: coins, refunds: refunds, courier: courier, orders: orders, logg: logg}, nil
}

// RegisterAll binds every handler to its event type.
func (h *Handlers) RegisterAll(d *Dispatcher) {
	d.Register(enums.EventOrderCreated, h.HandleOrderCreated)
	d.Register(enums.EventOrderPaid, h.HandleOrderPaid)
	d.Register(enums.EventOrderDelivered, h.HandleOrderDelivered)
	d.Register(enums.EventOrderCancelled, h.HandleRefundable)
	d.Register(enums.EventReturnApproved, h.HandleRefundable)
}

// HandleOrderCreated is an audit hook; placement itself already settled
// everything transactionally.
func (h *Handlers) HandleOrderCreated(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error {
	var data payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return fmt.Errorf("decode order created payload: %w", err)
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"order_id":     data.OrderID.String(),
		"order_number": data.OrderNumber,
		"grand_total":  data.GrandTotal,
	})
	h.logg.Info(logCtx, "order awaiting payment")
	return nil
}

// HandleOrderPaid pushes the order to the courier. Retried on failure; the
// courier dedupes on order number.
func (h *Handlers) HandleOrderPaid(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error {
	if h.courier == nil || !h.courier.Enabled() {
		return nil
	}

	var data payloads.OrderPaidEvent
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return fmt.Errorf("decode order paid payload: %w", err)
	}

	order, err := h.orders.FindByID(ctx, data.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", data.OrderID, err)
	}

	lines := make([]shipping.ShipmentLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, shipping.ShipmentLine{
			Name:  line.Name,
			Units: line.Quantity,
			Price: line.SellingPrice,
			SKU:   line.UnitID.String(),
		})
	}

	return h.courier.CreateShipment(ctx, shipping.ShipmentRequest{
		OrderNumber: order.OrderNumber,
		OrderDate:   order.CreatedAt,
		Name:        order.Address.Name,
		Phone:       order.Address.Phone,
		Address:     order.Address,
		Lines:       lines,
		SubTotal:    order.Summary.ItemTotal,
	})
}

// HandleOrderDelivered performs the coin credit. The credit itself is
// idempotent per (user, order), so replays of this event are harmless.
func (h *Handlers) HandleOrderDelivered(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error {
	var data payloads.OrderDeliveredEvent
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return fmt.Errorf("decode order delivered payload: %w", err)
	}
	if data.CoinsEarned <= 0 {
		return nil
	}

	order, err := h.orders.FindByID(ctx, data.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", data.OrderID, err)
	}
	if err := h.coins.Credit(ctx, data.UserID, data.CoinsEarned, data.OrderID, order.Type); err != nil {
		return fmt.Errorf("credit coins for order %s: %w", data.OrderID, err)
	}
	return nil
}

// HandleRefundable reconciles the gateway refund for a cancelled order or an
// approved return.
func (h *Handlers) HandleRefundable(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error {
	return h.refunds.EnsureRefund(ctx, event.AggregateID)
}

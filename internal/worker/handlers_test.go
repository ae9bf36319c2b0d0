package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox/payloads"
	"github.com/swiftbasket/swiftbasket-backend/pkg/shipping"
	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

type stubCreditor struct {
	credited  int
	orderID   uuid.UUID
	orderType enums.OrderType
}

func (s *stubCreditor) Credit(ctx context.Context, userID uuid.UUID, amount int, orderID uuid.UUID, orderType enums.OrderType) error {
	s.credited += amount
	s.orderID = orderID
	s.orderType = orderType
	return nil
}

type stubEnsurer struct {
	orderIDs []uuid.UUID
}

func (s *stubEnsurer) EnsureRefund(ctx context.Context, orderID uuid.UUID) error {
	s.orderIDs = append(s.orderIDs, orderID)
	return nil
}

type stubCourier struct {
	enabled bool
	pushed  []shipping.ShipmentRequest
}

func (s *stubCourier) Enabled() bool { return s.enabled }

func (s *stubCourier) CreateShipment(ctx context.Context, req shipping.ShipmentRequest) error {
	s.pushed = append(s.pushed, req)
	return nil
}

type stubOrderLoader struct {
	order *models.Order
}

func (s *stubOrderLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func mustUnmarshalEnvelope(t *testing.T, payload []byte, envelope *outbox.PayloadEnvelope) {
	t.Helper()
	if err := json.Unmarshal(payload, envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
}

func newTestHandlers(t *testing.T, coins *stubCreditor, refunds *stubEnsurer, courier *stubCourier, orders *stubOrderLoader) *Handlers {
	t.Helper()
	h, err := NewHandlers(coins, refunds, courier, orders, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	return h
}

func TestHandleOrderDeliveredCreditsCoins(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	coins := &stubCreditor{}
	orders := &stubOrderLoader{order: &models.Order{ID: orderID, Type: enums.OrderTypeLocalStore}}
	h := newTestHandlers(t, coins, &stubEnsurer{}, &stubCourier{}, orders)

	event := outboxEvent(t, enums.EventOrderDelivered, payloads.OrderDeliveredEvent{
		OrderID:     orderID,
		UserID:      uuid.New(),
		CoinsEarned: 32,
		DeliveredAt: time.Now(),
	})
	var envelope outbox.PayloadEnvelope
	mustUnmarshalEnvelope(t, event.Payload, &envelope)

	if err := h.HandleOrderDelivered(context.Background(), event, envelope); err != nil {
		t.Fatalf("HandleOrderDelivered: %v", err)
	}
	if coins.credited != 32 || coins.orderID != orderID {
		t.Fatalf("unexpected credit: %+v", coins)
	}
	if coins.orderType != enums.OrderTypeLocalStore {
		t.Fatalf("credit must carry the order's type, got %s", coins.orderType)
	}
}

func TestHandleOrderDeliveredSkipsZeroEarn(t *testing.T) {
	t.Parallel()

	coins := &stubCreditor{}
	h := newTestHandlers(t, coins, &stubEnsurer{}, &stubCourier{}, &stubOrderLoader{})

	event := outboxEvent(t, enums.EventOrderDelivered, payloads.OrderDeliveredEvent{OrderID: uuid.New()})
	var envelope outbox.PayloadEnvelope
	mustUnmarshalEnvelope(t, event.Payload, &envelope)

	if err := h.HandleOrderDelivered(context.Background(), event, envelope); err != nil {
		t.Fatalf("HandleOrderDelivered: %v", err)
	}
	if coins.credited != 0 {
		t.Fatal("zero-earn orders must not touch the ledger")
	}
}

func TestHandleOrderPaidPushesShipment(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	courier := &stubCourier{enabled: true}
	orders := &stubOrderLoader{order: &models.Order{
		ID:          orderID,
		OrderNumber: "OD20250901AB12CD34",
		Address:     types.Address{Name: "Asha", Phone: "9999999999", City: "Pune"},
		Lines: []types.OrderLine{{
			UnitID:       uuid.New(),
			Name:         "Ghee",
			SellingPrice: 200,
			Quantity:     2,
		}},
		Summary: types.OrderSummary{ItemTotal: 400},
	}}
	h := newTestHandlers(t, &stubCreditor{}, &stubEnsurer{}, courier, orders)

	event := outboxEvent(t, enums.EventOrderPaid, payloads.OrderPaidEvent{OrderID: orderID})
	var envelope outbox.PayloadEnvelope
	mustUnmarshalEnvelope(t, event.Payload, &envelope)

	if err := h.HandleOrderPaid(context.Background(), event, envelope); err != nil {
		t.Fatalf("HandleOrderPaid: %v", err)
	}
	if len(courier.pushed) != 1 {
		t.Fatalf("expected one shipment push, got %d", len(courier.pushed))
	}
	req := courier.pushed[0]
	if req.OrderNumber != "OD20250901AB12CD34" || req.SubTotal != 400 || len(req.Lines) != 1 {
		t.Fatalf("unexpected shipment: %+v", req)
	}
	if req.Lines[0].Units != 2 || req.Lines[0].Price != 200 {
		t.Fatalf("unexpected shipment line: %+v", req.Lines[0])
	}
}

func TestHandleOrderPaidNoopWhenCourierDisabled(t *testing.T) {
	t.Parallel()

	courier := &stubCourier{enabled: false}
	h := newTestHandlers(t, &stubCreditor{}, &stubEnsurer{}, courier, &stubOrderLoader{})

	event := outboxEvent(t, enums.EventOrderPaid, payloads.OrderPaidEvent{OrderID: uuid.New()})
	var envelope outbox.PayloadEnvelope
	mustUnmarshalEnvelope(t, event.Payload, &envelope)

	if err := h.HandleOrderPaid(context.Background(), event, envelope); err != nil {
		t.Fatalf("HandleOrderPaid: %v", err)
	}
	if len(courier.pushed) != 0 {
		t.Fatal("disabled courier must not receive shipments")
	}
}

func TestHandleRefundableForwardsAggregate(t *testing.T) {
	t.Parallel()

	refunds := &stubEnsurer{}
	h := newTestHandlers(t, &stubCreditor{}, refunds, &stubCourier{}, &stubOrderLoader{})

	event := outboxEvent(t, enums.EventOrderCancelled, payloads.OrderCancelledEvent{})
	var envelope outbox.PayloadEnvelope
	mustUnmarshalEnvelope(t, event.Payload, &envelope)

	if err := h.HandleRefundable(context.Background(), event, envelope); err != nil {
		t.Fatalf("HandleRefundable: %v", err)
	}
	if len(refunds.orderIDs) != 1 || refunds.orderIDs[0] != event.AggregateID {
		t.Fatalf("refund reconciliation must target the aggregate, got %v", refunds.orderIDs)
	}
}

package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/internal/cart"
	"github.com/swiftbasket/swiftbasket-backend/internal/coins"
	"github.com/swiftbasket/swiftbasket-backend/internal/coupons"
	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox"
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
	"github.com/swiftbasket/swiftbasket-backend/pkg/payment"
	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

type stubOrdersRepo struct {
	order   *models.Order
	payment *models.Payment
	address *models.SavedAddress
	user    *models.User

	created        *models.Order
	createdPayment *models.Payment
	statusSet      *enums.OrderStatus
	deliveredAt    *time.Time
	claimResult    bool
	claimCalls     int
	acceptResult   bool
	acceptCalls    int
	confirmed      bool
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	s.created = order
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if s.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if s.order == nil {
		return nil, "", nil
	}
	return []models.Order{*s.order}, "", nil
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	s.statusSet = &status
	return nil
}

func (s *stubOrdersRepo) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.deliveredAt = &at
	return nil
}

func (s *stubOrdersRepo) ClaimCoinCredit(ctx context.Context, id uuid.UUID) (bool, error) {
	s.claimCalls++
	return s.claimResult, nil
}

func (s *stubOrdersRepo) AcceptPending(ctx context.Context, id uuid.UUID, estimatedDelivery time.Time) (bool, error) {
	s.acceptCalls++
	return s.acceptResult, nil
}

func (s *stubOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.createdPayment = payment
	return nil
}

func (s *stubOrdersRepo) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return s.payment, nil
}

func (s *stubOrdersRepo) FindPaymentBySession(ctx context.Context, sessionID string) (*models.Payment, error) {
	return s.payment, nil
}

func (s *stubOrdersRepo) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, response json.RawMessage) error {
	s.confirmed = true
	return nil
}

func (s *stubOrdersRepo) GetSavedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.SavedAddress, error) {
	return s.address, nil
}

func (s *stubOrdersRepo) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.user == nil {
		return &models.User{ID: userID}, nil
	}
	return s.user, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubCartQuoter struct {
	quote   *cart.Quote
	cleared bool
}

func (s *stubCartQuoter) Quote(ctx context.Context, userID uuid.UUID) (*cart.Quote, error) {
	if s.quote == nil {
		return &cart.Quote{}, nil
	}
	return s.quote, nil
}

func (s *stubCartQuoter) ClearLines(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	s.cleared = true
	return nil
}

type stubCoinSettler struct {
	hasOrders bool
	eligible  int
	usable    int
	earned    int

	deducted   int
	attachedTo *uuid.UUID
}

func (s *stubCoinSettler) HasQualifyingOrders(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.hasOrders, nil
}

func (s *stubCoinSettler) EligibleForUse(ctx context.Context, lines []coins.EarnLine) (int, error) {
	return s.eligible, nil
}

func (s *stubCoinSettler) MaxUsable(ctx context.Context, userID uuid.UUID, eligibleCoins, orderTotal int) (int, error) {
	return s.usable, nil
}

func (s *stubCoinSettler) CalculateEarned(ctx context.Context, lines []coins.EarnLine) (int, error) {
	return s.earned, nil
}

func (s *stubCoinSettler) Deduct(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, orderID *uuid.UUID, orderType enums.OrderType) (*models.CoinTransaction, error) {
	s.deducted = amount
	return &models.CoinTransaction{ID: uuid.New(), UserID: userID, Coins: amount}, nil
}

func (s *stubCoinSettler) AttachOrder(ctx context.Context, tx *gorm.DB, txnID, orderID uuid.UUID) error {
	s.attachedTo = &orderID
	return nil
}

type stubCouponSettler struct {
	validation *coupons.Validation
	redeemed   bool
}

func (s *stubCouponSettler) Validate(ctx context.Context, couponID, userID uuid.UUID, cartTotal int) (*coupons.Validation, error) {
	if s.validation == nil {
		return &coupons.Validation{}, nil
	}
	return s.validation, nil
}

func (s *stubCouponSettler) Redeem(ctx context.Context, tx *gorm.DB, coupon *models.Coupon, userID, orderID uuid.UUID) error {
	s.redeemed = true
	return nil
}

type stubGateway struct {
	session *payment.Session
	err     error
	calls   int
}

func (s *stubGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.session != nil {
		return s.session, nil
	}
	return &payment.Session{SessionID: "sess_1", GatewayOrderID: "gw_1", PaymentURL: "https://pay.example/sess_1"}, nil
}

type stubOutbox struct {
	emitted []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.emitted = append(s.emitted, event)
	return nil
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.emitted = append(s.emitted, event)
	return nil
}

type orderFixture struct {
	repo    *stubOrdersRepo
	cart    *stubCartQuoter
	coins   *stubCoinSettler
	coupons *stubCouponSettler
	gateway *stubGateway
	outbox  *stubOutbox
	svc     Service
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		repo: &stubOrdersRepo{
			address: &models.SavedAddress{ID: uuid.New(), Address: types.Address{Name: "Asha", City: "Pune"}},
		},
		cart: &stubCartQuoter{quote: &cart.Quote{
			Lines: []cart.QuoteLine{{
				ProductID:    uuid.New(),
				UnitID:       uuid.New(),
				Name:         "Ghee",
				SellingPrice: 200,
				MRP:          200,
				Quantity:     2,
				LineTotal:    400,
			}},
			ItemTotal: 400,
		}},
		coins:   &stubCoinSettler{},
		coupons: &stubCouponSettler{},
		gateway: &stubGateway{},
		outbox:  &stubOutbox{},
	}
	cfg := config.CheckoutConfig{FreeShippingThreshold: 500, ShippingFee: 50, ReturnWindowDays: 7}
	svc, err := NewService(f.repo, stubTxRunner{}, f.cart, f.coins, f.coupons, f.gateway, f.outbox, cfg, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func placeInput(f *orderFixture) PlaceInput {
	return PlaceInput{
		UserID:    uuid.New(),
		Role:      enums.RoleUser,
		AddressID: f.repo.address.ID,
	}
}

func TestPlaceSettlesCouponAndFee(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	couponID := uuid.New()
	f.coupons.validation = &coupons.Validation{
		Coupon:   &models.Coupon{ID: couponID},
		Discount: 30,
	}

	input := placeInput(f)
	input.CouponID = &couponID
	input.Donation = 20

	placed, err := f.svc.Place(context.Background(), input)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	// 400 - 30 + 50 fee + 20 donation = 440.
	summary := placed.Order.Summary
	if summary.ItemTotal != 400 || summary.DiscountAmount != 30 || summary.ShippingFee != 50 || summary.GrandTotal != 440 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !f.coupons.redeemed {
		t.Fatal("coupon must be redeemed in the placement transaction")
	}
	if f.repo.createdPayment == nil || f.repo.createdPayment.Amount != 440 {
		t.Fatalf("payment row should carry the grand total, got %+v", f.repo.createdPayment)
	}
	if !f.cart.cleared {
		t.Fatal("cart must be cleared after placement")
	}
	if placed.PaymentURL == "" || placed.SessionID == "" {
		t.Fatalf("gateway redirect missing: %+v", placed)
	}
	if len(f.outbox.emitted) != 1 || f.outbox.emitted[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order.created event, got %+v", f.outbox.emitted)
	}
}

func TestPlaceClampsCoinSpend(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.coins.hasOrders = true
	f.coins.eligible = 400
	f.coins.usable = 50

	input := placeInput(f)
	input.CoinsToUse = 100

	placed, err := f.svc.Place(context.Background(), input)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed.Order.Summary.CoinsUsed != 50 {
		t.Fatalf("expected coin spend clamped to 50, got %d", placed.Order.Summary.CoinsUsed)
	}
	if f.coins.deducted != 50 {
		t.Fatalf("expected ledger deduction of 50, got %d", f.coins.deducted)
	}
	if f.coins.attachedTo == nil || *f.coins.attachedTo != placed.Order.ID {
		t.Fatal("coin deduction must be back-filled with the order id")
	}
	// 400 + 50 fee - 50 coins = 400.
	if placed.Order.Summary.GrandTotal != 400 {
		t.Fatalf("expected grand total 400, got %d", placed.Order.Summary.GrandTotal)
	}
}

func TestPlaceIgnoresCoinsForNewUsers(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.coins.hasOrders = false
	f.coins.usable = 500

	input := placeInput(f)
	input.CoinsToUse = 100

	placed, err := f.svc.Place(context.Background(), input)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed.Order.Summary.CoinsUsed != 0 || f.coins.deducted != 0 {
		t.Fatal("coin spend must settle to zero before the first qualifying order")
	}
}

func TestPlaceEmptyCart(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.cart.quote = &cart.Quote{}

	_, err := f.svc.Place(context.Background(), placeInput(f))
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestPlaceUnknownAddress(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	input := placeInput(f)
	f.repo.address = nil

	_, err := f.svc.Place(context.Background(), input)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPlaceGatewayFailureWritesNothing(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.gateway.err = &payment.APIError{StatusCode: 502, Body: "bad gateway"}

	_, err := f.svc.Place(context.Background(), placeInput(f))
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if f.repo.created != nil || f.repo.createdPayment != nil || f.cart.cleared {
		t.Fatal("gateway refusal must leave no local state")
	}
}

func TestPlaceRejectsZeroTotal(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.coins.hasOrders = true
	f.coins.eligible = 1000
	f.coins.usable = 450 // covers 400 + 50 fee entirely

	input := placeInput(f)
	input.CoinsToUse = 450

	_, err := f.svc.Place(context.Background(), input)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeInvalidOrderAmount {
		t.Fatalf("expected INVALID_ORDER_AMOUNT, got %v", err)
	}
	if f.gateway.calls != 0 {
		t.Fatal("no gateway session should be staged for a non-positive total")
	}
}

func TestChangeStatusDeliveredCreditsOnce(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.repo.order = &models.Order{
		ID:        uuid.New(),
		CreatedBy: uuid.New(),
		Status:    enums.OrderStatusOutForDelivery,
		Summary:   types.OrderSummary{CoinsEarned: 32},
	}
	f.repo.claimResult = true

	got, err := f.svc.ChangeStatus(context.Background(), StatusInput{
		OrderID: f.repo.order.ID,
		Status:  enums.OrderStatusDelivered,
		ActorID: uuid.New(),
		Role:    enums.RoleDelivery,
	})
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if got.Status != enums.OrderStatusDelivered || got.DeliveredAt == nil {
		t.Fatalf("delivery not recorded: %+v", got)
	}
	if len(f.outbox.emitted) != 1 || f.outbox.emitted[0].EventType != enums.EventOrderDelivered {
		t.Fatalf("expected one order.delivered event, got %+v", f.outbox.emitted)
	}

	// Replay: the credit claim fails, so no second event is scheduled.
	f.repo.claimResult = false
	if _, err := f.svc.ChangeStatus(context.Background(), StatusInput{
		OrderID: f.repo.order.ID,
		Status:  enums.OrderStatusDelivered,
		ActorID: uuid.New(),
		Role:    enums.RoleDelivery,
	}); err != nil {
		t.Fatalf("replayed ChangeStatus: %v", err)
	}
	if len(f.outbox.emitted) != 1 {
		t.Fatalf("repeated delivery must not schedule a second credit, got %d events", len(f.outbox.emitted))
	}
}

func TestChangeStatusRejectsCancellation(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	_, err := f.svc.ChangeStatus(context.Background(), StatusInput{
		OrderID: uuid.New(),
		Status:  enums.OrderStatusCancelled,
		Role:    enums.RoleAdmin,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestChangeStatusPlainTransition(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.repo.order = &models.Order{ID: uuid.New(), Status: enums.OrderStatusAccepted}

	got, err := f.svc.ChangeStatus(context.Background(), StatusInput{
		OrderID: f.repo.order.ID,
		Status:  enums.OrderStatusShipped,
		Role:    enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if got.Status != enums.OrderStatusShipped {
		t.Fatalf("status not applied: %+v", got)
	}
	if len(f.outbox.emitted) != 0 {
		t.Fatal("plain transitions emit no events")
	}
}

func TestConfirmPaymentAcceptsOnce(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.repo.payment = &models.Payment{ID: uuid.New(), OrderID: uuid.New(), UserID: uuid.New(), SessionID: "sess_1"}
	f.repo.acceptResult = true

	conf := PaymentConfirmation{SessionID: "sess_1", Status: "paid", RawBody: []byte(`{"status":"paid"}`)}
	if err := f.svc.ConfirmPayment(context.Background(), conf); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if !f.repo.confirmed {
		t.Fatal("payment row must be marked paid")
	}
	if len(f.outbox.emitted) != 1 || f.outbox.emitted[0].EventType != enums.EventOrderPaid {
		t.Fatalf("expected one order.paid event, got %+v", f.outbox.emitted)
	}

	// Webhook replay: order is no longer Pending, so no duplicate event.
	f.repo.acceptResult = false
	if err := f.svc.ConfirmPayment(context.Background(), conf); err != nil {
		t.Fatalf("replayed ConfirmPayment: %v", err)
	}
	if len(f.outbox.emitted) != 1 {
		t.Fatalf("replay must not re-emit, got %d events", len(f.outbox.emitted))
	}
}

func TestConfirmPaymentIgnoresFailureStatus(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	f.repo.payment = &models.Payment{ID: uuid.New(), OrderID: uuid.New(), SessionID: "sess_1"}

	err := f.svc.ConfirmPayment(context.Background(), PaymentConfirmation{SessionID: "sess_1", Status: "failed"})
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if f.repo.confirmed || f.repo.acceptCalls != 0 {
		t.Fatal("failure webhooks must not touch the order")
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	owner := uuid.New()
	f.repo.order = &models.Order{ID: uuid.New(), CreatedBy: owner}

	if _, err := f.svc.Get(context.Background(), f.repo.order.ID, owner, enums.RoleUser); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	_, err := f.svc.Get(context.Background(), f.repo.order.ID, uuid.New(), enums.RoleUser)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.repo.order.ID, uuid.New(), enums.RoleAdmin); err != nil {
		t.Fatalf("admin read: %v", err)
	}
}

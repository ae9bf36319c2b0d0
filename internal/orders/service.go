package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
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
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox/payloads"
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
	"github.com/swiftbasket/swiftbasket-backend/pkg/payment"
	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

// deliveryEstimateDays is how far out the ETA is set once payment clears.
const deliveryEstimateDays = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartQuoter interface {
	Quote(ctx context.Context, userID uuid.UUID) (*cart.Quote, error)
	ClearLines(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type coinSettler interface {
	HasQualifyingOrders(ctx context.Context, userID uuid.UUID) (bool, error)
	EligibleForUse(ctx context.Context, lines []coins.EarnLine) (int, error)
	MaxUsable(ctx context.Context, userID uuid.UUID, eligibleCoins, orderTotal int) (int, error)
	CalculateEarned(ctx context.Context, lines []coins.EarnLine) (int, error)
	Deduct(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, orderID *uuid.UUID, orderType enums.OrderType) (*models.CoinTransaction, error)
	AttachOrder(ctx context.Context, tx *gorm.DB, txnID, orderID uuid.UUID) error
}

type couponSettler interface {
	Validate(ctx context.Context, couponID, userID uuid.UUID, cartTotal int) (*coupons.Validation, error)
	Redeem(ctx context.Context, tx *gorm.DB, coupon *models.Coupon, userID, orderID uuid.UUID) error
}

type sessionCreator interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

// Service covers the order lifecycle from placement through payment
// confirmation and fulfillment status changes.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*PlacedOrder, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
	ChangeStatus(ctx context.Context, input StatusInput) (*models.Order, error)
	ConfirmPayment(ctx context.Context, conf PaymentConfirmation) error
}

type service struct {
	repo    Repository
	tx      txRunner
	cart    cartQuoter
	coins   coinSettler
	coupons couponSettler
	gateway sessionCreator
	outbox  outboxPublisher
	cfg     config.CheckoutConfig
	logg    *logger.Logger
}

// NewService wires the order service with its settlement collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	cartSvc cartQuoter,
	coinSvc coinSettler,
	couponSvc couponSettler,
	gateway sessionCreator,
	outboxSvc outboxPublisher,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if coinSvc == nil {
		return nil, fmt.Errorf("coin service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		cart:    cartSvc,
		coins:   coinSvc,
		coupons: couponSvc,
		gateway: gateway,
		outbox:  outboxSvc,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

// Place runs checkout: price the cart, settle coupon and coins, stage the
// gateway session, then persist everything in one transaction. The session is
// created before any row is written so a gateway refusal leaves no local
// state to clean up.
func (s *service) Place(ctx context.Context, input PlaceInput) (*PlacedOrder, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if input.Donation < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation cannot be negative")
	}
	if input.CoinsToUse < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coin amount cannot be negative")
	}
	orderType := input.OrderType
	if orderType == "" {
		orderType = enums.OrderTypeOnlineStore
	}
	if !orderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}

	quote, err := s.cart.Quote(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(quote.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	address, err := s.repo.GetSavedAddress(ctx, input.UserID, input.AddressID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	var coupon *models.Coupon
	discount := 0
	if input.CouponID != nil {
		validation, err := s.coupons.Validate(ctx, *input.CouponID, input.UserID, quote.ItemTotal)
		if err != nil {
			return nil, err
		}
		coupon = validation.Coupon
		discount = validation.Discount
	}

	fee := cart.ShippingFee(quote.ItemTotal, s.cfg)
	preCoinTotal := quote.ItemTotal - discount + fee + input.Donation
	if preCoinTotal < 0 {
		preCoinTotal = 0
	}

	earnLines := cart.EarnLines(quote.Lines)
	coinsUsed, err := s.settleCoinSpend(ctx, input.UserID, input.CoinsToUse, earnLines, preCoinTotal)
	if err != nil {
		return nil, err
	}

	grandTotal := preCoinTotal - coinsUsed
	if grandTotal <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOrderAmount, "order total must be positive")
	}

	coinsEarned, err := s.coins.CalculateEarned(ctx, earnLines)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calculate coin earn")
	}

	orderNumber := generateOrderNumber()
	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		OrderNumber:  orderNumber,
		Amount:       grandTotal,
		CustomerID:   input.UserID.String(),
		CallbackPath: "/api/v1/webhooks/payment",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment session")
	}

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: orderNumber,
		CreatedBy:   input.UserID,
		Type:        orderType,
		Status:      enums.OrderStatusPending,
		Address:     address.Address,
		Lines:       snapshotLines(quote.Lines),
		Summary: types.OrderSummary{
			ItemTotal:      quote.ItemTotal,
			DiscountAmount: discount,
			ShippingFee:    fee,
			Donation:       input.Donation,
			CoinsUsed:      coinsUsed,
			CoinsEarned:    coinsEarned,
			GrandTotal:     grandTotal,
		},
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if coupon != nil {
			if err := s.coupons.Redeem(ctx, tx, coupon, input.UserID, order.ID); err != nil {
				return err
			}
		}
		if coinsUsed > 0 {
			txn, err := s.coins.Deduct(ctx, tx, input.UserID, coinsUsed, nil, orderType)
			if err != nil {
				return err
			}
			if txn != nil {
				if err := s.coins.AttachOrder(ctx, tx, txn.ID, order.ID); err != nil {
					return err
				}
			}
		}
		paymentRow := &models.Payment{
			OrderID:        order.ID,
			UserID:         input.UserID,
			SessionID:      session.SessionID,
			GatewayOrderID: session.GatewayOrderID,
			Amount:         grandTotal,
			Status:         enums.PaymentStatusCreated,
		}
		if err := repo.CreatePayment(ctx, paymentRow); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := s.cart.ClearLines(ctx, tx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(input.Role)},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      input.UserID,
				GrandTotal:  grandTotal,
				CoinsUsed:   coinsUsed,
				CouponID:    order.CouponID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number": order.OrderNumber,
		"grand_total":  grandTotal,
		"coins_used":   coinsUsed,
	})
	s.logg.Info(logCtx, "order placed")

	return &PlacedOrder{
		Order:      order,
		PaymentURL: session.PaymentURL,
		SessionID:  session.SessionID,
	}, nil
}

// settleCoinSpend clamps the requested coin spend to what the ledger and the
// cart's coin-program lines allow. Users without a qualifying order have no
// coin surface at all, so their requests settle to zero rather than erroring.
func (s *service) settleCoinSpend(ctx context.Context, userID uuid.UUID, requested int, earnLines []coins.EarnLine, orderTotal int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}
	hasOrders, err := s.coins.HasQualifyingOrders(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check qualifying orders")
	}
	if !hasOrders {
		return 0, nil
	}
	eligible, err := s.coins.EligibleForUse(ctx, earnLines)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute eligible coins")
	}
	usable, err := s.coins.MaxUsable(ctx, userID, eligible, orderTotal)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute usable coins")
	}
	if requested > usable {
		return usable, nil
	}
	return requested, nil
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if role != enums.RoleAdmin && role != enums.RoleDelivery && order.CreatedBy != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &Page{Orders: rows, NextCursor: next}, nil
}

// ChangeStatus applies an admin or delivery status override. The lifecycle is
// deliberately loose: any valid status can be set at any time, except
// Cancelled, which must go through the cancellation flow so coins and
// payments settle. Delivered is the one-shot that schedules the coin credit.
func (s *service) ChangeStatus(ctx context.Context, input StatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation has its own flow")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if input.Status != enums.OrderStatusDelivered {
		if err := s.repo.UpdateStatus(ctx, order.ID, input.Status); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = input.Status
		return order, nil
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.MarkDelivered(ctx, order.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark delivered")
		}
		claimed, err := repo.ClaimCoinCredit(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim coin credit")
		}
		if !claimed {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(input.Role)},
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				UserID:      order.CreatedBy,
				CoinsEarned: order.Summary.CoinsEarned,
				DeliveredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	order.Status = enums.OrderStatusDelivered
	order.DeliveredAt = &now
	order.CoinsCredited = true
	return order, nil
}

// ConfirmPayment processes the gateway's completion webhook. Replays are
// harmless: the Pending -> Accepted flip is conditional and the paid event is
// emitted at most once per order.
func (s *service) ConfirmPayment(ctx context.Context, conf PaymentConfirmation) error {
	if conf.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	paymentRow, err := s.repo.FindPaymentBySession(ctx, conf.SessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if paymentRow == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	}

	if !isSuccessfulGatewayStatus(conf.Status) {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id": conf.SessionID,
			"status":     conf.Status,
		})
		s.logg.Warn(logCtx, "ignoring non-success payment webhook")
		return nil
	}

	now := time.Now()
	estimated := now.AddDate(0, 0, deliveryEstimateDays)
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ConfirmPayment(ctx, paymentRow.ID, conf.RawBody); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
		}
		accepted, err := repo.AcceptPending(ctx, paymentRow.OrderID, estimated)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept order")
		}
		if !accepted {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   paymentRow.OrderID,
			Data: payloads.OrderPaidEvent{
				OrderID:   paymentRow.OrderID,
				UserID:    paymentRow.UserID,
				PaymentID: paymentRow.ID,
				PaidAt:    now,
			},
		})
	})
}

func isSuccessfulGatewayStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "success", "captured":
		return true
	default:
		return false
	}
}

func snapshotLines(lines []cart.QuoteLine) []types.OrderLine {
	out := make([]types.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, types.OrderLine{
			ProductID:    line.ProductID,
			UnitID:       line.UnitID,
			Name:         line.Name,
			UnitLabel:    line.UnitLabel,
			MRP:          line.MRP,
			SellingPrice: line.SellingPrice,
			Quantity:     line.Quantity,
			LineTotal:    line.LineTotal,
		})
	}
	return out
}

// generateOrderNumber builds a human-quotable id: a date stamp plus a random
// suffix. Uniqueness is still enforced by the DB index.
func generateOrderNumber() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "OD" + time.Now().Format("20060102150405.000000")
	}
	return fmt.Sprintf("OD%s%s", time.Now().Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix)))
}

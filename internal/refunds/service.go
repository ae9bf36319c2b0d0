package refunds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/swiftbasket/swiftbasket-backend/pkg/db"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox/payloads"
	"github.com/swiftbasket/swiftbasket-backend/pkg/payment"
)

const (
	reasonCancellation = "cancellation"
	reasonReturn       = "return"

	manualProcessingNote = "refund failed at gateway, manual processing needed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type coinRefunder interface {
	Refund(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, orderID uuid.UUID, orderType enums.OrderType) error
}

type refundGateway interface {
	Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error)
	GetRefund(ctx context.Context, refundID string) (*payment.RefundResult, error)
}

// Service owns cancellation, the return cycle, and refund reconciliation.
// Cancellation always succeeds from the shopper's perspective; moving money
// back is a separate, retried step.
type Service interface {
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	RequestReturn(ctx context.Context, input ReturnInput) (*models.Order, error)
	DecideReturn(ctx context.Context, decision ReturnDecision) (*models.Order, error)
	// EnsureRefund pushes one order's refund to the gateway, safely retryable
	// after timeouts and crashes.
	EnsureRefund(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo             Repository
	tx               txRunner
	coins            coinRefunder
	gateway          refundGateway
	outbox           outboxPublisher
	returnWindowDays int
	logg             *logger.Logger
}

// NewService wires the cancellation and refund workflow.
func NewService(
	repo Repository,
	tx txRunner,
	coinSvc coinRefunder,
	gateway refundGateway,
	outboxSvc outboxPublisher,
	returnWindowDays int,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if coinSvc == nil {
		return nil, fmt.Errorf("coin service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if returnWindowDays <= 0 {
		returnWindowDays = 7
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:             repo,
		tx:               tx,
		coins:            coinSvc,
		gateway:          gateway,
		outbox:           outboxSvc,
		returnWindowDays: returnWindowDays,
		logg:             logg,
	}, nil
}

// Cancel flips the order to Cancelled, returns any coins spent on it, and
// schedules the gateway refund. The status flip is conditional, so of two
// racing cancels exactly one performs the coin reversal; the loser gets a
// state-conflict error.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.Role != enums.RoleAdmin && order.CreatedBy != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already cancelled")
	}
	if order.Status == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders go through the return flow")
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		claimed, err := repo.CancelOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already cancelled")
		}
		if used := order.Summary.CoinsUsed; used > 0 {
			if err := s.coins.Refund(ctx, tx, order.CreatedBy, used, order.ID, order.Type); err != nil {
				// The cancellation must not be blocked; the ledger gap is
				// surfaced for support instead.
				s.logg.Error(ctx, "coin reversal failed during cancel", err)
			}
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(input.Role)},
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				UserID:      order.CreatedBy,
				Amount:      order.Summary.GrandTotal,
				CancelledBy: input.Role,
				CancelledAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	return order, nil
}

// RequestReturn opens the single return cycle an order gets, inside the
// configured day window counted from order creation.
func (s *service) RequestReturn(ctx context.Context, input ReturnInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CreatedBy != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.IsReturn {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "return already requested")
	}
	if daysSince(order.CreatedAt) > s.returnWindowDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return window has closed").
			WithDetails(map[string]any{"window_days": s.returnWindowDays})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request := &models.ReturnRequest{
			OrderID:  order.ID,
			UserID:   input.UserID,
			Reason:   input.Reason,
			Comment:  input.Comment,
			ImageURL: input.ImageURL,
		}
		if err := repo.CreateReturnRequest(ctx, request); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_return_requests_order") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "return already requested")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}
		if err := repo.MarkReturnRequested(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order return")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.IsReturn = true
	order.ReturnStatus = enums.ReturnStatusPending
	return order, nil
}

// DecideReturn applies the admin verdict. Approval reverses coins and
// schedules the gateway refund, exactly once per return cycle.
func (s *service) DecideReturn(ctx context.Context, decision ReturnDecision) (*models.Order, error) {
	if decision.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.loadOrder(ctx, decision.OrderID)
	if err != nil {
		return nil, err
	}
	if order.ReturnStatus != enums.ReturnStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no pending return on order")
	}

	verdict := enums.ReturnStatusDenied
	if decision.Approve {
		verdict = enums.ReturnStatusSuccess
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		claimed, err := repo.ClaimReturnDecision(ctx, order.ID, verdict)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide return")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending return on order")
		}
		if !decision.Approve {
			return nil
		}
		if used := order.Summary.CoinsUsed; used > 0 {
			if err := s.coins.Refund(ctx, tx, order.CreatedBy, used, order.ID, order.Type); err != nil {
				s.logg.Error(ctx, "coin reversal failed during return approval", err)
			}
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnApproved,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: decision.ActorID, Role: string(enums.RoleAdmin)},
			Data: payloads.ReturnApprovedEvent{
				OrderID:    order.ID,
				UserID:     order.CreatedBy,
				Amount:     order.Summary.GrandTotal,
				ApprovedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order.ReturnStatus = verdict
	return order, nil
}

// EnsureRefund is the reconciliation step behind cancelled orders and
// approved returns. It is driven by the outbox worker and must tolerate
// crashes at any point: the refund row is the intent record, its refund id is
// deterministic per order, and an unknown gateway outcome is probed before
// any retry so the gateway can never be asked to pay twice.
func (s *service) EnsureRefund(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Refunded {
		return nil
	}

	paymentRow, err := s.repo.FindPaymentByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	externalID := paymentRow.ExternalOrderID()
	if externalID == "" {
		// Never paid externally; coins were already returned, nothing to
		// move back.
		s.logg.Warn(ctx, "no external payment state for refund, skipping gateway")
		return nil
	}

	reason := reasonCancellation
	if order.ReturnStatus == enums.ReturnStatusSuccess {
		reason = reasonReturn
	}

	refundRow, err := s.repo.FindRefundByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund record")
	}
	if refundRow == nil {
		refundRow = &models.Refund{
			OrderID:         order.ID,
			UserID:          order.CreatedBy,
			RefundID:        refundIDFor(order),
			ExternalOrderID: externalID,
			Amount:          order.Summary.GrandTotal,
			Reason:          reason,
		}
		if err := s.repo.CreateRefund(ctx, refundRow); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_refunds_order") {
				// A concurrent worker wrote the intent; let its attempt run.
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund intent")
		}
	} else {
		// An earlier attempt may have reached the gateway before dying; ask
		// the gateway before trying again.
		probe, err := s.gateway.GetRefund(ctx, refundRow.RefundID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe refund status")
		}
		switch probe.Status {
		case payment.RefundStatusProcessed, payment.RefundStatusPending:
			return s.settleRefund(ctx, order, refundRow, probe)
		case payment.RefundStatusNotFound:
			// Gateway never saw it; safe to issue.
		default:
			// failed or unknown; reissue with the same id.
		}
	}

	result, err := s.gateway.Refund(ctx, payment.RefundRequest{
		RefundID:       refundRow.RefundID,
		GatewayOrderID: externalID,
		Amount:         refundRow.Amount,
		Reason:         refundRow.Reason,
	})
	if err != nil {
		if payment.IsTimeout(err) {
			// Unknown outcome: leave the intent row, the next attempt probes
			// the gateway first.
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund outcome unknown")
		}
		note := manualProcessingNote
		if noteErr := s.repo.SetOrderRefund(ctx, order.ID, false, nil, &note); noteErr != nil {
			s.logg.Error(ctx, "record refund note", noteErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund")
	}
	return s.settleRefund(ctx, order, refundRow, result)
}

func (s *service) settleRefund(ctx context.Context, order *models.Order, refundRow *models.Refund, result *payment.RefundResult) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if len(result.Raw) > 0 {
			if err := repo.SetRefundResponse(ctx, refundRow.ID, result.Raw); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refund response")
			}
		}
		if err := repo.MarkPaymentRefunded(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment refunded")
		}
		refundID := refundRow.RefundID
		if err := repo.SetOrderRefund(ctx, order.ID, true, &refundID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
		}
		return nil
	})
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// daysSince counts elapsed days the way the return window is quoted to
// shoppers: any part of a day counts as a whole one.
func daysSince(t time.Time) int {
	elapsed := time.Since(t)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return int(math.Ceil(elapsed.Hours() / 24))
}

// refundIDFor derives the idempotency handle the gateway sees. Deterministic
// per order so a crashed-and-retried workflow reuses the same id instead of
// minting a duplicate refund.
func refundIDFor(order *models.Order) string {
	return "rf_" + order.OrderNumber
}

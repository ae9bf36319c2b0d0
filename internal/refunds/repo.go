package refunds

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refunds repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CancelOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?, cancelled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status <> ?
	`, enums.OrderStatusCancelled, orderID, enums.OrderStatusCancelled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetOrderRefund(ctx context.Context, orderID uuid.UUID, refunded bool, refundID, note *string) error {
	updates := map[string]any{"refunded": refunded}
	if refundID != nil {
		updates["refund_id"] = *refundID
	}
	if note != nil {
		updates["refund_note"] = *note
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) MarkPaymentRefunded(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"refunded": true,
			"status":   enums.PaymentStatusRefunded,
		}).Error
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindRefundByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

func (r *repository) SetRefundResponse(ctx context.Context, refundRowID uuid.UUID, response json.RawMessage) error {
	return r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ?", refundRowID).
		Update("gateway_response", response).Error
}

func (r *repository) CreateReturnRequest(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) SetReturnStatus(ctx context.Context, orderID uuid.UUID, status enums.ReturnStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("return_status", status).Error
}

func (r *repository) ClaimReturnDecision(ctx context.Context, orderID uuid.UUID, status enums.ReturnStatus) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET return_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND return_status = ?
	`, status, orderID, enums.ReturnStatusPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkReturnRequested(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"is_return":     true,
			"return_status": enums.ReturnStatusPending,
		}).Error
}

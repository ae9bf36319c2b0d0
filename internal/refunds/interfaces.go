package refunds

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

// Repository is the persistence surface for cancellations, returns, and
// refund records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// CancelOrder flips the order to Cancelled exactly once; false means a
	// concurrent cancel already won.
	CancelOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	SetOrderRefund(ctx context.Context, orderID uuid.UUID, refunded bool, refundID, note *string) error

	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	MarkPaymentRefunded(ctx context.Context, orderID uuid.UUID) error

	CreateRefund(ctx context.Context, refund *models.Refund) error
	FindRefundByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error)
	SetRefundResponse(ctx context.Context, refundRowID uuid.UUID, response json.RawMessage) error

	CreateReturnRequest(ctx context.Context, request *models.ReturnRequest) error
	SetReturnStatus(ctx context.Context, orderID uuid.UUID, status enums.ReturnStatus) error
	// ClaimReturnDecision moves a Pending return to the given verdict exactly
	// once; false means the return was not pending.
	ClaimReturnDecision(ctx context.Context, orderID uuid.UUID, status enums.ReturnStatus) (bool, error)
	// MarkReturnRequested sets the return flags when a shopper opens a return.
	MarkReturnRequested(ctx context.Context, orderID uuid.UUID) error
}

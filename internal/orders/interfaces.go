package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
)

// Repository is the persistence surface for orders and their payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	// ClaimCoinCredit flips coins_credited false -> true exactly once; false
	// means another caller already claimed it.
	ClaimCoinCredit(ctx context.Context, id uuid.UUID) (bool, error)
	// AcceptPending moves a Pending order to Accepted; false means the order
	// had already left Pending, which makes webhook replays harmless.
	AcceptPending(ctx context.Context, id uuid.UUID, estimatedDelivery time.Time) (bool, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindPaymentBySession(ctx context.Context, sessionID string) (*models.Payment, error)
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID, response json.RawMessage) error

	GetSavedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.SavedAddress, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

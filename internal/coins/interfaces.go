package coins

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
)

// Repository defines persistence operations for the coin ledger and the
// denormalized balance on users.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	// DecrementBalance applies "coins = coins - amount WHERE coins >= amount"
	// and reports whether a row was updated. The conditional guard is what
	// keeps concurrent deductions from racing past the balance check.
	DecrementBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	IncrementBalance(ctx context.Context, userID uuid.UUID, amount int) error
	InsertTxn(ctx context.Context, txn *models.CoinTransaction) (*models.CoinTransaction, error)
	HasAddedEntry(ctx context.Context, userID, orderID uuid.UUID) (bool, error)
	SetTxnOrderID(ctx context.Context, txnID, orderID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CoinTransaction, string, error)
	ActiveRulesBySubcategory(ctx context.Context, subcategoryIDs []uuid.UUID) (map[uuid.UUID]models.CoinRule, error)
	CountQualifyingOrders(ctx context.Context, userID uuid.UUID) (int64, error)
}

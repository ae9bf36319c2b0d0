package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
)

// Repository defines persistence operations for cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveLine(ctx context.Context, userID, productID, unitID uuid.UUID) (*models.CartLine, error)
	InsertLine(ctx context.Context, line *models.CartLine) error
	UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	SoftDeleteLine(ctx context.Context, lineID uuid.UUID) error
	SoftDeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	CountActive(ctx context.Context, userID uuid.UUID) (int64, error)
	ListActiveDetailed(ctx context.Context, userID uuid.UUID) ([]DetailedLine, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetUnit(ctx context.Context, unitID uuid.UUID) (*models.ProductUnit, error)
}

package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
)

// Repository defines persistence operations for coupons and their redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	HasRedemption(ctx context.Context, couponID, userID uuid.UUID) (bool, error)
	InsertRedemption(ctx context.Context, redemption *models.CouponRedemption) error
}

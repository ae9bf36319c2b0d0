package coupons

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/swiftbasket/swiftbasket-backend/pkg/db"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
)

// Validation is the outcome of checking a coupon against a cart total.
type Validation struct {
	Coupon   *models.Coupon
	Discount int
}

// Service validates coupons read-only and records redemptions at placement.
type Service interface {
	// Validate is side-effect free and safe to call on every cart render.
	Validate(ctx context.Context, couponID, userID uuid.UUID, cartTotal int) (*Validation, error)
	// Redeem records a single-use coupon's redemption inside the placement
	// transaction. Multi-use coupons redeem without a history row.
	Redeem(ctx context.Context, tx *gorm.DB, coupon *models.Coupon, userID, orderID uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a coupon service backed by the provided stack.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Validate short-circuits on the first failed check, in a fixed order:
// existence, prior use, minimum purchase. The discount is capped at the
// coupon's "upto" bound when one is set.
func (s *service) Validate(ctx context.Context, couponID, userID uuid.UUID, cartTotal int) (*Validation, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading coupon")
	}
	if coupon == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}

	if coupon.Use == enums.CouponUseOnce {
		used, err := s.repo.HasRedemption(ctx, coupon.ID, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking coupon history")
		}
		if used {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon already used")
		}
	}

	if coupon.MinPrice > 0 && cartTotal < coupon.MinPrice {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total below coupon minimum").
			WithDetails(map[string]any{"min_price": coupon.MinPrice})
	}

	return &Validation{Coupon: coupon, Discount: computeDiscount(coupon, cartTotal)}, nil
}

// Redeem inserts the redemption row for single-use coupons. The unique index
// on (coupon_id, user_id) is the real gate: two concurrent placements with the
// same coupon race on it and the loser gets AlreadyUsed, not a double redeem.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, coupon *models.Coupon, userID, orderID uuid.UUID) error {
	if coupon == nil {
		return nil
	}
	if coupon.Use != enums.CouponUseOnce {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for coupon redemption")
	}

	err := s.repo.WithTx(tx).InsertRedemption(ctx, &models.CouponRedemption{
		CouponID: coupon.ID,
		UserID:   userID,
		OrderID:  orderID,
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_coupon_redemptions_coupon_user") {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon already used")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording coupon redemption")
	}
	return nil
}

func computeDiscount(coupon *models.Coupon, cartTotal int) int {
	raw := decimal.NewFromInt(int64(cartTotal)).
		Mul(decimal.NewFromFloat(coupon.DiscountPercent)).
		Div(decimal.NewFromInt(100)).
		Round(0)
	discount := int(raw.IntPart())
	if coupon.Upto > 0 && discount > coupon.Upto {
		discount = coupon.Upto
	}
	if discount < 0 {
		return 0
	}
	return discount
}

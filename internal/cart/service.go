package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/internal/coins"
	"github.com/swiftbasket/swiftbasket-backend/internal/coupons"
	"github.com/swiftbasket/swiftbasket-backend/internal/pricing"
	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

type coinReader interface {
	HasQualifyingOrders(ctx context.Context, userID uuid.UUID) (bool, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	MaxUsable(ctx context.Context, userID uuid.UUID, eligibleCoins, orderTotal int) (int, error)
	CalculateEarned(ctx context.Context, lines []coins.EarnLine) (int, error)
	EligibleForUse(ctx context.Context, lines []coins.EarnLine) (int, error)
}

type couponValidator interface {
	Validate(ctx context.Context, couponID, userID uuid.UUID, cartTotal int) (*coupons.Validation, error)
}

// Service exposes cart line mutations and the checkout preview.
type Service interface {
	AddItem(ctx context.Context, userID, productID, unitID uuid.UUID, quantity int) (*LineMutation, error)
	Increment(ctx context.Context, userID, productID, unitID uuid.UUID) (*LineMutation, error)
	Decrement(ctx context.Context, userID, productID, unitID uuid.UUID) (*LineMutation, error)
	RemoveItem(ctx context.Context, userID, productID, unitID uuid.UUID) (*LineMutation, error)
	Quote(ctx context.Context, userID uuid.UUID) (*Quote, error)
	Summary(ctx context.Context, userID uuid.UUID, couponID *uuid.UUID, donation int) (*BillSummary, error)
	ClearLines(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type service struct {
	repo    Repository
	coins   coinReader
	coupons couponValidator
	cfg     config.CheckoutConfig
	logg    *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, coinSvc coinReader, couponSvc couponValidator, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if coinSvc == nil {
		return nil, fmt.Errorf("coin service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, coins: coinSvc, coupons: couponSvc, cfg: cfg, logg: logg}, nil
}

func (s *service) AddItem(ctx context.Context, userID, productID, unitID uuid.UUID, quantity int) (*LineMutation, error) {
	if quantity < 1 {
		quantity = 1
	}
	unit, err := s.repo.GetUnit(ctx, unitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product unit")
	}
	if unit == nil || unit.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product unit not found")
	}

	line, err := s.repo.FindActiveLine(ctx, userID, productID, unitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}

	newQty := quantity
	if line != nil {
		newQty = line.Quantity + quantity
		if err := s.repo.UpdateQuantity(ctx, line.ID, newQty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart line")
		}
	} else {
		if err := s.repo.InsertLine(ctx, &models.CartLine{
			UserID:    userID,
			ProductID: productID,
			UnitID:    unitID,
			Quantity:  newQty,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting cart line")
		}
	}
	return s.mutationResult(ctx, userID, productID, unitID, newQty, false)
}

func (s *service) Increment(ctx context.Context, userID, productID, unitID uuid.UUID) (*LineMutation, error) {
	line, err := s.requireLine(ctx, userID, productID, unitID)
	if err != nil {
		return nil, err
	}
	newQty := line.Quantity + 1
	if err := s.repo.UpdateQuantity(ctx, line.ID, newQty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart line")
	}
	return s.mutationResult(ctx, userID, productID, unitID, newQty, false)
}

// Decrement lowers the quantity; dropping below one removes the line.
func (s *service) Decrement(ctx context.Context, userID, productID, unitID uuid.UUID) (*LineMutation, error) {
	line, err := s.requireLine(ctx, userID, productID, unitID)
	if err != nil {
		return nil, err
	}
	if line.Quantity <= 1 {
		if err := s.repo.SoftDeleteLine(ctx, line.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
		}
		return s.mutationResult(ctx, userID, productID, unitID, 0, true)
	}
	newQty := line.Quantity - 1
	if err := s.repo.UpdateQuantity(ctx, line.ID, newQty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart line")
	}
	return s.mutationResult(ctx, userID, productID, unitID, newQty, false)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID, unitID uuid.UUID) (*LineMutation, error) {
	line, err := s.requireLine(ctx, userID, productID, unitID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SoftDeleteLine(ctx, line.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
	}
	return s.mutationResult(ctx, userID, productID, unitID, 0, true)
}

// Quote prices every active line for the given shopper. Orphaned lines whose
// catalog rows were hard-deleted are dropped with a warning rather than
// failing the whole cart.
func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*Quote, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	detailed, err := s.repo.ListActiveDetailed(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart lines")
	}

	quote := &Quote{Premium: user.Premium}
	for _, line := range detailed {
		if line.Orphaned {
			warnCtx := s.logg.WithFields(ctx, map[string]any{
				"line_id":    line.LineID.String(),
				"product_id": line.ProductID.String(),
				"unit_id":    line.UnitID.String(),
			})
			s.logg.Warn(warnCtx, "dropping cart line with deleted catalog entry")
			continue
		}
		priced := pricing.ComputeUnitPrice(models.ProductUnit{
			MRP:          line.MRP,
			SellingPrice: line.SellingPrice,
			OffPercent:   line.OffPercent,
		}, line.PercentOff, user.Premium)

		lineTotal := priced.SellingPrice * line.Quantity
		quote.Lines = append(quote.Lines, QuoteLine{
			ProductID:     line.ProductID,
			UnitID:        line.UnitID,
			Name:          line.ProductName,
			UnitLabel:     line.UnitLabel,
			SubcategoryID: line.SubcategoryID,
			MRP:           priced.MRP,
			SellingPrice:  priced.SellingPrice,
			OffPercent:    priced.OffPercent,
			Quantity:      line.Quantity,
			LineTotal:     lineTotal,
		})
		quote.ItemTotal += lineTotal
	}
	return quote, nil
}

// Summary assembles the full checkout preview. Read-only: safe to call on
// every cart-screen render, with or without a coupon applied.
func (s *service) Summary(ctx context.Context, userID uuid.UUID, couponID *uuid.UUID, donation int) (*BillSummary, error) {
	if donation < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation must not be negative")
	}
	quote, err := s.Quote(ctx, userID)
	if err != nil {
		return nil, err
	}

	discount := 0
	if couponID != nil {
		result, err := s.coupons.Validate(ctx, *couponID, userID, quote.ItemTotal)
		if err != nil {
			return nil, err
		}
		discount = result.Discount
	}

	fee := ShippingFee(quote.ItemTotal, s.cfg)
	grandTotal := quote.ItemTotal - discount + fee + donation
	if grandTotal < 0 {
		grandTotal = 0
	}

	summary := &BillSummary{
		Lines:       quote.Lines,
		ItemTotal:   quote.ItemTotal,
		Discount:    discount,
		ShippingFee: fee,
		Donation:    donation,
		GrandTotal:  grandTotal,
	}

	hasOrders, err := s.coins.HasQualifyingOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hasOrders {
		earnLines := EarnLines(quote.Lines)
		eligible, err := s.coins.EligibleForUse(ctx, earnLines)
		if err != nil {
			return nil, err
		}
		usable, err := s.coins.MaxUsable(ctx, userID, eligible, grandTotal)
		if err != nil {
			return nil, err
		}
		earnable, err := s.coins.CalculateEarned(ctx, earnLines)
		if err != nil {
			return nil, err
		}
		balance, err := s.coins.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		summary.Coins = &types.CoinSummary{Balance: balance, Usable: usable, Earnable: earnable}
	}
	return summary, nil
}

// ClearLines soft-deletes the whole cart, inside the order placement
// transaction when one is supplied.
func (s *service) ClearLines(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	if err := repo.SoftDeleteAllForUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) requireLine(ctx context.Context, userID, productID, unitID uuid.UUID) (*models.CartLine, error) {
	line, err := s.repo.FindActiveLine(ctx, userID, productID, unitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return line, nil
}

func (s *service) mutationResult(ctx context.Context, userID, productID, unitID uuid.UUID, quantity int, removed bool) (*LineMutation, error) {
	count, err := s.repo.CountActive(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting cart lines")
	}
	return &LineMutation{
		ProductID: productID,
		UnitID:    unitID,
		Quantity:  quantity,
		Removed:   removed,
		CartCount: count,
	}, nil
}

// ShippingFee applies the flat threshold rule: free above the threshold, a
// flat fee at or below it.
func ShippingFee(itemTotal int, cfg config.CheckoutConfig) int {
	if itemTotal > cfg.FreeShippingThreshold {
		return 0
	}
	return cfg.ShippingFee
}

// EarnLines projects priced quote lines into the shape the coin engine reads.
func EarnLines(lines []QuoteLine) []coins.EarnLine {
	out := make([]coins.EarnLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, coins.EarnLine{
			SubcategoryID: line.SubcategoryID,
			LineTotal:     line.LineTotal,
			Quantity:      line.Quantity,
		})
	}
	return out
}

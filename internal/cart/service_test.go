package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/internal/coins"
	"github.com/swiftbasket/swiftbasket-backend/internal/coupons"
	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
)

type stubCartRepo struct {
	user     *models.User
	unit     *models.ProductUnit
	line     *models.CartLine
	detailed []DetailedLine

	inserted   *models.CartLine
	updatedQty *int
	deleted    bool
	clearedAll bool
	count      int64
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCartRepo) FindActiveLine(ctx context.Context, userID, productID, unitID uuid.UUID) (*models.CartLine, error) {
	return s.line, nil
}

func (s *stubCartRepo) InsertLine(ctx context.Context, line *models.CartLine) error {
	s.inserted = line
	return nil
}

func (s *stubCartRepo) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	s.updatedQty = &quantity
	return nil
}

func (s *stubCartRepo) SoftDeleteLine(ctx context.Context, lineID uuid.UUID) error {
	s.deleted = true
	return nil
}

func (s *stubCartRepo) SoftDeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	s.clearedAll = true
	return nil
}

func (s *stubCartRepo) CountActive(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.count, nil
}

func (s *stubCartRepo) ListActiveDetailed(ctx context.Context, userID uuid.UUID) ([]DetailedLine, error) {
	return s.detailed, nil
}

func (s *stubCartRepo) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.user == nil {
		return &models.User{ID: userID}, nil
	}
	return s.user, nil
}

func (s *stubCartRepo) GetUnit(ctx context.Context, unitID uuid.UUID) (*models.ProductUnit, error) {
	return s.unit, nil
}

type stubCoinReader struct {
	hasOrders bool
	balance   int
	eligible  int
	earnable  int
}

func (s *stubCoinReader) HasQualifyingOrders(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.hasOrders, nil
}

func (s *stubCoinReader) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.balance, nil
}

func (s *stubCoinReader) MaxUsable(ctx context.Context, userID uuid.UUID, eligibleCoins, orderTotal int) (int, error) {
	usable := s.balance
	if eligibleCoins < usable {
		usable = eligibleCoins
	}
	if orderTotal < usable {
		usable = orderTotal
	}
	if usable < 0 {
		usable = 0
	}
	return usable, nil
}

func (s *stubCoinReader) CalculateEarned(ctx context.Context, lines []coins.EarnLine) (int, error) {
	return s.earnable, nil
}

func (s *stubCoinReader) EligibleForUse(ctx context.Context, lines []coins.EarnLine) (int, error) {
	return s.eligible, nil
}

type stubCouponValidator struct {
	result *coupons.Validation
	err    error
}

func (s *stubCouponValidator) Validate(ctx context.Context, couponID, userID uuid.UUID, cartTotal int) (*coupons.Validation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{FreeShippingThreshold: 500, ShippingFee: 50, ReturnWindowDays: 7}
}

func newCartService(t *testing.T, repo Repository, coinSvc coinReader, couponSvc couponValidator) Service {
	t.Helper()
	if coinSvc == nil {
		coinSvc = &stubCoinReader{}
	}
	if couponSvc == nil {
		couponSvc = &stubCouponValidator{}
	}
	svc, err := NewService(repo, coinSvc, couponSvc, testCheckoutConfig(), logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAddItemNewLine(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	repo := &stubCartRepo{
		unit:  &models.ProductUnit{ID: uuid.New(), ProductID: productID},
		count: 1,
	}
	svc := newCartService(t, repo, nil, nil)

	got, err := svc.AddItem(context.Background(), uuid.New(), productID, repo.unit.ID, 2)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if repo.inserted == nil || repo.inserted.Quantity != 2 {
		t.Fatalf("expected inserted line with qty 2, got %+v", repo.inserted)
	}
	if got.Quantity != 2 || got.CartCount != 1 {
		t.Fatalf("unexpected mutation: %+v", got)
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	unitID := uuid.New()
	repo := &stubCartRepo{
		unit: &models.ProductUnit{ID: unitID, ProductID: productID},
		line: &models.CartLine{ID: uuid.New(), Quantity: 1},
	}
	svc := newCartService(t, repo, nil, nil)

	got, err := svc.AddItem(context.Background(), uuid.New(), productID, unitID, 1)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if repo.updatedQty == nil || *repo.updatedQty != 2 {
		t.Fatalf("expected quantity update to 2, got %v", repo.updatedQty)
	}
	if got.Quantity != 2 {
		t.Fatalf("unexpected quantity %d", got.Quantity)
	}
}

func TestAddItemUnknownUnit(t *testing.T) {
	t.Parallel()

	svc := newCartService(t, &stubCartRepo{}, nil, nil)
	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), uuid.New(), 1)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDecrementRemovesAtOne(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{line: &models.CartLine{ID: uuid.New(), Quantity: 1}}
	svc := newCartService(t, repo, nil, nil)

	got, err := svc.Decrement(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if !repo.deleted || !got.Removed {
		t.Fatal("line at quantity 1 must be removed on decrement")
	}
}

func TestDecrementLowersQuantity(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{line: &models.CartLine{ID: uuid.New(), Quantity: 3}}
	svc := newCartService(t, repo, nil, nil)

	got, err := svc.Decrement(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if got.Quantity != 2 || got.Removed {
		t.Fatalf("expected qty 2, got %+v", got)
	}
}

func TestQuoteAppliesPremiumPricing(t *testing.T) {
	t.Parallel()

	sub := uuid.New()
	repo := &stubCartRepo{
		user: &models.User{ID: uuid.New(), Premium: true},
		detailed: []DetailedLine{{
			LineID:        uuid.New(),
			ProductID:     uuid.New(),
			UnitID:        uuid.New(),
			Quantity:      2,
			ProductName:   "Almonds",
			SubcategoryID: sub,
			PercentOff:    10,
			MRP:           250,
			SellingPrice:  200,
			OffPercent:    "20",
		}},
	}
	svc := newCartService(t, repo, nil, nil)

	quote, err := svc.Quote(context.Background(), repo.user.ID)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(quote.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(quote.Lines))
	}
	line := quote.Lines[0]
	if line.SellingPrice != 180 || line.MRP != 200 {
		t.Fatalf("premium pricing not applied: %+v", line)
	}
	if quote.ItemTotal != 360 {
		t.Fatalf("expected item total 360, got %d", quote.ItemTotal)
	}
}

func TestQuoteDropsOrphanedLines(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{
		detailed: []DetailedLine{
			{LineID: uuid.New(), Orphaned: true},
			{LineID: uuid.New(), ProductName: "Rice", MRP: 120, SellingPrice: 100, Quantity: 1},
		},
	}
	svc := newCartService(t, repo, nil, nil)

	quote, err := svc.Quote(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(quote.Lines) != 1 || quote.ItemTotal != 100 {
		t.Fatalf("orphaned line not dropped: %+v", quote)
	}
}

func TestSummaryScenario(t *testing.T) {
	t.Parallel()

	// 2 units of a 200 item, 10% coupon capped at 30, donation 20:
	// itemTotal 400, discount 30, fee 50, grand total 440.
	couponID := uuid.New()
	repo := &stubCartRepo{
		detailed: []DetailedLine{{
			LineID: uuid.New(), ProductName: "Ghee", MRP: 200, SellingPrice: 200, Quantity: 2,
		}},
	}
	couponSvc := &stubCouponValidator{result: &coupons.Validation{
		Coupon:   &models.Coupon{ID: couponID},
		Discount: 30,
	}}
	svc := newCartService(t, repo, nil, couponSvc)

	summary, err := svc.Summary(context.Background(), uuid.New(), &couponID, 20)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.ItemTotal != 400 || summary.Discount != 30 || summary.ShippingFee != 50 || summary.GrandTotal != 440 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSummaryOmitsCoinsForNewUsers(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{
		detailed: []DetailedLine{{LineID: uuid.New(), ProductName: "Tea", MRP: 100, SellingPrice: 100, Quantity: 1}},
	}
	svc := newCartService(t, repo, &stubCoinReader{hasOrders: false, balance: 40}, nil)

	summary, err := svc.Summary(context.Background(), uuid.New(), nil, 0)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Coins != nil {
		t.Fatal("coin block must be absent, not zeroed, before the first qualifying order")
	}
}

func TestSummaryIncludesCoinsForReturningUsers(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{
		detailed: []DetailedLine{{LineID: uuid.New(), ProductName: "Tea", MRP: 100, SellingPrice: 100, Quantity: 1}},
	}
	coinSvc := &stubCoinReader{hasOrders: true, balance: 100, eligible: 80, earnable: 5}
	svc := newCartService(t, repo, coinSvc, nil)

	summary, err := svc.Summary(context.Background(), uuid.New(), nil, 0)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Coins == nil {
		t.Fatal("expected coin block for returning user")
	}
	// grand total 150 (100 + 50 fee); usable = min(100, 80, 150) = 80.
	if summary.Coins.Usable != 80 || summary.Coins.Balance != 100 || summary.Coins.Earnable != 5 {
		t.Fatalf("unexpected coin block: %+v", summary.Coins)
	}
}

func TestSummaryFreeShippingAboveThreshold(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{
		detailed: []DetailedLine{{LineID: uuid.New(), ProductName: "Oil", MRP: 600, SellingPrice: 600, Quantity: 1}},
	}
	svc := newCartService(t, repo, nil, nil)

	summary, err := svc.Summary(context.Background(), uuid.New(), nil, 0)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.ShippingFee != 0 {
		t.Fatalf("expected free shipping above threshold, got %d", summary.ShippingFee)
	}
}

func TestSummaryRejectsNegativeDonation(t *testing.T) {
	t.Parallel()

	svc := newCartService(t, &stubCartRepo{}, nil, nil)
	_, err := svc.Summary(context.Background(), uuid.New(), nil, -5)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestClearLines(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{}
	svc := newCartService(t, repo, nil, nil)
	if err := svc.ClearLines(context.Background(), &gorm.DB{}, uuid.New()); err != nil {
		t.Fatalf("ClearLines: %v", err)
	}
	if !repo.clearedAll {
		t.Fatal("expected all lines soft-deleted")
	}
}

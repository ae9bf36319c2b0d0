package coins

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
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EarnLine is the slice of an order line the earn calculation needs.
type EarnLine struct {
	SubcategoryID uuid.UUID
	LineTotal     int
	Quantity      int
}

// Service owns every movement of the coin balance. The denormalized
// users.coins column and the append-only ledger move together or not at all.
type Service interface {
	CalculateEarned(ctx context.Context, lines []EarnLine) (int, error)
	EligibleForUse(ctx context.Context, lines []EarnLine) (int, error)
	MaxUsable(ctx context.Context, userID uuid.UUID, eligibleCoins, orderTotal int) (int, error)
	Deduct(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, orderID *uuid.UUID, orderType enums.OrderType) (*models.CoinTransaction, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int, orderID uuid.UUID, orderType enums.OrderType) error
	Refund(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, orderID uuid.UUID, orderType enums.OrderType) error
	AttachOrder(ctx context.Context, tx *gorm.DB, txnID, orderID uuid.UUID) error
	HasQualifyingOrders(ctx context.Context, userID uuid.UUID) (bool, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CoinTransaction, string, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds a coin service backed by the provided stack.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coin repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// CalculateEarned sums the coins an order would earn. Lines whose subcategory
// has no live rule contribute nothing.
func (s *service) CalculateEarned(ctx context.Context, lines []EarnLine) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, 0, len(lines))
	seen := map[uuid.UUID]struct{}{}
	for _, line := range lines {
		if _, ok := seen[line.SubcategoryID]; ok {
			continue
		}
		seen[line.SubcategoryID] = struct{}{}
		ids = append(ids, line.SubcategoryID)
	}
	rules, err := s.repo.ActiveRulesBySubcategory(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading coin rules")
	}

	total := decimal.Zero
	for _, line := range lines {
		rule, ok := rules[line.SubcategoryID]
		if !ok {
			continue
		}
		switch rule.Type {
		case enums.CoinRulePercentage:
			earned := decimal.NewFromInt(int64(line.LineTotal)).
				Mul(decimal.NewFromInt(int64(rule.Value))).
				Div(decimal.NewFromInt(100)).
				Round(0)
			total = total.Add(earned)
		case enums.CoinRuleFixed:
			total = total.Add(decimal.NewFromInt(int64(rule.Value * line.Quantity)))
		}
	}
	return int(total.Round(0).IntPart()), nil
}

// EligibleForUse returns how many coins the cart's products allow to be
// redeemed: the summed line totals of lines whose subcategory participates in
// the coin program. Lines outside the program contribute nothing.
func (s *service) EligibleForUse(ctx context.Context, lines []EarnLine) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, 0, len(lines))
	seen := map[uuid.UUID]struct{}{}
	for _, line := range lines {
		if _, ok := seen[line.SubcategoryID]; ok {
			continue
		}
		seen[line.SubcategoryID] = struct{}{}
		ids = append(ids, line.SubcategoryID)
	}
	rules, err := s.repo.ActiveRulesBySubcategory(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading coin rules")
	}
	eligible := 0
	for _, line := range lines {
		if _, ok := rules[line.SubcategoryID]; ok {
			eligible += line.LineTotal
		}
	}
	return eligible, nil
}

// MaxUsable caps coin redemption at min(balance, eligible, order total), never
// below zero.
func (s *service) MaxUsable(ctx context.Context, userID uuid.UUID, eligibleCoins, orderTotal int) (int, error) {
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading coin balance")
	}
	usable := balance
	if eligibleCoins < usable {
		usable = eligibleCoins
	}
	if orderTotal < usable {
		usable = orderTotal
	}
	if usable < 0 {
		return 0, nil
	}
	return usable, nil
}

// Deduct decrements the balance and appends a Used entry inside the caller's
// transaction. The conditional decrement rejects overdrafts without a
// read-then-write window.
func (s *service) Deduct(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, orderID *uuid.UUID, orderType enums.OrderType) (*models.CoinTransaction, error) {
	if amount <= 0 {
		return nil, nil
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for coin deduction")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.DecrementBalance(ctx, userID, amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deducting coins")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "coin balance too low")
	}

	txn, err := repo.InsertTxn(ctx, &models.CoinTransaction{
		UserID:    userID,
		OrderID:   orderID,
		Coins:     amount,
		Type:      enums.CoinTxnUsed,
		OrderType: orderType,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording coin deduction")
	}
	return txn, nil
}

// Credit adds delivery-earned coins exactly once per (user, order). A repeat
// call for the same order is a successful no-op; the partial unique index on
// Added entries closes the race two concurrent credits would otherwise win
// together.
func (s *service) Credit(ctx context.Context, userID uuid.UUID, amount int, orderID uuid.UUID, orderType enums.OrderType) error {
	if amount <= 0 {
		return nil
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.HasAddedEntry(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if _, err := repo.InsertTxn(ctx, &models.CoinTransaction{
			UserID:    userID,
			OrderID:   &orderID,
			Coins:     amount,
			Type:      enums.CoinTxnAdded,
			OrderType: orderType,
		}); err != nil {
			return err
		}
		return repo.IncrementBalance(ctx, userID, amount)
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_coin_txns_order_added") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "crediting coins")
	}
	return nil
}

// Refund restores coins used on an order. Idempotency is the caller's job:
// cancellation runs it inside the first-wins cancel transaction, so a second
// cancel never reaches it.
func (s *service) Refund(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, orderID uuid.UUID, orderType enums.OrderType) error {
	if amount <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for coin refund")
	}
	repo := s.repo.WithTx(tx)
	if _, err := repo.InsertTxn(ctx, &models.CoinTransaction{
		UserID:    userID,
		OrderID:   &orderID,
		Coins:     amount,
		Type:      enums.CoinTxnRefunded,
		OrderType: orderType,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording coin refund")
	}
	if err := repo.IncrementBalance(ctx, userID, amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restoring coin balance")
	}
	return nil
}

// AttachOrder back-fills the order id on a ledger entry created before the
// order row existed.
func (s *service) AttachOrder(ctx context.Context, tx *gorm.DB, txnID, orderID uuid.UUID) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	if err := repo.SetTxnOrderID(ctx, txnID, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "linking coin entry to order")
	}
	return nil
}

// HasQualifyingOrders reports whether any coin UI should exist for the user at
// all. Users with no order beyond Rejected/Cancelled see no coin fields.
func (s *service) HasQualifyingOrders(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := s.repo.CountQualifyingOrders(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting qualifying orders")
	}
	return count > 0, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading coin balance")
	}
	return balance, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CoinTransaction, string, error) {
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing coin history")
	}
	return rows, next, nil
}

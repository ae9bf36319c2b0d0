package coins

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coin repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("coins").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.Coins, nil
}

func (r *repository) DecrementBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET coins = coins - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND coins >= ?
	`, amount, userID, amount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) IncrementBalance(ctx context.Context, userID uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET coins = coins + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, userID).Error
}

func (r *repository) InsertTxn(ctx context.Context, txn *models.CoinTransaction) (*models.CoinTransaction, error) {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *repository) HasAddedEntry(ctx context.Context, userID, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CoinTransaction{}).
		Where("user_id = ? AND order_id = ? AND type = ?", userID, orderID, enums.CoinTxnAdded).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) SetTxnOrderID(ctx context.Context, txnID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CoinTransaction{}).
		Where("id = ?", txnID).
		Update("order_id", orderID).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CoinTransaction, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	q := r.db.WithContext(ctx).
		Model(&models.CoinTransaction{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.CoinTransaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	page, hasMore := pagination.TrimPage(rows, params.Limit)
	next := ""
	if hasMore && len(page) > 0 {
		last := page[len(page)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, next, nil
}

func (r *repository) ActiveRulesBySubcategory(ctx context.Context, subcategoryIDs []uuid.UUID) (map[uuid.UUID]models.CoinRule, error) {
	rules := make(map[uuid.UUID]models.CoinRule, len(subcategoryIDs))
	if len(subcategoryIDs) == 0 {
		return rules, nil
	}
	var rows []models.CoinRule
	err := r.db.WithContext(ctx).
		Where("subcategory_id IN ?", subcategoryIDs).
		Where("enabled = ? AND deleted = ?", true, false).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rule := range rows {
		rules[rule.SubcategoryID] = rule
	}
	return rules, nil
}

func (r *repository) CountQualifyingOrders(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("created_by = ?", userID).
		Where("status IN ?", enums.QualifyingOrderStatuses).
		Count(&count).Error
	return count, err
}

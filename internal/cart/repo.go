package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveLine(ctx context.Context, userID, productID, unitID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND unit_id = ? AND deleted = ?", userID, productID, unitID, false).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

func (r *repository) InsertLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

func (r *repository) SoftDeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("deleted", true).Error
}

func (r *repository) SoftDeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("user_id = ? AND deleted = ?", userID, false).
		Update("deleted", true).Error
}

func (r *repository) CountActive(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("user_id = ? AND deleted = ?", userID, false).
		Count(&count).Error
	return count, err
}

// ListActiveDetailed joins each active line with its unit, product, and
// subcategory. Left joins keep rows whose catalog entries were hard-deleted so
// the service can drop them explicitly instead of silently losing them.
func (r *repository) ListActiveDetailed(ctx context.Context, userID uuid.UUID) ([]DetailedLine, error) {
	var rows []struct {
		LineID        uuid.UUID
		ProductID     uuid.UUID
		UnitID        uuid.UUID
		Quantity      int
		ProductName   *string
		UnitLabel     *string
		SubcategoryID *uuid.UUID
		PercentOff    *float64
		MRP           *int
		SellingPrice  *int
		OffPercent    *string
	}
	err := r.db.WithContext(ctx).
		Table("cart_lines").
		Select(`cart_lines.id AS line_id,
			cart_lines.product_id,
			cart_lines.unit_id,
			cart_lines.quantity,
			products.name AS product_name,
			product_units.label AS unit_label,
			products.subcategory_id,
			subcategories.percent_off,
			product_units.mrp,
			product_units.selling_price,
			product_units.off_percent`).
		Joins("LEFT JOIN products ON products.id = cart_lines.product_id AND products.deleted = ?", false).
		Joins("LEFT JOIN product_units ON product_units.id = cart_lines.unit_id AND product_units.deleted = ?", false).
		Joins("LEFT JOIN subcategories ON subcategories.id = products.subcategory_id").
		Where("cart_lines.user_id = ? AND cart_lines.deleted = ?", userID, false).
		Order("cart_lines.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	lines := make([]DetailedLine, 0, len(rows))
	for _, row := range rows {
		line := DetailedLine{
			LineID:    row.LineID,
			ProductID: row.ProductID,
			UnitID:    row.UnitID,
			Quantity:  row.Quantity,
		}
		if row.ProductName == nil || row.MRP == nil || row.SellingPrice == nil {
			line.Orphaned = true
			lines = append(lines, line)
			continue
		}
		line.ProductName = *row.ProductName
		line.MRP = *row.MRP
		line.SellingPrice = *row.SellingPrice
		if row.UnitLabel != nil {
			line.UnitLabel = *row.UnitLabel
		}
		if row.SubcategoryID != nil {
			line.SubcategoryID = *row.SubcategoryID
		}
		if row.PercentOff != nil {
			line.PercentOff = *row.PercentOff
		}
		if row.OffPercent != nil {
			line.OffPercent = *row.OffPercent
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (r *repository) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetUnit(ctx context.Context, unitID uuid.UUID) (*models.ProductUnit, error) {
	var unit models.ProductUnit
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", unitID, false).
		First(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &unit, nil
}

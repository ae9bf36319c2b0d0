package models

import (
	"time"

	"github.com/google/uuid"
)

// Subcategory groups products and carries the premium percent-off used by the
// pricing engine plus the link point for coin earn rules.
type Subcategory struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	PercentOff float64   `gorm:"column:percent_off;not null;default:0"`
	Deleted    bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Product is read-only reference data for the settlement core.
type Product struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	SubcategoryID uuid.UUID `gorm:"column:subcategory_id;type:uuid;not null;index"`
	Deleted       bool      `gorm:"column:deleted;not null;default:false"`
	Units         []ProductUnit `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductUnit is a sellable pack size of a product. OffPercent is stored as a
// bare numeric string; display suffixes are a client concern.
type ProductUnit struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Label        string    `gorm:"column:label;not null"`
	MRP          int       `gorm:"column:mrp;not null"`
	SellingPrice int       `gorm:"column:selling_price;not null"`
	OffPercent   string    `gorm:"column:off_percent;not null;default:'0'"`
	Deleted      bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package cart

import (
	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

// DetailedLine is one active cart row joined with its catalog pricing data.
// A line whose product or unit was hard-deleted comes back with Orphaned set;
// the aggregator drops it with a warning instead of failing the summary.
type DetailedLine struct {
	LineID        uuid.UUID
	ProductID     uuid.UUID
	UnitID        uuid.UUID
	Quantity      int
	ProductName   string
	UnitLabel     string
	SubcategoryID uuid.UUID
	PercentOff    float64
	MRP           int
	SellingPrice  int
	OffPercent    string
	Orphaned      bool
}

// QuoteLine is a priced cart line with the premium discount already applied.
type QuoteLine struct {
	ProductID     uuid.UUID `json:"product_id"`
	UnitID        uuid.UUID `json:"unit_id"`
	Name          string    `json:"name"`
	UnitLabel     string    `json:"unit_label,omitempty"`
	SubcategoryID uuid.UUID `json:"-"`
	MRP           int       `json:"mrp"`
	SellingPrice  int       `json:"selling_price"`
	OffPercent    string    `json:"off_percent"`
	Quantity      int       `json:"quantity"`
	LineTotal     int       `json:"line_total"`
}

// Quote is the priced view of a cart before coupons, coins, and fees.
type Quote struct {
	Lines     []QuoteLine
	ItemTotal int
	Premium   bool
}

// BillSummary is the full checkout preview returned on every cart render.
// Coins is nil, not zeroed, for users with no qualifying order; clients use
// its absence to hide the coin UI entirely.
type BillSummary struct {
	Lines       []QuoteLine        `json:"lines"`
	ItemTotal   int                `json:"item_total"`
	Discount    int                `json:"discount"`
	ShippingFee int                `json:"shipping_fee"`
	Donation    int                `json:"donation"`
	GrandTotal  int                `json:"grand_total"`
	Coins       *types.CoinSummary `json:"coins,omitempty"`
}

// LineMutation reports the state of a cart line after an add/adjust call.
type LineMutation struct {
	ProductID uuid.UUID `json:"product_id"`
	UnitID    uuid.UUID `json:"unit_id"`
	Quantity  int       `json:"quantity"`
	Removed   bool      `json:"removed"`
	CartCount int64     `json:"cart_count"`
}

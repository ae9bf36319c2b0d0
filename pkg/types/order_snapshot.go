package types

import "github.com/google/uuid"

// OrderLine is the immutable per-line snapshot captured at order placement.
// Price, mrp, and name are frozen here so later catalog edits never change
// historical orders.
type OrderLine struct {
	ProductID    uuid.UUID `json:"product_id"`
	UnitID       uuid.UUID `json:"unit_id"`
	Name         string    `json:"name"`
	UnitLabel    string    `json:"unit_label,omitempty"`
	MRP          int       `json:"mrp"`
	SellingPrice int       `json:"selling_price"`
	Quantity     int       `json:"quantity"`
	LineTotal    int       `json:"line_total"`
}

// OrderSummary carries the settled money breakdown of an order.
type OrderSummary struct {
	ItemTotal      int `json:"item_total"`
	DiscountAmount int `json:"discount_amount"`
	ShippingFee    int `json:"shipping_fee"`
	Donation       int `json:"donation"`
	CoinsUsed      int `json:"coins_used"`
	CoinsEarned    int `json:"coins_earned"`
	GrandTotal     int `json:"grand_total"`
}

// CoinSummary is the optional coin block on a cart summary. It is omitted
// entirely (nil pointer) for users with no qualifying order so clients know to
// hide the coin UI, rather than rendering zeros.
type CoinSummary struct {
	Balance  int `json:"balance"`
	Usable   int `json:"usable"`
	Earnable int `json:"earnable"`
}

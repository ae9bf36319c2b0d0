package types

// Address is the delivery address shape snapshotted onto orders. Orders copy
// the full value rather than referencing the saved address row, so later edits
// to a user's address book never rewrite order history.
type Address struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      string  `json:"line2,omitempty"`
	Landmark   string  `json:"landmark,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
}

package enums

import "fmt"

// OrderType distinguishes marketplace orders from local retailer orders in the
// coin ledger and order history.
type OrderType string

const (
	OrderTypeOnlineStore OrderType = "OnlineStore"
	OrderTypeLocalStore  OrderType = "LocalStore"
)

var validOrderTypes = []OrderType{OrderTypeOnlineStore, OrderTypeLocalStore}

// IsValid reports whether the value is a known OrderType.
func (t OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}

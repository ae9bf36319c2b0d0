package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of an order. The happy path runs
// Pending through Delivered; Rejected and Cancelled branch off early states.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusAccepted       OrderStatus = "Accepted"
	OrderStatusShipped        OrderStatus = "Product shipped"
	OrderStatusOnTheWay       OrderStatus = "On the way"
	OrderStatusOutForDelivery OrderStatus = "Out for delivery"
	OrderStatusAtDestination  OrderStatus = "Your Destination"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusRejected       OrderStatus = "Rejected"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusShipped,
	OrderStatusOnTheWay,
	OrderStatusOutForDelivery,
	OrderStatusAtDestination,
	OrderStatusDelivered,
	OrderStatusRejected,
	OrderStatusCancelled,
}

// QualifyingOrderStatuses are the statuses that count as a "real" order when
// deciding whether a user has ordered before. Rejected and Cancelled do not.
var QualifyingOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusShipped,
	OrderStatusOnTheWay,
	OrderStatusOutForDelivery,
	OrderStatusAtDestination,
	OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

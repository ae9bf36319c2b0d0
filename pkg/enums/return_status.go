package enums

import "fmt"

// ReturnStatus tracks a return request from submission to an admin decision.
type ReturnStatus string

const (
	ReturnStatusNone    ReturnStatus = "None"
	ReturnStatusPending ReturnStatus = "Pending"
	ReturnStatusSuccess ReturnStatus = "Success"
	ReturnStatusDenied  ReturnStatus = "Denied"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusNone,
	ReturnStatusPending,
	ReturnStatusSuccess,
	ReturnStatusDenied,
}

// IsValid reports whether the value is a known ReturnStatus.
func (s ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}

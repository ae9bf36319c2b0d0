package enums

import "fmt"

// CouponUsage controls how often a single user may redeem a coupon.
type CouponUsage string

const (
	CouponUseOnce CouponUsage = "one"
	CouponUseMany CouponUsage = "many"
)

var validCouponUsages = []CouponUsage{CouponUseOnce, CouponUseMany}

// IsValid reports whether the value is a known CouponUsage.
func (u CouponUsage) IsValid() bool {
	for _, candidate := range validCouponUsages {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseCouponUsage converts raw input into a CouponUsage.
func ParseCouponUsage(value string) (CouponUsage, error) {
	for _, candidate := range validCouponUsages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon usage %q", value)
}

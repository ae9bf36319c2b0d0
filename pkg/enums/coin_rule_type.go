package enums

import "fmt"

// CoinRuleType selects how a subcategory coin rule converts a purchase into
// earned coins.
type CoinRuleType string

const (
	// CoinRulePercentage earns round(lineTotal * value / 100) coins.
	CoinRulePercentage CoinRuleType = "percentage"
	// CoinRuleFixed earns value coins per unit purchased.
	CoinRuleFixed CoinRuleType = "fixed"
)

var validCoinRuleTypes = []CoinRuleType{CoinRulePercentage, CoinRuleFixed}

// IsValid reports whether the value is a known CoinRuleType.
func (t CoinRuleType) IsValid() bool {
	for _, candidate := range validCoinRuleTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCoinRuleType converts raw input into a CoinRuleType.
func ParseCoinRuleType(value string) (CoinRuleType, error) {
	for _, candidate := range validCoinRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coin rule type %q", value)
}

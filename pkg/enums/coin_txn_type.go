package enums

import "fmt"

// CoinTxnType classifies an append-only coin ledger entry. Amounts are always
// stored as positive magnitudes; the type carries the direction.
type CoinTxnType string

const (
	CoinTxnAdded    CoinTxnType = "Added"
	CoinTxnUsed     CoinTxnType = "Used"
	CoinTxnRefunded CoinTxnType = "Refunded"
	CoinTxnDeducted CoinTxnType = "Deducted"
)

var validCoinTxnTypes = []CoinTxnType{
	CoinTxnAdded,
	CoinTxnUsed,
	CoinTxnRefunded,
	CoinTxnDeducted,
}

// IsValid reports whether the value is a known CoinTxnType.
func (t CoinTxnType) IsValid() bool {
	for _, candidate := range validCoinTxnTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCoinTxnType converts raw input into a CoinTxnType.
func ParseCoinTxnType(value string) (CoinTxnType, error) {
	for _, candidate := range validCoinTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coin transaction type %q", value)
}

package enums

import "fmt"

// TransactionType is the canonical category for a credit balance change.
type TransactionType string

const (
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeDeduct   TransactionType = "deduct"
	TransactionTypeRefund   TransactionType = "refund"
)

var validTransactionTypes = []TransactionType{
	TransactionTypePurchase,
	TransactionTypeDeduct,
	TransactionTypeRefund,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts the raw string to TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

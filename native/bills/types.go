package bills

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// BillType captures one whitelisted biller and the address payments forward to.
type BillType struct {
	ID        string
	Payee     [20]byte
	CreatedAt uint64
}

var (
	billTypePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	// ErrInvalidBillType is returned when the identifier fails validation.
	ErrInvalidBillType = errors.New("bills: invalid bill type")
)

// NormalizeBillType lowercases and validates a bill-type identifier such as
// "electricity" or "water-city".
func NormalizeBillType(id string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(id))
	if len(lower) < 2 || len(lower) > 32 {
		return "", fmt.Errorf("%w: must be between 2 and 32 characters", ErrInvalidBillType)
	}
	if !billTypePattern.MatchString(lower) {
		return "", fmt.Errorf("%w: allowed characters are [a-z0-9-]", ErrInvalidBillType)
	}
	return lower, nil
}

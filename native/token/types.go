package token

import (
	"fmt"
	"math/big"
	"strings"
)

// MinterRole is the role name a caller must hold to mint new supply.
const MinterRole = "MINTER"

// Metadata captures the definition and running supply of a registered token.
type Metadata struct {
	Symbol      string
	Name        string
	Decimals    uint8
	TotalSupply *big.Int
}

// Clone returns a deep copy of the metadata record.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	if m.TotalSupply != nil {
		clone.TotalSupply = new(big.Int).Set(m.TotalSupply)
	} else {
		clone.TotalSupply = big.NewInt(0)
	}
	return &clone
}

// NormalizeSymbol validates a token symbol and returns its canonical uppercase
// form. Symbols are short alphanumeric identifiers such as "PESA" or "XPES".
func NormalizeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if len(trimmed) < 2 || len(trimmed) > 12 {
		return "", fmt.Errorf("token: symbol must be between 2 and 12 characters")
	}
	for _, r := range trimmed {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("token: symbol contains invalid character %q", r)
		}
	}
	return trimmed, nil
}

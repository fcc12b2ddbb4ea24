package loan

import "math/big"

// Status represents the lifecycle states of a peer-to-peer loan.
type Status uint8

const (
	StatusRequested Status = iota
	StatusFunded
	StatusRepaid
	StatusDefaulted
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusFunded, StatusRepaid, StatusDefaulted:
		return true
	default:
		return false
	}
}

// String renders the status for events and RPC responses.
func (s Status) String() string {
	switch s {
	case StatusRequested:
		return "requested"
	case StatusFunded:
		return "funded"
	case StatusRepaid:
		return "repaid"
	case StatusDefaulted:
		return "defaulted"
	default:
		return "unknown"
	}
}

// Loan captures one collateral-free loan agreement. The lender identity and
// due time are fixed at funding; Repaid and Defaulted are mutually exclusive
// terminal states.
type Loan struct {
	ID        uint64
	Borrower  [20]byte
	Lender    [20]byte
	Token     string
	Principal *big.Int
	RateBps   uint64
	Duration  uint64
	CreatedAt uint64
	DueTime   uint64
	Status    Status
}

// Clone returns a deep copy of the loan record.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Principal != nil {
		clone.Principal = new(big.Int).Set(l.Principal)
	} else {
		clone.Principal = big.NewInt(0)
	}
	return &clone
}

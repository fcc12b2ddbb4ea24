package events

import (
	"math/big"

	"pesachain/core/types"
)

const (
	// TypeLoanRequested is emitted when a borrower opens a loan request.
	TypeLoanRequested = "loan.requested"
	// TypeLoanFunded is emitted when a lender funds a requested loan.
	TypeLoanFunded = "loan.funded"
	// TypeLoanRepaid is emitted when the borrower settles principal plus interest.
	TypeLoanRepaid = "loan.repaid"
	// TypeLoanDefaulted is emitted when the lender marks an overdue loan.
	TypeLoanDefaulted = "loan.defaulted"
)

// LoanRequested announces a new collateral-free loan request.
type LoanRequested struct {
	LoanID    uint64
	Borrower  [20]byte
	Principal *big.Int
	RateBps   uint64
	Duration  int64
}

func (LoanRequested) EventType() string { return TypeLoanRequested }

// Event converts the structured payload into a broadcastable event.
func (e LoanRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanRequested,
		Attributes: map[string]string{
			"loanId":    uintToString(e.LoanID),
			"borrower":  hexAddr(e.Borrower),
			"principal": formatAmount(e.Principal),
			"rateBps":   uintToString(e.RateBps),
			"duration":  intToString(e.Duration),
		},
	}
}

// LoanFunded records the lender identity and the computed due time.
type LoanFunded struct {
	LoanID   uint64
	Borrower [20]byte
	Lender   [20]byte
	DueTime  int64
}

func (LoanFunded) EventType() string { return TypeLoanFunded }

func (e LoanFunded) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanFunded,
		Attributes: map[string]string{
			"loanId":   uintToString(e.LoanID),
			"borrower": hexAddr(e.Borrower),
			"lender":   hexAddr(e.Lender),
			"dueTime":  intToString(e.DueTime),
		},
	}
}

// LoanRepaid records the total amount returned to the lender.
type LoanRepaid struct {
	LoanID uint64
	Amount *big.Int
}

func (LoanRepaid) EventType() string { return TypeLoanRepaid }

func (e LoanRepaid) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanRepaid,
		Attributes: map[string]string{
			"loanId": uintToString(e.LoanID),
			"amount": formatAmount(e.Amount),
		},
	}
}

// LoanDefaulted records the terminal default transition.
type LoanDefaulted struct {
	LoanID uint64
	Lender [20]byte
}

func (LoanDefaulted) EventType() string { return TypeLoanDefaulted }

func (e LoanDefaulted) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanDefaulted,
		Attributes: map[string]string{
			"loanId": uintToString(e.LoanID),
			"lender": hexAddr(e.Lender),
		},
	}
}

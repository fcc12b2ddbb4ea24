package loan

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

type mockState struct {
	loans  map[uint64]*Loan
	nextID uint64
	index  map[[20]byte][]uint64
	tokens map[string]bool
}

func newMockState() *mockState {
	return &mockState{
		loans:  make(map[uint64]*Loan),
		nextID: 1,
		index:  make(map[[20]byte][]uint64),
		tokens: map[string]bool{"PESA": true},
	}
}

func (m *mockState) LoanNextID() (uint64, error) {
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *mockState) LoanGet(id uint64) (*Loan, bool, error) {
	l, ok := m.loans[id]
	if !ok {
		return nil, false, nil
	}
	return l.Clone(), true, nil
}

func (m *mockState) LoanPut(l *Loan) error {
	m.loans[l.ID] = l.Clone()
	return nil
}

func (m *mockState) LoanIndexAppend(addr [20]byte, id uint64) error {
	for _, existing := range m.index[addr] {
		if existing == id {
			return nil
		}
	}
	m.index[addr] = append(m.index[addr], id)
	return nil
}

func (m *mockState) LoansOf(addr [20]byte) ([]uint64, error) {
	return append([]uint64(nil), m.index[addr]...), nil
}

func (m *mockState) TokenExists(symbol string) (bool, error) {
	return m.tokens[symbol], nil
}

type mockLedger struct {
	balances map[string]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]*big.Int)}
}

func balKey(addr [20]byte, symbol string) string {
	return fmt.Sprintf("%x/%s", addr, symbol)
}

func (m *mockLedger) balance(addr [20]byte, symbol string) *big.Int {
	if bal, ok := m.balances[balKey(addr, symbol)]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (m *mockLedger) fund(addr [20]byte, symbol string, amount int64) {
	m.balances[balKey(addr, symbol)] = big.NewInt(amount)
}

func (m *mockLedger) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	bal := m.balance(from, symbol)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("mock ledger: insufficient balance for %x", from)
	}
	m.balances[balKey(from, symbol)] = bal.Sub(bal, amount)
	m.balances[balKey(to, symbol)] = new(big.Int).Add(m.balance(to, symbol), amount)
	return nil
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

const daySeconds = 86_400

func newTestEngine(t *testing.T) (*Engine, *mockLedger, *int64) {
	t.Helper()
	state := newMockState()
	ledger := newMockLedger()
	engine := NewEngine(Limits{
		MinDuration: daySeconds,
		MaxDuration: 365 * daySeconds,
		MaxRateBps:  3_000,
		RequestTTL:  7 * daySeconds,
	})
	engine.SetState(state)
	engine.SetLedger(ledger)
	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { return now })
	return engine, ledger, &now
}

func TestRequestValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	borrower := addr(1)

	if _, err := engine.RequestLoan(borrower, "PESA", big.NewInt(0), 500, daySeconds); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero principal: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.RequestLoan(borrower, "GHOST", big.NewInt(1_000), 500, daySeconds); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 3_001, daySeconds); !errors.Is(err, ErrRateTooHigh) {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
	if _, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 500, daySeconds-1); !errors.Is(err, ErrDurationOutOfRange) {
		t.Fatalf("short duration: expected ErrDurationOutOfRange, got %v", err)
	}
	if _, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 500, 366*daySeconds); !errors.Is(err, ErrDurationOutOfRange) {
		t.Fatalf("long duration: expected ErrDurationOutOfRange, got %v", err)
	}

	id, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 500, 30*daySeconds)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	record, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != StatusRequested {
		t.Fatalf("status = %s, want requested", record.Status)
	}
	if record.DueTime != 0 {
		t.Fatalf("due time set before funding: %d", record.DueTime)
	}
}

func TestFundRepayLifecycle(t *testing.T) {
	engine, ledger, now := newTestEngine(t)
	borrower := addr(1)
	lender := addr(2)
	ledger.fund(lender, "PESA", 1_000)

	id, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 500, 30*daySeconds)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// The borrower cannot fund its own request.
	if err := engine.FundLoan(borrower, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("self fund: expected ErrUnauthorized, got %v", err)
	}

	if err := engine.FundLoan(lender, id); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if got := ledger.balance(borrower, "PESA"); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("borrower balance = %s, want 1000", got)
	}
	record, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != StatusFunded {
		t.Fatalf("status = %s, want funded", record.Status)
	}
	if record.DueTime != uint64(*now)+30*daySeconds {
		t.Fatalf("due time = %d, want funding time + duration", record.DueTime)
	}
	if err := engine.FundLoan(addr(3), id); !errors.Is(err, ErrAlreadyFunded) {
		t.Fatalf("double fund: expected ErrAlreadyFunded, got %v", err)
	}

	// Only the borrower can repay, and repayment carries 5% interest.
	if _, err := engine.RepayLoan(lender, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("lender repay: expected ErrUnauthorized, got %v", err)
	}
	ledger.fund(borrower, "PESA", 1_050)
	total, err := engine.RepayLoan(borrower, id)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if total.Cmp(big.NewInt(1_050)) != 0 {
		t.Fatalf("repayment = %s, want 1050", total)
	}
	if got := ledger.balance(lender, "PESA"); got.Cmp(big.NewInt(1_050)) != 0 {
		t.Fatalf("lender balance = %s, want 1050", got)
	}

	// Terminal state rejects every further transition.
	if _, err := engine.RepayLoan(borrower, id); !errors.Is(err, ErrAlreadyRepaid) {
		t.Fatalf("double repay: expected ErrAlreadyRepaid, got %v", err)
	}
	if err := engine.MarkDefault(lender, id); !errors.Is(err, ErrAlreadyRepaid) {
		t.Fatalf("default after repay: expected ErrAlreadyRepaid, got %v", err)
	}
}

func TestDefaultRequiresOverdue(t *testing.T) {
	engine, ledger, now := newTestEngine(t)
	borrower := addr(1)
	lender := addr(2)
	ledger.fund(lender, "PESA", 1_000)

	id, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 500, 30*daySeconds)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := engine.MarkDefault(lender, id); !errors.Is(err, ErrNotFunded) {
		t.Fatalf("default unfunded: expected ErrNotFunded, got %v", err)
	}
	if err := engine.FundLoan(lender, id); err != nil {
		t.Fatalf("fund: %v", err)
	}

	if err := engine.MarkDefault(lender, id); !errors.Is(err, ErrNotDue) {
		t.Fatalf("early default: expected ErrNotDue, got %v", err)
	}
	// Exactly at the due time the loan is still repayable.
	*now += 30 * daySeconds
	if err := engine.MarkDefault(lender, id); !errors.Is(err, ErrNotDue) {
		t.Fatalf("default at due time: expected ErrNotDue, got %v", err)
	}

	*now++
	if err := engine.MarkDefault(borrower, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("borrower default: expected ErrUnauthorized, got %v", err)
	}
	if err := engine.MarkDefault(lender, id); err != nil {
		t.Fatalf("default: %v", err)
	}
	record, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != StatusDefaulted {
		t.Fatalf("status = %s, want defaulted", record.Status)
	}
	if _, err := engine.RepayLoan(borrower, id); !errors.Is(err, ErrAlreadyDefaulted) {
		t.Fatalf("repay after default: expected ErrAlreadyDefaulted, got %v", err)
	}
}

func TestFundExpiredRequest(t *testing.T) {
	engine, ledger, now := newTestEngine(t)
	borrower := addr(1)
	lender := addr(2)
	ledger.fund(lender, "PESA", 1_000)

	id, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 500, 30*daySeconds)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	*now += 7*daySeconds + 1
	if err := engine.FundLoan(lender, id); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestLoansOfTracksBothParties(t *testing.T) {
	engine, ledger, _ := newTestEngine(t)
	borrower := addr(1)
	lender := addr(2)
	ledger.fund(lender, "PESA", 5_000)

	first, err := engine.RequestLoan(borrower, "PESA", big.NewInt(1_000), 500, 30*daySeconds)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	second, err := engine.RequestLoan(borrower, "PESA", big.NewInt(2_000), 500, 30*daySeconds)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if first == second {
		t.Fatalf("loan ids must be unique")
	}
	if err := engine.FundLoan(lender, second); err != nil {
		t.Fatalf("fund: %v", err)
	}

	borrowed, err := engine.LoansOf(borrower)
	if err != nil {
		t.Fatalf("loans of borrower: %v", err)
	}
	if len(borrowed) != 2 || borrowed[0] != first || borrowed[1] != second {
		t.Fatalf("borrower loans = %v, want [%d %d]", borrowed, first, second)
	}
	lent, err := engine.LoansOf(lender)
	if err != nil {
		t.Fatalf("loans of lender: %v", err)
	}
	if len(lent) != 1 || lent[0] != second {
		t.Fatalf("lender loans = %v, want [%d]", lent, second)
	}
}

func TestRepaymentAmountRounding(t *testing.T) {
	cases := []struct {
		principal int64
		rateBps   uint64
		want      int64
	}{
		{principal: 1_000, rateBps: 500, want: 1_050},
		{principal: 1, rateBps: 500, want: 1},
		{principal: 199, rateBps: 50, want: 199},
		{principal: 10_000, rateBps: 0, want: 10_000},
	}
	for _, tc := range cases {
		got := RepaymentAmount(big.NewInt(tc.principal), tc.rateBps)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("RepaymentAmount(%d, %d) = %s, want %d", tc.principal, tc.rateBps, got, tc.want)
		}
	}
}

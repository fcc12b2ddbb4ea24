package bills

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"testing"

	nativecommon "pesachain/native/common"
)

type mockState struct {
	types    map[string]*BillType
	balances map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		types:    make(map[string]*BillType),
		balances: make(map[string]*big.Int),
	}
}

func (m *mockState) BillTypeGet(id string) (*BillType, bool, error) {
	bt, ok := m.types[id]
	if !ok {
		return nil, false, nil
	}
	copied := *bt
	return &copied, true, nil
}

func (m *mockState) BillTypePut(bt *BillType) error {
	copied := *bt
	m.types[bt.ID] = &copied
	return nil
}

func (m *mockState) BillTypeDelete(id string) error {
	delete(m.types, id)
	return nil
}

func (m *mockState) BillTypeList() ([]string, error) {
	ids := make([]string, 0, len(m.types))
	for id := range m.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func balKey(addr [20]byte, symbol string) string {
	return fmt.Sprintf("%x/%s", addr, symbol)
}

func (m *mockState) balance(addr [20]byte, symbol string) *big.Int {
	if bal, ok := m.balances[balKey(addr, symbol)]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (m *mockState) fund(addr [20]byte, symbol string, amount int64) {
	m.balances[balKey(addr, symbol)] = big.NewInt(amount)
}

func (m *mockState) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
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

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetLedger(state)
	engine.SetAdmin(addr(9))
	return engine, state
}

func TestWhitelistAdminOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	payee := addr(1)

	if _, err := engine.AddBillType(addr(2), "electricity", payee); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	id, err := engine.AddBillType(addr(9), " Electricity ", payee)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != "electricity" {
		t.Fatalf("normalized id = %q, want %q", id, "electricity")
	}
	if _, err := engine.AddBillType(addr(9), "electricity", payee); !errors.Is(err, ErrBillTypeExists) {
		t.Fatalf("expected ErrBillTypeExists, got %v", err)
	}
	if err := engine.RemoveBillType(addr(2), "electricity"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.RemoveBillType(addr(9), "water"); !errors.Is(err, ErrUnknownBillType) {
		t.Fatalf("expected ErrUnknownBillType, got %v", err)
	}
	if err := engine.RemoveBillType(addr(9), "electricity"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, err := engine.BillTypes()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("whitelist not empty after removal: %v", ids)
	}
}

func TestPayBillForwardsToPayee(t *testing.T) {
	engine, state := newTestEngine(t)
	payee := addr(1)
	payer := addr(2)
	state.fund(payer, "PESA", 500)
	if _, err := engine.AddBillType(addr(9), "electricity", payee); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := engine.PayBill(payer, "electricity", "PESA", big.NewInt(300)); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if got := state.balance(payee, "PESA"); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("payee balance = %s, want 300", got)
	}

	if err := engine.PayBill(payer, "water", "PESA", big.NewInt(1)); !errors.Is(err, ErrUnknownBillType) {
		t.Fatalf("expected ErrUnknownBillType, got %v", err)
	}
	if err := engine.PayBill(payer, "electricity", "PESA", big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestNormalizeBillType(t *testing.T) {
	if _, err := NormalizeBillType("x"); !errors.Is(err, ErrInvalidBillType) {
		t.Fatalf("short id: expected ErrInvalidBillType, got %v", err)
	}
	if _, err := NormalizeBillType("has space"); !errors.Is(err, ErrInvalidBillType) {
		t.Fatalf("space: expected ErrInvalidBillType, got %v", err)
	}
	got, err := NormalizeBillType(" Water-City ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "water-city" {
		t.Fatalf("normalized = %q, want %q", got, "water-city")
	}
}

type reentrantLedger struct {
	*mockState
	engine    *Engine
	attempted bool
	nestedErr error
}

func (l *reentrantLedger) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	if !l.attempted {
		l.attempted = true
		l.nestedErr = l.engine.PayBill(from, "electricity", symbol, big.NewInt(1))
	}
	return l.mockState.Transfer(from, to, symbol, amount)
}

func TestPayBillRejectsReentrantLedger(t *testing.T) {
	engine, state := newTestEngine(t)
	payee := addr(1)
	payer := addr(2)
	state.fund(payer, "PESA", 500)
	if _, err := engine.AddBillType(addr(9), "electricity", payee); err != nil {
		t.Fatalf("add: %v", err)
	}
	hooked := &reentrantLedger{mockState: state, engine: engine}
	engine.SetLedger(hooked)

	if err := engine.PayBill(payer, "electricity", "PESA", big.NewInt(300)); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !hooked.attempted {
		t.Fatalf("hook never fired")
	}
	if !errors.Is(hooked.nestedErr, nativecommon.ErrReentrantCall) {
		t.Fatalf("nested pay: expected ErrReentrantCall, got %v", hooked.nestedErr)
	}
	// Only the outer payment lands.
	if got := state.balance(payee, "PESA"); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("payee balance = %s, want 300", got)
	}
}

package merchant

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

type mockState struct {
	merchants map[[20]byte]*Record
	balances  map[string]*big.Int
	minted    map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		merchants: make(map[[20]byte]*Record),
		balances:  make(map[string]*big.Int),
		minted:    make(map[string]*big.Int),
	}
}

func (m *mockState) MerchantGet(addr [20]byte) (*Record, bool, error) {
	record, ok := m.merchants[addr]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) MerchantPut(record *Record) error {
	m.merchants[record.Address] = record.Clone()
	return nil
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

func (m *mockState) Mint(caller, to [20]byte, symbol string, amount *big.Int) error {
	m.balances[balKey(to, symbol)] = new(big.Int).Add(m.balance(to, symbol), amount)
	m.minted[balKey(to, symbol)] = new(big.Int).Add(m.mintedOf(to, symbol), amount)
	return nil
}

func (m *mockState) mintedOf(addr [20]byte, symbol string) *big.Int {
	if bal, ok := m.minted[balKey(addr, symbol)]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine("PESA", 1_000)
	engine.SetState(state)
	engine.SetLedger(state)
	engine.SetAdmin(addr(9))
	return engine, state
}

func TestRegisterMerchant(t *testing.T) {
	engine, _ := newTestEngine(t)
	shop := addr(1)

	if err := engine.Register(addr(2), shop, 200); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.Register(addr(9), shop, 1_001); !errors.Is(err, ErrRateTooHigh) {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
	if err := engine.Register(addr(9), shop, 200); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Register(addr(9), shop, 300); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	info, err := engine.Info(shop)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.CashbackBps != 200 {
		t.Fatalf("cashback = %d, want 200", info.CashbackBps)
	}
}

func TestPayMintsCashback(t *testing.T) {
	engine, state := newTestEngine(t)
	shop := addr(1)
	buyer := addr(2)
	state.fund(buyer, "PESA", 10_000)
	if err := engine.Register(addr(9), shop, 200); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 2% cashback on a 10_000 purchase.
	cashback, err := engine.Pay(buyer, shop, "PESA", big.NewInt(10_000))
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if cashback.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("cashback = %s, want 200", cashback)
	}
	if got := state.balance(shop, "PESA"); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("merchant balance = %s, want 10000", got)
	}
	if got := state.balance(buyer, "PESA"); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("buyer balance = %s, want minted 200", got)
	}
}

func TestPayCashbackRoundsDownToZero(t *testing.T) {
	engine, state := newTestEngine(t)
	shop := addr(1)
	buyer := addr(2)
	state.fund(buyer, "PESA", 100)
	if err := engine.Register(addr(9), shop, 200); err != nil {
		t.Fatalf("register: %v", err)
	}

	cashback, err := engine.Pay(buyer, shop, "PESA", big.NewInt(49))
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if cashback.Sign() != 0 {
		t.Fatalf("cashback = %s, want 0", cashback)
	}
	if got := state.mintedOf(buyer, "PESA"); got.Sign() != 0 {
		t.Fatalf("zero cashback still minted %s", got)
	}
}

func TestPayValidation(t *testing.T) {
	engine, state := newTestEngine(t)
	shop := addr(1)
	buyer := addr(2)
	state.fund(buyer, "PESA", 100)
	if err := engine.Register(addr(9), shop, 200); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := engine.Pay(buyer, addr(5), "PESA", big.NewInt(10)); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := engine.Pay(buyer, shop, "PESA", big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.Pay(shop, shop, "PESA", big.NewInt(10)); !errors.Is(err, ErrSelfPayment) {
		t.Fatalf("expected ErrSelfPayment, got %v", err)
	}
}

package state

import (
	"math/big"
	"testing"

	"pesachain/core/types"
	"pesachain/native/amm"
	"pesachain/native/farm"
	"pesachain/native/loan"
	"pesachain/native/stake"
	"pesachain/native/token"
	"pesachain/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestAccountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(1)

	account, err := manager.GetAccount(owner)
	if err != nil {
		t.Fatalf("get fresh account: %v", err)
	}
	if account.Nonce != 0 || len(account.Balances) != 0 {
		t.Fatalf("fresh account not empty")
	}

	account.Nonce = 7
	account.Username = "alice"
	account.SetBalance("PESA", big.NewInt(1_234))
	account.SetBalance("USDK", big.NewInt(99))
	if err := manager.PutAccount(owner, account); err != nil {
		t.Fatalf("put account: %v", err)
	}

	loaded, err := manager.GetAccount(owner)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 7 || loaded.Username != "alice" {
		t.Fatalf("metadata lost in round trip")
	}
	if loaded.Balance("PESA").Cmp(big.NewInt(1_234)) != 0 {
		t.Fatalf("PESA balance = %s, want 1234", loaded.Balance("PESA"))
	}
	if loaded.Balance("USDK").Cmp(big.NewInt(99)) != 0 {
		t.Fatalf("USDK balance = %s, want 99", loaded.Balance("USDK"))
	}
}

func TestTokenRegistry(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.RegisterToken(&token.Metadata{Symbol: "PESA", Name: "Pesa", Decimals: 18, TotalSupply: big.NewInt(0)}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := manager.RegisterToken(&token.Metadata{Symbol: "PESA", Name: "Pesa", Decimals: 18}); err == nil {
		t.Fatalf("duplicate register must fail")
	}
	ok, err := manager.TokenExists("PESA")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatalf("registered token not found")
	}
	meta, ok, err := manager.Token("PESA")
	if err != nil || !ok {
		t.Fatalf("token lookup: ok=%v err=%v", ok, err)
	}
	if meta.Decimals != 18 {
		t.Fatalf("decimals = %d, want 18", meta.Decimals)
	}
	list, err := manager.TokenList()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != "PESA" {
		t.Fatalf("token list = %v, want [PESA]", list)
	}
}

func TestRoleGrantRevoke(t *testing.T) {
	manager := newTestManager(t)
	minter := addr(5)

	ok, err := manager.HasRole(token.MinterRole, minter)
	if err != nil {
		t.Fatalf("has role: %v", err)
	}
	if ok {
		t.Fatalf("role granted before grant")
	}
	if err := manager.GrantRole(token.MinterRole, minter); err != nil {
		t.Fatalf("grant: %v", err)
	}
	ok, _ = manager.HasRole(token.MinterRole, minter)
	if !ok {
		t.Fatalf("grant not visible")
	}
	if err := manager.RevokeRole(token.MinterRole, minter); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, _ = manager.HasRole(token.MinterRole, minter)
	if ok {
		t.Fatalf("revoke not visible")
	}
}

func TestAllowanceRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(1)
	spender := addr(2)

	got, err := manager.Allowance("PESA", owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if got.Sign() != 0 {
		t.Fatalf("fresh allowance = %s, want 0", got)
	}
	if err := manager.SetAllowance("PESA", owner, spender, big.NewInt(500)); err != nil {
		t.Fatalf("set allowance: %v", err)
	}
	got, err = manager.Allowance("PESA", owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("allowance = %s, want 500", got)
	}
}

func TestPoolRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	pool := &amm.Pool{
		ID:       amm.PoolID("PESA", "USDK"),
		Token0:   "PESA",
		Token1:   "USDK",
		Reserve0: big.NewInt(1_000),
		Reserve1: big.NewInt(4_000),
		LPSupply: big.NewInt(2_000),
	}
	if err := manager.PoolPut(pool); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	loaded, ok := manager.PoolGet(pool.ID)
	if !ok {
		t.Fatalf("pool not found")
	}
	if loaded.Reserve0.Cmp(pool.Reserve0) != 0 || loaded.Reserve1.Cmp(pool.Reserve1) != 0 {
		t.Fatalf("reserves lost in round trip")
	}
	ids, err := manager.PoolList()
	if err != nil {
		t.Fatalf("pool list: %v", err)
	}
	if len(ids) != 1 || ids[0] != pool.ID {
		t.Fatalf("pool list = %v", ids)
	}

	provider := addr(1)
	if err := manager.SetLPBalance(pool.ID, provider, big.NewInt(777)); err != nil {
		t.Fatalf("set lp balance: %v", err)
	}
	bal, err := manager.LPBalance(pool.ID, provider)
	if err != nil {
		t.Fatalf("lp balance: %v", err)
	}
	if bal.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("lp balance = %s, want 777", bal)
	}
}

func TestStakePositionRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	staker := addr(1)

	_, ok, err := manager.StakeGet(staker)
	if err != nil {
		t.Fatalf("stake get: %v", err)
	}
	if ok {
		t.Fatalf("position exists before put")
	}
	pos := &stake.Position{Amount: big.NewInt(10_000), LastUpdateTime: 1_700_000_000}
	if err := manager.StakePut(staker, pos); err != nil {
		t.Fatalf("stake put: %v", err)
	}
	loaded, ok, err := manager.StakeGet(staker)
	if err != nil || !ok {
		t.Fatalf("stake get: ok=%v err=%v", ok, err)
	}
	if loaded.Amount.Cmp(pos.Amount) != 0 || loaded.LastUpdateTime != pos.LastUpdateTime {
		t.Fatalf("position lost in round trip")
	}
}

func TestFarmPoolSequentialIDs(t *testing.T) {
	manager := newTestManager(t)

	count, err := manager.FarmPoolCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("fresh count = %d", count)
	}
	pool := &farm.Pool{
		ID:                0,
		StakedToken:       "USDK",
		AllocPoint:        100,
		LastRewardTime:    1_700_000_000,
		AccRewardPerShare: big.NewInt(0),
		TotalStaked:       big.NewInt(0),
	}
	if err := manager.FarmPoolPut(pool); err != nil {
		t.Fatalf("put pool 0: %v", err)
	}
	if err := manager.FarmPoolPut(&farm.Pool{ID: 5, StakedToken: "USDK", AllocPoint: 1}); err == nil {
		t.Fatalf("non-sequential pool id must fail")
	}
	count, _ = manager.FarmPoolCount()
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	user := addr(1)
	info := &farm.UserInfo{Amount: big.NewInt(100), RewardDebt: big.NewInt(3)}
	if err := manager.FarmUserPut(0, user, info); err != nil {
		t.Fatalf("put user: %v", err)
	}
	loaded, ok, err := manager.FarmUserGet(0, user)
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if loaded.Amount.Cmp(info.Amount) != 0 || loaded.RewardDebt.Cmp(info.RewardDebt) != 0 {
		t.Fatalf("user info lost in round trip")
	}
}

func TestLoanStorage(t *testing.T) {
	manager := newTestManager(t)
	borrower := addr(1)
	lender := addr(2)

	first, err := manager.LoanNextID()
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	second, err := manager.LoanNextID()
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("ids = (%d, %d), want (1, 2)", first, second)
	}
	if _, ok, err := manager.LoanGet(0); err != nil || ok {
		t.Fatalf("id 0 must never resolve, got ok=%v err=%v", ok, err)
	}

	record := &loan.Loan{
		ID:        first,
		Borrower:  borrower,
		Lender:    lender,
		Token:     "PESA",
		Principal: big.NewInt(1_000),
		RateBps:   500,
		Duration:  86_400,
		CreatedAt: 1_700_000_000,
		Status:    loan.StatusFunded,
	}
	if err := manager.LoanPut(record); err != nil {
		t.Fatalf("put loan: %v", err)
	}
	loaded, ok, err := manager.LoanGet(first)
	if err != nil || !ok {
		t.Fatalf("get loan: ok=%v err=%v", ok, err)
	}
	if loaded.Status != loan.StatusFunded || loaded.Principal.Cmp(record.Principal) != 0 {
		t.Fatalf("loan lost in round trip")
	}

	if err := manager.LoanIndexAppend(borrower, first); err != nil {
		t.Fatalf("index: %v", err)
	}
	// Appending the same id twice must not duplicate it.
	if err := manager.LoanIndexAppend(borrower, first); err != nil {
		t.Fatalf("index: %v", err)
	}
	ids, err := manager.LoansOf(borrower)
	if err != nil {
		t.Fatalf("loans of: %v", err)
	}
	if len(ids) != 1 || ids[0] != first {
		t.Fatalf("loan index = %v, want [0]", ids)
	}
}

func TestEventBuffer(t *testing.T) {
	manager := newTestManager(t)
	manager.AppendEvent(&types.Event{Type: "token.transferred", Attributes: map[string]string{"amount": "5"}})
	manager.AppendEvent(&types.Event{Type: "amm.swapped"})

	evts := manager.Events()
	if len(evts) != 2 {
		t.Fatalf("events = %d, want 2", len(evts))
	}
	if evts[0].Type != "token.transferred" || evts[1].Type != "amm.swapped" {
		t.Fatalf("event order lost")
	}
	manager.ResetEvents()
	if len(manager.Events()) != 0 {
		t.Fatalf("reset did not clear events")
	}
}

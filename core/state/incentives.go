package state

import (
	"fmt"
	"math/big"

	"pesachain/native/amm"
	"pesachain/native/farm"
	"pesachain/native/loan"
	"pesachain/native/stake"
)

// --- AMM pools ---

type poolStored struct {
	ID       [32]byte
	Token0   string
	Token1   string
	Reserve0 *big.Int
	Reserve1 *big.Int
	LPSupply *big.Int
}

// PoolGet loads a pool by its canonical identifier.
func (m *Manager) PoolGet(id [32]byte) (*amm.Pool, bool) {
	stored := new(poolStored)
	ok, err := m.load(prefixedKey(poolPrefix, id[:]), stored)
	if err != nil || !ok {
		return nil, false
	}
	return &amm.Pool{
		ID:       stored.ID,
		Token0:   stored.Token0,
		Token1:   stored.Token1,
		Reserve0: stored.Reserve0,
		Reserve1: stored.Reserve1,
		LPSupply: stored.LPSupply,
	}, true
}

// PoolPut persists the pool record and indexes new pools.
func (m *Manager) PoolPut(pool *amm.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: nil pool")
	}
	if _, exists := m.PoolGet(pool.ID); !exists {
		var ids [][32]byte
		if _, err := m.load(poolListKey, &ids); err != nil {
			return err
		}
		ids = append(ids, pool.ID)
		if err := m.store(poolListKey, ids); err != nil {
			return err
		}
	}
	stored := &poolStored{
		ID:       pool.ID,
		Token0:   pool.Token0,
		Token1:   pool.Token1,
		Reserve0: cloneOrZero(pool.Reserve0),
		Reserve1: cloneOrZero(pool.Reserve1),
		LPSupply: cloneOrZero(pool.LPSupply),
	}
	return m.store(prefixedKey(poolPrefix, pool.ID[:]), stored)
}

// PoolList returns the identifiers of every registered pool in creation order.
func (m *Manager) PoolList() ([][32]byte, error) {
	var ids [][32]byte
	if _, err := m.load(poolListKey, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type lpBalanceStored struct {
	Amount *big.Int
}

// LPBalance returns the LP shares held by addr in the given pool.
func (m *Manager) LPBalance(id [32]byte, addr [20]byte) (*big.Int, error) {
	stored := new(lpBalanceStored)
	ok, err := m.load(prefixedKey(lpBalancePrefix, id[:], addr[:]), stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored.Amount == nil {
		return big.NewInt(0), nil
	}
	return stored.Amount, nil
}

// SetLPBalance records the LP shares held by addr in the given pool.
func (m *Manager) SetLPBalance(id [32]byte, addr [20]byte, amount *big.Int) error {
	return m.store(prefixedKey(lpBalancePrefix, id[:], addr[:]), &lpBalanceStored{Amount: cloneOrZero(amount)})
}

// --- Linear stake ---

type stakeStored struct {
	Amount         *big.Int
	LastUpdateTime uint64
}

// StakeGet loads the staking position for an address.
func (m *Manager) StakeGet(addr [20]byte) (*stake.Position, bool, error) {
	stored := new(stakeStored)
	ok, err := m.load(prefixedKey(stakePrefix, addr[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &stake.Position{Amount: stored.Amount, LastUpdateTime: stored.LastUpdateTime}, true, nil
}

// StakePut persists the staking position for an address.
func (m *Manager) StakePut(addr [20]byte, pos *stake.Position) error {
	if pos == nil {
		return fmt.Errorf("state: nil stake position")
	}
	return m.store(prefixedKey(stakePrefix, addr[:]), &stakeStored{
		Amount:         cloneOrZero(pos.Amount),
		LastUpdateTime: pos.LastUpdateTime,
	})
}

// StakerIndexAppend records an address in the staker index so rate changes
// can settle every position. Appending an already-indexed address is a no-op.
func (m *Manager) StakerIndexAppend(addr [20]byte) error {
	var stakers [][20]byte
	if _, err := m.load(stakeIndexKey, &stakers); err != nil {
		return err
	}
	for _, existing := range stakers {
		if existing == addr {
			return nil
		}
	}
	stakers = append(stakers, addr)
	return m.store(stakeIndexKey, stakers)
}

// StakersList returns every address that has ever held a staking position,
// in first-stake order.
func (m *Manager) StakersList() ([][20]byte, error) {
	var stakers [][20]byte
	if _, err := m.load(stakeIndexKey, &stakers); err != nil {
		return nil, err
	}
	return stakers, nil
}

// --- Yield farm ---

type farmPoolStored struct {
	ID                uint64
	StakedToken       string
	AllocPoint        uint64
	LastRewardTime    uint64
	AccRewardPerShare *big.Int
	TotalStaked       *big.Int
}

// FarmPoolCount returns the number of registered farm pools.
func (m *Manager) FarmPoolCount() (uint64, error) {
	var count uint64
	if _, err := m.load(farmPoolLenKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// FarmPoolGet loads a farm pool by its sequential identifier.
func (m *Manager) FarmPoolGet(id uint64) (*farm.Pool, bool, error) {
	stored := new(farmPoolStored)
	ok, err := m.load(prefixedKey(farmPoolPrefix, uint64Bytes(id)), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &farm.Pool{
		ID:                stored.ID,
		StakedToken:       stored.StakedToken,
		AllocPoint:        stored.AllocPoint,
		LastRewardTime:    stored.LastRewardTime,
		AccRewardPerShare: stored.AccRewardPerShare,
		TotalStaked:       stored.TotalStaked,
	}, true, nil
}

// FarmPoolPut persists a farm pool and bumps the pool count when the
// identifier extends the sequence.
func (m *Manager) FarmPoolPut(pool *farm.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: nil farm pool")
	}
	count, err := m.FarmPoolCount()
	if err != nil {
		return err
	}
	if pool.ID >= count {
		if pool.ID != count {
			return fmt.Errorf("state: farm pool id %d out of sequence", pool.ID)
		}
		if err := m.store(farmPoolLenKey, count+1); err != nil {
			return err
		}
	}
	stored := &farmPoolStored{
		ID:                pool.ID,
		StakedToken:       pool.StakedToken,
		AllocPoint:        pool.AllocPoint,
		LastRewardTime:    pool.LastRewardTime,
		AccRewardPerShare: cloneOrZero(pool.AccRewardPerShare),
		TotalStaked:       cloneOrZero(pool.TotalStaked),
	}
	return m.store(prefixedKey(farmPoolPrefix, uint64Bytes(pool.ID)), stored)
}

type farmUserStored struct {
	Amount     *big.Int
	RewardDebt *big.Int
}

// FarmUserGet loads a participant's record for one farm pool.
func (m *Manager) FarmUserGet(id uint64, addr [20]byte) (*farm.UserInfo, bool, error) {
	stored := new(farmUserStored)
	ok, err := m.load(prefixedKey(farmUserPrefix, uint64Bytes(id), addr[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &farm.UserInfo{Amount: stored.Amount, RewardDebt: stored.RewardDebt}, true, nil
}

// FarmUserPut persists a participant's record for one farm pool.
func (m *Manager) FarmUserPut(id uint64, addr [20]byte, user *farm.UserInfo) error {
	if user == nil {
		return fmt.Errorf("state: nil farm user")
	}
	return m.store(prefixedKey(farmUserPrefix, uint64Bytes(id), addr[:]), &farmUserStored{
		Amount:     cloneOrZero(user.Amount),
		RewardDebt: cloneOrZero(user.RewardDebt),
	})
}

// --- Loans ---

type loanStored struct {
	ID        uint64
	Borrower  [20]byte
	Lender    [20]byte
	Token     string
	Principal *big.Int
	RateBps   uint64
	Duration  uint64
	CreatedAt uint64
	DueTime   uint64
	Status    uint8
}

// LoanNextID allocates the next sequential loan identifier. Ids start at 1;
// 0 is reserved as the invalid id so zero-valued lookups never resolve.
func (m *Manager) LoanNextID() (uint64, error) {
	var next uint64
	if _, err := m.load(loanNextIDKey, &next); err != nil {
		return 0, err
	}
	if next == 0 {
		next = 1
	}
	if err := m.store(loanNextIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// LoanGet loads a loan by identifier.
func (m *Manager) LoanGet(id uint64) (*loan.Loan, bool, error) {
	stored := new(loanStored)
	ok, err := m.load(prefixedKey(loanPrefix, uint64Bytes(id)), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &loan.Loan{
		ID:        stored.ID,
		Borrower:  stored.Borrower,
		Lender:    stored.Lender,
		Token:     stored.Token,
		Principal: stored.Principal,
		RateBps:   stored.RateBps,
		Duration:  stored.Duration,
		CreatedAt: stored.CreatedAt,
		DueTime:   stored.DueTime,
		Status:    loan.Status(stored.Status),
	}, true, nil
}

// LoanPut persists a loan record.
func (m *Manager) LoanPut(l *loan.Loan) error {
	if l == nil {
		return fmt.Errorf("state: nil loan")
	}
	stored := &loanStored{
		ID:        l.ID,
		Borrower:  l.Borrower,
		Lender:    l.Lender,
		Token:     l.Token,
		Principal: cloneOrZero(l.Principal),
		RateBps:   l.RateBps,
		Duration:  l.Duration,
		CreatedAt: l.CreatedAt,
		DueTime:   l.DueTime,
		Status:    uint8(l.Status),
	}
	return m.store(prefixedKey(loanPrefix, uint64Bytes(l.ID)), stored)
}

// LoanIndexAppend records a loan id against a party so LoansOf stays ordered
// by creation.
func (m *Manager) LoanIndexAppend(addr [20]byte, id uint64) error {
	var ids []uint64
	key := prefixedKey(loanIndexPrefix, addr[:])
	if _, err := m.load(key, &ids); err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return m.store(key, ids)
}

// LoansOf returns the ordered loan ids a party participates in.
func (m *Manager) LoansOf(addr [20]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.load(prefixedKey(loanIndexPrefix, addr[:]), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

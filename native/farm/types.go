package farm

import "math/big"

// Pool tracks one farm pool: the token it stakes, its share of the global
// emission rate, and the running per-share reward accumulator.
type Pool struct {
	ID                uint64
	StakedToken       string
	AllocPoint        uint64
	LastRewardTime    uint64
	AccRewardPerShare *big.Int
	TotalStaked       *big.Int
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.AccRewardPerShare = cloneBigInt(p.AccRewardPerShare)
	clone.TotalStaked = cloneBigInt(p.TotalStaked)
	return &clone
}

// UserInfo tracks a participant's stake in one farm pool. RewardDebt is the
// portion of the per-share accumulator already paid out, recomputed after
// every settlement so pending = Amount*acc/SCALE - RewardDebt stays >= 0.
type UserInfo struct {
	Amount     *big.Int
	RewardDebt *big.Int
}

// Clone returns a deep copy of the user record.
func (u *UserInfo) Clone() *UserInfo {
	if u == nil {
		return nil
	}
	return &UserInfo{
		Amount:     cloneBigInt(u.Amount),
		RewardDebt: cloneBigInt(u.RewardDebt),
	}
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

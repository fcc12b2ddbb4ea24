package events

import (
	"math/big"

	"pesachain/core/types"
)

const (
	// TypeFarmPoolAdded is emitted when the admin registers a new farm pool.
	TypeFarmPoolAdded = "farm.poolAdded"
	// TypeFarmDeposited captures a stake increase in a farm pool.
	TypeFarmDeposited = "farm.deposited"
	// TypeFarmWithdrawn captures a stake decrease in a farm pool.
	TypeFarmWithdrawn = "farm.withdrawn"
	// TypeFarmHarvested is emitted when pending rewards are paid out.
	TypeFarmHarvested = "farm.harvested"
)

// FarmPoolAdded announces a new pool and its emission weight.
type FarmPoolAdded struct {
	PoolID     uint64
	Token      string
	AllocPoint uint64
}

func (FarmPoolAdded) EventType() string { return TypeFarmPoolAdded }

// Event converts the structured payload into a broadcastable event.
func (e FarmPoolAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeFarmPoolAdded,
		Attributes: map[string]string{
			"poolId":     uintToString(e.PoolID),
			"token":      normalizeAsset(e.Token),
			"allocPoint": uintToString(e.AllocPoint),
		},
	}
}

// FarmDeposited captures a deposit and any reward settled alongside it.
type FarmDeposited struct {
	PoolID  uint64
	Account [20]byte
	Amount  *big.Int
	Reward  *big.Int
}

func (FarmDeposited) EventType() string { return TypeFarmDeposited }

func (e FarmDeposited) Event() *types.Event {
	attrs := map[string]string{
		"poolId": uintToString(e.PoolID),
		"addr":   hexAddr(e.Account),
		"amount": formatAmount(e.Amount),
	}
	if e.Reward != nil && e.Reward.Sign() > 0 {
		attrs["reward"] = e.Reward.String()
	}
	return &types.Event{Type: TypeFarmDeposited, Attributes: attrs}
}

// FarmWithdrawn captures a withdrawal and any reward settled alongside it.
type FarmWithdrawn struct {
	PoolID  uint64
	Account [20]byte
	Amount  *big.Int
	Reward  *big.Int
}

func (FarmWithdrawn) EventType() string { return TypeFarmWithdrawn }

func (e FarmWithdrawn) Event() *types.Event {
	attrs := map[string]string{
		"poolId": uintToString(e.PoolID),
		"addr":   hexAddr(e.Account),
		"amount": formatAmount(e.Amount),
	}
	if e.Reward != nil && e.Reward.Sign() > 0 {
		attrs["reward"] = e.Reward.String()
	}
	return &types.Event{Type: TypeFarmWithdrawn, Attributes: attrs}
}

// FarmHarvested captures a standalone reward payout.
type FarmHarvested struct {
	PoolID  uint64
	Account [20]byte
	Reward  *big.Int
}

func (FarmHarvested) EventType() string { return TypeFarmHarvested }

func (e FarmHarvested) Event() *types.Event {
	return &types.Event{
		Type: TypeFarmHarvested,
		Attributes: map[string]string{
			"poolId": uintToString(e.PoolID),
			"addr":   hexAddr(e.Account),
			"reward": formatAmount(e.Reward),
		},
	}
}

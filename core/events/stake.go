package events

import (
	"math/big"

	"pesachain/core/types"
)

const (
	// TypeStaked captures a stake balance increase.
	TypeStaked = "stake.staked"
	// TypeUnstaked captures a stake balance decrease.
	TypeUnstaked = "stake.unstaked"
	// TypeStakeRewardsClaimed is emitted when accrued rewards are minted to a staker.
	TypeStakeRewardsClaimed = "stake.rewardsClaimed"
	// TypeStakeRateUpdated is emitted when the admin adjusts the annual rate.
	TypeStakeRateUpdated = "stake.rateUpdated"
)

// Staked captures the amount staked and the resulting position size.
type Staked struct {
	Account  [20]byte
	Amount   *big.Int
	NewStake *big.Int
}

func (Staked) EventType() string { return TypeStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	return &types.Event{
		Type: TypeStaked,
		Attributes: map[string]string{
			"addr":     hexAddr(e.Account),
			"amount":   formatAmount(e.Amount),
			"newStake": formatAmount(e.NewStake),
		},
	}
}

// Unstaked captures the amount withdrawn and the resulting position size.
type Unstaked struct {
	Account  [20]byte
	Amount   *big.Int
	NewStake *big.Int
}

func (Unstaked) EventType() string { return TypeUnstaked }

func (e Unstaked) Event() *types.Event {
	return &types.Event{
		Type: TypeUnstaked,
		Attributes: map[string]string{
			"addr":     hexAddr(e.Account),
			"amount":   formatAmount(e.Amount),
			"newStake": formatAmount(e.NewStake),
		},
	}
}

// StakeRewardsClaimed captures rewards minted during a settlement.
type StakeRewardsClaimed struct {
	Account [20]byte
	Reward  *big.Int
}

func (StakeRewardsClaimed) EventType() string { return TypeStakeRewardsClaimed }

func (e StakeRewardsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeRewardsClaimed,
		Attributes: map[string]string{
			"addr":   hexAddr(e.Account),
			"reward": formatAmount(e.Reward),
		},
	}
}

// StakeRateUpdated records an admin change to the annual accrual rate.
type StakeRateUpdated struct {
	OldRateBps uint64
	NewRateBps uint64
}

func (StakeRateUpdated) EventType() string { return TypeStakeRateUpdated }

func (e StakeRateUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeRateUpdated,
		Attributes: map[string]string{
			"oldRateBps": uintToString(e.OldRateBps),
			"newRateBps": uintToString(e.NewRateBps),
		},
	}
}

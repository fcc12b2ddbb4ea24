package events

import (
	"encoding/hex"
	"math/big"

	"pesachain/core/types"
)

const (
	// TypePoolCreated is emitted once per canonical token pair.
	TypePoolCreated = "amm.poolCreated"
	// TypeLiquidityAdded captures a liquidity deposit and the shares it minted.
	TypeLiquidityAdded = "amm.liquidityAdded"
	// TypeLiquidityRemoved captures a share burn and the amounts paid out.
	TypeLiquidityRemoved = "amm.liquidityRemoved"
	// TypeSwapped captures a completed swap against a pool.
	TypeSwapped = "amm.swapped"
)

// PoolCreated announces the registration of a new constant-product pool.
type PoolCreated struct {
	PoolID [32]byte
	Token0 string
	Token1 string
}

func (PoolCreated) EventType() string { return TypePoolCreated }

// Event converts the structured payload into a broadcastable event.
func (e PoolCreated) Event() *types.Event {
	return &types.Event{
		Type: TypePoolCreated,
		Attributes: map[string]string{
			"poolId": hex.EncodeToString(e.PoolID[:]),
			"token0": normalizeAsset(e.Token0),
			"token1": normalizeAsset(e.Token1),
		},
	}
}

// LiquidityAdded captures the amounts pulled in and the LP shares minted.
type LiquidityAdded struct {
	PoolID   [32]byte
	Provider [20]byte
	Amount0  *big.Int
	Amount1  *big.Int
	Shares   *big.Int
}

func (LiquidityAdded) EventType() string { return TypeLiquidityAdded }

func (e LiquidityAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityAdded,
		Attributes: map[string]string{
			"poolId":   hex.EncodeToString(e.PoolID[:]),
			"provider": hexAddr(e.Provider),
			"amount0":  formatAmount(e.Amount0),
			"amount1":  formatAmount(e.Amount1),
			"shares":   formatAmount(e.Shares),
		},
	}
}

// LiquidityRemoved captures the LP shares burned and the amounts released.
type LiquidityRemoved struct {
	PoolID   [32]byte
	Provider [20]byte
	Amount0  *big.Int
	Amount1  *big.Int
	Shares   *big.Int
}

func (LiquidityRemoved) EventType() string { return TypeLiquidityRemoved }

func (e LiquidityRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityRemoved,
		Attributes: map[string]string{
			"poolId":   hex.EncodeToString(e.PoolID[:]),
			"provider": hexAddr(e.Provider),
			"amount0":  formatAmount(e.Amount0),
			"amount1":  formatAmount(e.Amount1),
			"shares":   formatAmount(e.Shares),
		},
	}
}

// Swapped captures the trade direction, size and realised output.
type Swapped struct {
	PoolID    [32]byte
	Trader    [20]byte
	TokenIn   string
	TokenOut  string
	AmountIn  *big.Int
	AmountOut *big.Int
}

func (Swapped) EventType() string { return TypeSwapped }

func (e Swapped) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapped,
		Attributes: map[string]string{
			"poolId":    hex.EncodeToString(e.PoolID[:]),
			"trader":    hexAddr(e.Trader),
			"tokenIn":   normalizeAsset(e.TokenIn),
			"tokenOut":  normalizeAsset(e.TokenOut),
			"amountIn":  formatAmount(e.AmountIn),
			"amountOut": formatAmount(e.AmountOut),
		},
	}
}

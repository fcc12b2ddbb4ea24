package amm

import (
	"errors"
	"fmt"
	"math/big"

	"pesachain/core/events"
	nativecommon "pesachain/native/common"
	"pesachain/native/token"
)

var (
	errNilState  = errors.New("amm engine: state not configured")
	errNilLedger = errors.New("amm engine: ledger not configured")

	// ErrIdenticalTokens is returned when both sides of a pair are the same token.
	ErrIdenticalTokens = errors.New("amm engine: identical tokens")
	// ErrInvalidToken is returned when a token is empty or unregistered.
	ErrInvalidToken = errors.New("amm engine: invalid token")
	// ErrPoolExists is returned when the canonical pair is already registered.
	ErrPoolExists = errors.New("amm engine: pool exists")
	// ErrPoolNotFound is returned when no pool is registered for the pair.
	ErrPoolNotFound = errors.New("amm engine: pool not found")
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amm engine: amount must be positive")
	// ErrSlippageExceeded is returned when a computed amount violates the
	// caller's minimum bound.
	ErrSlippageExceeded = errors.New("amm engine: slippage exceeded")
	// ErrInsufficientLiquidity is returned when reserves or shares cannot
	// support the operation.
	ErrInsufficientLiquidity = errors.New("amm engine: insufficient liquidity")
	// ErrInsufficientShares is returned when the caller burns more LP shares
	// than they hold.
	ErrInsufficientShares = errors.New("amm engine: insufficient shares")
)

const moduleName = "amm"

type engineState interface {
	PoolGet(id [32]byte) (*Pool, bool)
	PoolPut(pool *Pool) error
	LPBalance(id [32]byte, addr [20]byte) (*big.Int, error)
	SetLPBalance(id [32]byte, addr [20]byte, amount *big.Int) error
	TokenExists(symbol string) (bool, error)
}

type ledger interface {
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
}

// Engine implements the constant-product pool registry, liquidity
// provisioning and swap pricing. Pool funds are held at the engine's module
// vault; reserves are the engine's own accounting of that vault, segregated
// per pool.
type Engine struct {
	state   engineState
	ledger  ledger
	emitter events.Emitter
	feeBps  uint64
	vault   [20]byte
	lock    nativecommon.ReentrancyLock
	pauses  nativecommon.PauseView
}

// NewEngine creates an AMM engine with the supplied swap fee in basis points
// and a no-op emitter.
func NewEngine(feeBps uint64) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		feeBps:  feeBps,
		vault:   nativecommon.ModuleAddress(moduleName),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ledger the engine settles through.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Vault returns the module address holding all pooled funds.
func (e *Engine) Vault() [20]byte { return e.vault }

// FeeBps returns the swap fee in basis points.
func (e *Engine) FeeBps() uint64 { return e.feeBps }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) normalizePair(tokenA, tokenB string) (string, string, error) {
	a, err := token.NormalizeSymbol(tokenA)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	b, err := token.NormalizeSymbol(tokenB)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if a == b {
		return "", "", ErrIdenticalTokens
	}
	for _, symbol := range []string{a, b} {
		ok, err := e.state.TokenExists(symbol)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return "", "", fmt.Errorf("%w: %s", ErrInvalidToken, symbol)
		}
	}
	return a, b, nil
}

// CreatePool registers the canonical pool for an unordered token pair and
// allocates its LP-share ledger. The identifier is direction-agnostic.
func (e *Engine) CreatePool(tokenA, tokenB string) ([32]byte, error) {
	var id [32]byte
	if err := e.ready(); err != nil {
		return id, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return id, err
	}
	if err := e.lock.Acquire(); err != nil {
		return id, err
	}
	defer e.lock.Release()

	a, b, err := e.normalizePair(tokenA, tokenB)
	if err != nil {
		return id, err
	}
	token0, token1, _ := SortTokens(a, b)
	id = PoolID(token0, token1)
	if _, exists := e.state.PoolGet(id); exists {
		return id, ErrPoolExists
	}
	pool := &Pool{
		ID:       id,
		Token0:   token0,
		Token1:   token1,
		Reserve0: big.NewInt(0),
		Reserve1: big.NewInt(0),
		LPSupply: big.NewInt(0),
	}
	if err := e.state.PoolPut(pool); err != nil {
		return id, err
	}
	e.emit(events.PoolCreated{PoolID: id, Token0: token0, Token1: token1})
	return id, nil
}

// Pool returns a copy of the pool registered for the unordered pair.
func (e *Engine) Pool(tokenA, tokenB string) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, ok := e.state.PoolGet(PoolID(tokenA, tokenB))
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool.Clone(), nil
}

// SharesOf returns the LP shares addr holds in the pool for the pair.
func (e *Engine) SharesOf(tokenA, tokenB string, addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	id := PoolID(tokenA, tokenB)
	if _, ok := e.state.PoolGet(id); !ok {
		return nil, ErrPoolNotFound
	}
	return e.state.LPBalance(id, addr)
}

// AddLiquidity pulls the optimal deposit amounts from the provider and mints
// LP shares. The first deposit locks the minimum-liquidity floor permanently;
// later deposits mint pro rata and respect the caller's minimum bounds.
//
// The inbound transfers are confirmed before the share mint and reserve
// update commit; the reentrancy lock covers that whole window.
func (e *Engine) AddLiquidity(provider [20]byte, tokenA, tokenB string, desiredA, desiredB, minA, minB *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, nil, nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, nil, err
	}
	if err := e.lock.Acquire(); err != nil {
		return nil, nil, nil, err
	}
	defer e.lock.Release()

	a, err := token.NormalizeSymbol(tokenA)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	b, err := token.NormalizeSymbol(tokenB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	pool, ok := e.state.PoolGet(PoolID(a, b))
	if !ok {
		return nil, nil, nil, ErrPoolNotFound
	}
	// Map the caller's orientation onto the canonical token order.
	desired0, desired1, min0, min1 := desiredA, desiredB, minA, minB
	aliased := a != pool.Token0
	if aliased {
		desired0, desired1, min0, min1 = desiredB, desiredA, minB, minA
	}
	if desired0 == nil || desired0.Sign() <= 0 || desired1 == nil || desired1.Sign() <= 0 {
		return nil, nil, nil, ErrInvalidAmount
	}
	if min0 == nil {
		min0 = big.NewInt(0)
	}
	if min1 == nil {
		min1 = big.NewInt(0)
	}

	var used0, used1 *big.Int
	if pool.LPSupply.Sign() == 0 {
		used0, used1 = desired0, desired1
	} else {
		// Scale against the current price ratio so the deposit does not
		// move the price.
		implied1 := mulDiv(desired0, pool.Reserve1, pool.Reserve0)
		if implied1.Cmp(desired1) <= 0 {
			used0, used1 = desired0, implied1
		} else {
			implied0 := mulDiv(desired1, pool.Reserve0, pool.Reserve1)
			if implied0.Cmp(desired0) > 0 {
				return nil, nil, nil, ErrInvalidAmount
			}
			used0, used1 = implied0, desired1
		}
	}
	if used0.Cmp(min0) < 0 || used1.Cmp(min1) < 0 {
		return nil, nil, nil, ErrSlippageExceeded
	}

	var minted, locked *big.Int
	if pool.LPSupply.Sign() == 0 {
		shares := sqrtBig(new(big.Int).Mul(used0, used1))
		if shares.Cmp(minLiquidityShares) <= 0 {
			return nil, nil, nil, ErrInsufficientLiquidity
		}
		minted = new(big.Int).Sub(shares, minLiquidityShares)
		locked = new(big.Int).Set(minLiquidityShares)
	} else {
		minted = minBig(
			mulDiv(used0, pool.LPSupply, pool.Reserve0),
			mulDiv(used1, pool.LPSupply, pool.Reserve1),
		)
		if minted.Sign() <= 0 {
			return nil, nil, nil, ErrInsufficientLiquidity
		}
	}

	// Pull both sides in before committing shares and reserves. A failure on
	// the second leg unwinds the first so no partial deposit survives.
	if err := e.ledger.Transfer(provider, e.vault, pool.Token0, used0); err != nil {
		return nil, nil, nil, err
	}
	if err := e.ledger.Transfer(provider, e.vault, pool.Token1, used1); err != nil {
		if refundErr := e.ledger.Transfer(e.vault, provider, pool.Token0, used0); refundErr != nil {
			return nil, nil, nil, fmt.Errorf("amm engine: refund after failed deposit: %v (original: %w)", refundErr, err)
		}
		return nil, nil, nil, err
	}

	pool.Reserve0 = new(big.Int).Add(pool.Reserve0, used0)
	pool.Reserve1 = new(big.Int).Add(pool.Reserve1, used1)
	pool.LPSupply = new(big.Int).Add(pool.LPSupply, minted)
	if locked != nil {
		pool.LPSupply.Add(pool.LPSupply, locked)
		lockBal, err := e.state.LPBalance(pool.ID, lockAddress)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := e.state.SetLPBalance(pool.ID, lockAddress, new(big.Int).Add(lockBal, locked)); err != nil {
			return nil, nil, nil, err
		}
	}
	providerBal, err := e.state.LPBalance(pool.ID, provider)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := e.state.SetLPBalance(pool.ID, provider, new(big.Int).Add(providerBal, minted)); err != nil {
		return nil, nil, nil, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, nil, nil, err
	}

	e.emit(events.LiquidityAdded{
		PoolID:   pool.ID,
		Provider: provider,
		Amount0:  new(big.Int).Set(used0),
		Amount1:  new(big.Int).Set(used1),
		Shares:   new(big.Int).Set(minted),
	})
	if aliased {
		return used1, used0, minted, nil
	}
	return used0, used1, minted, nil
}

// RemoveLiquidity burns LP shares and pays out the pro-rata reserves. Shares
// are burned and reserves decremented before the outbound transfers so a
// reentrant observer only ever sees reduced reserves.
func (e *Engine) RemoveLiquidity(provider [20]byte, tokenA, tokenB string, shares, minA, minB *big.Int) (*big.Int, *big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if err := e.lock.Acquire(); err != nil {
		return nil, nil, err
	}
	defer e.lock.Release()

	a, err := token.NormalizeSymbol(tokenA)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	b, err := token.NormalizeSymbol(tokenB)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	pool, ok := e.state.PoolGet(PoolID(a, b))
	if !ok {
		return nil, nil, ErrPoolNotFound
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	holderBal, err := e.state.LPBalance(pool.ID, provider)
	if err != nil {
		return nil, nil, err
	}
	if holderBal.Cmp(shares) < 0 {
		return nil, nil, ErrInsufficientShares
	}
	if pool.LPSupply.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidity
	}

	out0 := mulDiv(shares, pool.Reserve0, pool.LPSupply)
	out1 := mulDiv(shares, pool.Reserve1, pool.LPSupply)
	if out0.Sign() == 0 && out1.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidity
	}
	min0, min1 := minA, minB
	aliased := a != pool.Token0
	if aliased {
		min0, min1 = minB, minA
	}
	if min0 != nil && out0.Cmp(min0) < 0 {
		return nil, nil, ErrSlippageExceeded
	}
	if min1 != nil && out1.Cmp(min1) < 0 {
		return nil, nil, ErrSlippageExceeded
	}

	// Effects before interactions: burn and shrink reserves first.
	if err := e.state.SetLPBalance(pool.ID, provider, new(big.Int).Sub(holderBal, shares)); err != nil {
		return nil, nil, err
	}
	pool.LPSupply = new(big.Int).Sub(pool.LPSupply, shares)
	pool.Reserve0 = new(big.Int).Sub(pool.Reserve0, out0)
	pool.Reserve1 = new(big.Int).Sub(pool.Reserve1, out1)
	if err := e.state.PoolPut(pool); err != nil {
		return nil, nil, err
	}

	if out0.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, provider, pool.Token0, out0); err != nil {
			return nil, nil, err
		}
	}
	if out1.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, provider, pool.Token1, out1); err != nil {
			return nil, nil, err
		}
	}

	e.emit(events.LiquidityRemoved{
		PoolID:   pool.ID,
		Provider: provider,
		Amount0:  new(big.Int).Set(out0),
		Amount1:  new(big.Int).Set(out1),
		Shares:   new(big.Int).Set(shares),
	})
	if aliased {
		return out1, out0, nil
	}
	return out0, out1, nil
}

// Swap trades amountIn of tokenIn for tokenOut at the fee-adjusted
// constant-product price. Reserves and both transfers commit as a unit: a
// failed outbound leg restores the reserves and refunds the inbound leg.
func (e *Engine) Swap(trader [20]byte, tokenIn, tokenOut string, amountIn, minOut *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.lock.Acquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	in, err := token.NormalizeSymbol(tokenIn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	out, err := token.NormalizeSymbol(tokenOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if in == out {
		return nil, ErrIdenticalTokens
	}
	pool, ok := e.state.PoolGet(PoolID(in, out))
	if !ok {
		return nil, ErrPoolNotFound
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	reserveIn, reserveOut := pool.Reserve0, pool.Reserve1
	if in != pool.Token0 {
		reserveIn, reserveOut = pool.Reserve1, pool.Reserve0
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	quoted := amountOut(amountIn, reserveIn, reserveOut, e.feeBps)
	if quoted.Sign() <= 0 || quoted.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if minOut != nil && quoted.Cmp(minOut) < 0 {
		return nil, ErrSlippageExceeded
	}

	if err := e.ledger.Transfer(trader, e.vault, in, amountIn); err != nil {
		return nil, err
	}
	prev := pool.Clone()
	if in == pool.Token0 {
		pool.Reserve0 = new(big.Int).Add(pool.Reserve0, amountIn)
		pool.Reserve1 = new(big.Int).Sub(pool.Reserve1, quoted)
	} else {
		pool.Reserve1 = new(big.Int).Add(pool.Reserve1, amountIn)
		pool.Reserve0 = new(big.Int).Sub(pool.Reserve0, quoted)
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(e.vault, trader, out, quoted); err != nil {
		if restoreErr := e.state.PoolPut(prev); restoreErr != nil {
			return nil, fmt.Errorf("amm engine: restore reserves after failed swap: %v (original: %w)", restoreErr, err)
		}
		if refundErr := e.ledger.Transfer(e.vault, trader, in, amountIn); refundErr != nil {
			return nil, fmt.Errorf("amm engine: refund after failed swap: %v (original: %w)", refundErr, err)
		}
		return nil, err
	}

	e.emit(events.Swapped{
		PoolID:    pool.ID,
		Trader:    trader,
		TokenIn:   in,
		TokenOut:  out,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(quoted),
	})
	return quoted, nil
}

// GetAmountOut prices a hypothetical swap without touching state.
func (e *Engine) GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	return amountOut(amountIn, reserveIn, reserveOut, e.feeBps), nil
}

package farm

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"pesachain/core/events"
	nativecommon "pesachain/native/common"
	"pesachain/native/token"
)

var (
	errNilState  = errors.New("farm engine: state not configured")
	errNilLedger = errors.New("farm engine: ledger not configured")

	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("farm engine: amount must be positive")
	// ErrPoolNotFound is returned for an unknown farm pool identifier.
	ErrPoolNotFound = errors.New("farm engine: pool not found")
	// ErrInvalidToken is returned when the staked token is unregistered.
	ErrInvalidToken = errors.New("farm engine: invalid token")
	// ErrInsufficientDeposit is returned when a withdrawal exceeds the stake.
	ErrInsufficientDeposit = errors.New("farm engine: insufficient deposited balance")
	// ErrUnauthorized is returned when a non-admin registers a pool.
	ErrUnauthorized = errors.New("farm engine: unauthorized")
	// ErrZeroAllocPoint is returned when a pool is registered without weight.
	ErrZeroAllocPoint = errors.New("farm engine: allocation weight must be positive")
)

const moduleName = "farm"

// rewardScale is the fixed-point multiplier backing accRewardPerShare. 1e12
// keeps integer-division rounding loss negligible for realistic stake sizes.
var rewardScale = big.NewInt(1_000_000_000_000)

type engineState interface {
	FarmPoolCount() (uint64, error)
	FarmPoolGet(id uint64) (*Pool, bool, error)
	FarmPoolPut(pool *Pool) error
	FarmUserGet(id uint64, addr [20]byte) (*UserInfo, bool, error)
	FarmUserPut(id uint64, addr [20]byte, user *UserInfo) error
	TokenExists(symbol string) (bool, error)
}

type ledger interface {
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
	Mint(caller, to [20]byte, symbol string, amount *big.Int) error
}

// Engine implements multi-pool share-weighted yield farming. A global
// emission rate is split across pools by allocation weight; each pool tracks
// a monotone per-share accumulator and each participant a reward debt against
// it. Rewards are minted into the engine vault on pool update and paid out of
// it on settlement.
type Engine struct {
	state        engineState
	ledger       ledger
	emitter      events.Emitter
	nowFn        func() int64
	lock         nativecommon.ReentrancyLock
	pauses       nativecommon.PauseView
	admin        [20]byte
	rewardToken  string
	emissionRate *big.Int
	vault        [20]byte
}

// NewEngine creates a farm engine emitting rewardToken at emissionRate units
// per second, split across pools by allocation weight.
func NewEngine(rewardToken string, emissionRate *big.Int) *Engine {
	if emissionRate == nil {
		emissionRate = big.NewInt(0)
	}
	return &Engine{
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
		rewardToken:  rewardToken,
		emissionRate: new(big.Int).Set(emissionRate),
		vault:        nativecommon.ModuleAddress(moduleName),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ledger the engine settles through.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetAdmin configures the address allowed to register pools.
func (e *Engine) SetAdmin(admin [20]byte) { e.admin = admin }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Vault returns the module address holding staked funds and unpaid rewards.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
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

func (e *Engine) loadPool(id uint64) (*Pool, error) {
	pool, ok, err := e.state.FarmPoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	if pool.AccRewardPerShare == nil {
		pool.AccRewardPerShare = big.NewInt(0)
	}
	if pool.TotalStaked == nil {
		pool.TotalStaked = big.NewInt(0)
	}
	return pool, nil
}

func (e *Engine) loadUser(id uint64, addr [20]byte) (*UserInfo, error) {
	user, ok, err := e.state.FarmUserGet(id, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &UserInfo{Amount: big.NewInt(0), RewardDebt: big.NewInt(0)}, nil
	}
	if user.Amount == nil {
		user.Amount = big.NewInt(0)
	}
	if user.RewardDebt == nil {
		user.RewardDebt = big.NewInt(0)
	}
	return user, nil
}

func (e *Engine) totalAllocPoint() (uint64, error) {
	count, err := e.state.FarmPoolCount()
	if err != nil {
		return 0, err
	}
	var total uint64
	for id := uint64(0); id < count; id++ {
		pool, ok, err := e.state.FarmPoolGet(id)
		if err != nil {
			return 0, err
		}
		if ok {
			total += pool.AllocPoint
		}
	}
	return total, nil
}

// poolReward computes the emission owed to one pool over elapsed seconds.
func (e *Engine) poolReward(pool *Pool, elapsed int64, totalAlloc uint64) *big.Int {
	if elapsed <= 0 || totalAlloc == 0 || pool.AllocPoint == 0 || e.emissionRate.Sign() == 0 {
		return big.NewInt(0)
	}
	reward := new(big.Int).Mul(e.emissionRate, big.NewInt(elapsed))
	reward.Mul(reward, new(big.Int).SetUint64(pool.AllocPoint))
	reward.Quo(reward, new(big.Int).SetUint64(totalAlloc))
	return reward
}

// updatePool settles a pool's accumulator to this instant. Idempotent: a
// second call at the same timestamp is a no-op.
func (e *Engine) updatePool(pool *Pool) error {
	now := e.now()
	if now <= int64(pool.LastRewardTime) {
		return nil
	}
	if pool.TotalStaked.Sign() == 0 {
		pool.LastRewardTime = uint64(now)
		return e.state.FarmPoolPut(pool)
	}
	totalAlloc, err := e.totalAllocPoint()
	if err != nil {
		return err
	}
	reward := e.poolReward(pool, now-int64(pool.LastRewardTime), totalAlloc)
	if reward.Sign() > 0 {
		if err := e.ledger.Mint(e.vault, e.vault, e.rewardToken, reward); err != nil {
			return err
		}
		delta := new(big.Int).Mul(reward, rewardScale)
		delta.Quo(delta, pool.TotalStaked)
		pool.AccRewardPerShare = new(big.Int).Add(pool.AccRewardPerShare, delta)
	}
	pool.LastRewardTime = uint64(now)
	return e.state.FarmPoolPut(pool)
}

// UpdatePool settles the identified pool's accumulator to this instant. It
// mutates pool state and mints, so it takes the engine lock like every other
// mutating operation.
func (e *Engine) UpdatePool(id uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.lock.Acquire(); err != nil {
		return err
	}
	defer e.lock.Release()

	pool, err := e.loadPool(id)
	if err != nil {
		return err
	}
	return e.updatePool(pool)
}

// massUpdatePools settles every pool. Required before any weight change so
// past accrual is never recomputed under new weights.
func (e *Engine) massUpdatePools() error {
	count, err := e.state.FarmPoolCount()
	if err != nil {
		return err
	}
	for id := uint64(0); id < count; id++ {
		pool, err := e.loadPool(id)
		if err != nil {
			return err
		}
		if err := e.updatePool(pool); err != nil {
			return err
		}
	}
	return nil
}

// AddPool registers a new farm pool. Admin only; all existing pools are
// settled first so the weight change is not retroactive.
func (e *Engine) AddPool(caller [20]byte, allocPoint uint64, stakedToken string) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if err := e.lock.Acquire(); err != nil {
		return 0, err
	}
	defer e.lock.Release()

	if caller != e.admin {
		return 0, ErrUnauthorized
	}
	if allocPoint == 0 {
		return 0, ErrZeroAllocPoint
	}
	symbol, err := token.NormalizeSymbol(stakedToken)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	ok, err := e.state.TokenExists(symbol)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidToken, symbol)
	}
	if err := e.massUpdatePools(); err != nil {
		return 0, err
	}
	id, err := e.state.FarmPoolCount()
	if err != nil {
		return 0, err
	}
	pool := &Pool{
		ID:                id,
		StakedToken:       symbol,
		AllocPoint:        allocPoint,
		LastRewardTime:    uint64(e.now()),
		AccRewardPerShare: big.NewInt(0),
		TotalStaked:       big.NewInt(0),
	}
	if err := e.state.FarmPoolPut(pool); err != nil {
		return 0, err
	}
	e.emit(events.FarmPoolAdded{PoolID: id, Token: symbol, AllocPoint: allocPoint})
	return id, nil
}

func pendingOf(pool *Pool, user *UserInfo) *big.Int {
	pending := new(big.Int).Mul(user.Amount, pool.AccRewardPerShare)
	pending.Quo(pending, rewardScale)
	pending.Sub(pending, user.RewardDebt)
	if pending.Sign() < 0 {
		return big.NewInt(0)
	}
	return pending
}

func recomputeDebt(pool *Pool, user *UserInfo) {
	debt := new(big.Int).Mul(user.Amount, pool.AccRewardPerShare)
	user.RewardDebt = debt.Quo(debt, rewardScale)
}

// Deposit settles the pool, pays any pending reward, then pulls the amount
// into the vault and grows the position.
func (e *Engine) Deposit(user [20]byte, id uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.lock.Acquire(); err != nil {
		return err
	}
	defer e.lock.Release()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pool, err := e.loadPool(id)
	if err != nil {
		return err
	}
	if err := e.updatePool(pool); err != nil {
		return err
	}
	info, err := e.loadUser(id, user)
	if err != nil {
		return err
	}
	// Pull the deposit before settling so a failed transfer aborts cleanly
	// with no reward paid and no debt moved.
	if err := e.ledger.Transfer(user, e.vault, pool.StakedToken, amount); err != nil {
		return err
	}
	pending := pendingOf(pool, info)
	if pending.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, user, e.rewardToken, pending); err != nil {
			return err
		}
	}
	info.Amount = new(big.Int).Add(info.Amount, amount)
	recomputeDebt(pool, info)
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
	if err := e.state.FarmUserPut(id, user, info); err != nil {
		return err
	}
	if err := e.state.FarmPoolPut(pool); err != nil {
		return err
	}
	e.emit(events.FarmDeposited{PoolID: id, Account: user, Amount: new(big.Int).Set(amount), Reward: pending})
	return nil
}

// Withdraw settles the pool, pays any pending reward, shrinks the position
// and only then releases the staked tokens.
func (e *Engine) Withdraw(user [20]byte, id uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.lock.Acquire(); err != nil {
		return err
	}
	defer e.lock.Release()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pool, err := e.loadPool(id)
	if err != nil {
		return err
	}
	if err := e.updatePool(pool); err != nil {
		return err
	}
	info, err := e.loadUser(id, user)
	if err != nil {
		return err
	}
	if info.Amount.Cmp(amount) < 0 {
		return ErrInsufficientDeposit
	}
	pending := pendingOf(pool, info)
	if pending.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, user, e.rewardToken, pending); err != nil {
			return err
		}
	}
	// Effects before interactions: the position shrinks before funds leave
	// the vault.
	info.Amount = new(big.Int).Sub(info.Amount, amount)
	recomputeDebt(pool, info)
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, amount)
	if err := e.state.FarmUserPut(id, user, info); err != nil {
		return err
	}
	if err := e.state.FarmPoolPut(pool); err != nil {
		return err
	}
	if err := e.ledger.Transfer(e.vault, user, pool.StakedToken, amount); err != nil {
		return err
	}
	e.emit(events.FarmWithdrawn{PoolID: id, Account: user, Amount: new(big.Int).Set(amount), Reward: pending})
	return nil
}

// Harvest settles the pool and pays out the caller's pending reward.
func (e *Engine) Harvest(user [20]byte, id uint64) (*big.Int, error) {
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

	pool, err := e.loadPool(id)
	if err != nil {
		return nil, err
	}
	if err := e.updatePool(pool); err != nil {
		return nil, err
	}
	info, err := e.loadUser(id, user)
	if err != nil {
		return nil, err
	}
	pending := pendingOf(pool, info)
	if pending.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, user, e.rewardToken, pending); err != nil {
			return nil, err
		}
	}
	recomputeDebt(pool, info)
	if err := e.state.FarmUserPut(id, user, info); err != nil {
		return nil, err
	}
	e.emit(events.FarmHarvested{PoolID: id, Account: user, Reward: pending})
	return pending, nil
}

// PendingReward reports the reward owed to this instant without mutating
// state, projecting the accumulator forward virtually.
func (e *Engine) PendingReward(id uint64, user [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadPool(id)
	if err != nil {
		return nil, err
	}
	info, err := e.loadUser(id, user)
	if err != nil {
		return nil, err
	}
	acc := new(big.Int).Set(pool.AccRewardPerShare)
	now := e.now()
	if now > int64(pool.LastRewardTime) && pool.TotalStaked.Sign() > 0 {
		totalAlloc, err := e.totalAllocPoint()
		if err != nil {
			return nil, err
		}
		reward := e.poolReward(pool, now-int64(pool.LastRewardTime), totalAlloc)
		if reward.Sign() > 0 {
			delta := new(big.Int).Mul(reward, rewardScale)
			acc.Add(acc, delta.Quo(delta, pool.TotalStaked))
		}
	}
	pending := new(big.Int).Mul(info.Amount, acc)
	pending.Quo(pending, rewardScale)
	pending.Sub(pending, info.RewardDebt)
	if pending.Sign() < 0 {
		pending = big.NewInt(0)
	}
	return pending, nil
}

// PoolInfo returns a copy of the farm pool record.
func (e *Engine) PoolInfo(id uint64) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadPool(id)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// PoolCount returns the number of registered pools.
func (e *Engine) PoolCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.FarmPoolCount()
}

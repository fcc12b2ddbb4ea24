package stake

import (
	"errors"
	"math/big"
	"time"

	"pesachain/core/events"
	nativecommon "pesachain/native/common"
)

var (
	errNilState  = errors.New("stake engine: state not configured")
	errNilLedger = errors.New("stake engine: ledger not configured")

	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("stake engine: amount must be positive")
	// ErrInsufficientStake is returned when an unstake exceeds the position.
	ErrInsufficientStake = errors.New("stake engine: insufficient staked balance")
	// ErrInsufficientBalance is returned when a stake exceeds the caller's
	// token balance.
	ErrInsufficientBalance = errors.New("stake engine: insufficient balance")
	// ErrUnauthorized is returned when a non-admin adjusts the rate.
	ErrUnauthorized = errors.New("stake engine: unauthorized")
	// ErrRateTooHigh is returned when the requested rate exceeds the ceiling.
	ErrRateTooHigh = errors.New("stake engine: rate exceeds ceiling")
)

const (
	moduleName     = "stake"
	secondsPerYear = 31_536_000
)

var basisPoints = big.NewInt(10_000)

type engineState interface {
	StakeGet(addr [20]byte) (*Position, bool, error)
	StakePut(addr [20]byte, pos *Position) error
	StakerIndexAppend(addr [20]byte) error
	StakersList() ([][20]byte, error)
}

type ledger interface {
	BalanceOf(addr [20]byte, symbol string) (*big.Int, error)
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
	Mint(caller, to [20]byte, symbol string, amount *big.Int) error
}

// Engine implements single-asset staking with continuous linear APY accrual.
// Staked funds sit in the engine's module vault; rewards are minted on
// settlement, and every balance change settles first so accrual is never
// lost.
type Engine struct {
	state      engineState
	ledger     ledger
	emitter    events.Emitter
	nowFn      func() int64
	lock       nativecommon.ReentrancyLock
	pauses     nativecommon.PauseView
	admin      [20]byte
	token      string
	rateBps    uint64
	maxRateBps uint64
	vault      [20]byte
}

// NewEngine creates a staking engine for the given token with the supplied
// initial annual rate and the ceiling future rate changes must respect.
func NewEngine(token string, rateBps, maxRateBps uint64) *Engine {
	return &Engine{
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
		token:      token,
		rateBps:    rateBps,
		maxRateBps: maxRateBps,
		vault:      nativecommon.ModuleAddress(moduleName),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ledger the engine settles through.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetAdmin configures the address allowed to adjust the annual rate.
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

// Vault returns the module address holding all staked funds.
func (e *Engine) Vault() [20]byte { return e.vault }

// RateBps returns the current annual accrual rate.
func (e *Engine) RateBps() uint64 { return e.rateBps }

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

func (e *Engine) position(addr [20]byte) (*Position, bool, error) {
	pos, ok, err := e.state.StakeGet(addr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &Position{Amount: big.NewInt(0)}, false, nil
	}
	if pos.Amount == nil {
		pos.Amount = big.NewInt(0)
	}
	return pos, true, nil
}

func accrued(amount *big.Int, rateBps uint64, elapsed int64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || rateBps == 0 || elapsed <= 0 {
		return big.NewInt(0)
	}
	reward := new(big.Int).Mul(amount, new(big.Int).SetUint64(rateBps))
	reward.Mul(reward, big.NewInt(elapsed))
	reward.Quo(reward, new(big.Int).Mul(basisPoints, big.NewInt(secondsPerYear)))
	return reward
}

// settle mints whatever has accrued to this instant and advances the clock.
// A zero-amount position only resets the clock so a fresh stake does not
// inherit stale elapsed time.
func (e *Engine) settle(addr [20]byte, pos *Position) (*big.Int, error) {
	now := e.now()
	if pos.Amount.Sign() == 0 {
		pos.LastUpdateTime = uint64(now)
		return big.NewInt(0), nil
	}
	elapsed := now - int64(pos.LastUpdateTime)
	pending := accrued(pos.Amount, e.rateBps, elapsed)
	if pending.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err := e.ledger.Mint(e.vault, addr, e.token, pending); err != nil {
		return nil, err
	}
	pos.LastUpdateTime = uint64(now)
	return pending, nil
}

// Stake settles pending rewards, pulls the amount into the module vault and
// grows the position.
func (e *Engine) Stake(staker [20]byte, amount *big.Int) error {
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
	// Reject an underfunded stake before settlement so no reward is minted
	// and no claim event fires for an operation that cannot complete.
	balance, err := e.ledger.BalanceOf(staker, e.token)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	pos, known, err := e.position(staker)
	if err != nil {
		return err
	}
	if !known {
		if err := e.state.StakerIndexAppend(staker); err != nil {
			return err
		}
	}
	reward, err := e.settle(staker, pos)
	if err != nil {
		return err
	}
	if reward.Sign() > 0 {
		e.emit(events.StakeRewardsClaimed{Account: staker, Reward: reward})
	}
	// Persist the advanced settlement clock before pulling funds so a failed
	// transfer cannot leave minted rewards claimable twice.
	if err := e.state.StakePut(staker, pos); err != nil {
		return err
	}
	if err := e.ledger.Transfer(staker, e.vault, e.token, amount); err != nil {
		return err
	}
	pos.Amount = new(big.Int).Add(pos.Amount, amount)
	if err := e.state.StakePut(staker, pos); err != nil {
		return err
	}
	e.emit(events.Staked{Account: staker, Amount: new(big.Int).Set(amount), NewStake: new(big.Int).Set(pos.Amount)})
	return nil
}

// Unstake settles pending rewards and releases the amount from the vault.
func (e *Engine) Unstake(staker [20]byte, amount *big.Int) error {
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
	pos, _, err := e.position(staker)
	if err != nil {
		return err
	}
	if pos.Amount.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	reward, err := e.settle(staker, pos)
	if err != nil {
		return err
	}
	if reward.Sign() > 0 {
		e.emit(events.StakeRewardsClaimed{Account: staker, Reward: reward})
	}
	// Shrink the position before moving funds out of the vault.
	pos.Amount = new(big.Int).Sub(pos.Amount, amount)
	if err := e.state.StakePut(staker, pos); err != nil {
		return err
	}
	if err := e.ledger.Transfer(e.vault, staker, e.token, amount); err != nil {
		return err
	}
	e.emit(events.Unstaked{Account: staker, Amount: new(big.Int).Set(amount), NewStake: new(big.Int).Set(pos.Amount)})
	return nil
}

// ClaimRewards settles and mints whatever has accrued to this instant.
func (e *Engine) ClaimRewards(staker [20]byte) (*big.Int, error) {
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

	pos, _, err := e.position(staker)
	if err != nil {
		return nil, err
	}
	reward, err := e.settle(staker, pos)
	if err != nil {
		return nil, err
	}
	if err := e.state.StakePut(staker, pos); err != nil {
		return nil, err
	}
	if reward.Sign() > 0 {
		e.emit(events.StakeRewardsClaimed{Account: staker, Reward: reward})
	}
	return reward, nil
}

// PendingRewards reports the accrual owed to this instant without mutating
// state.
func (e *Engine) PendingRewards(staker [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos, _, err := e.position(staker)
	if err != nil {
		return nil, err
	}
	if pos.Amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return accrued(pos.Amount, e.rateBps, e.now()-int64(pos.LastUpdateTime)), nil
}

// StakedAmount reports the current position size.
func (e *Engine) StakedAmount(staker [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos, _, err := e.position(staker)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(pos.Amount), nil
}

// settleAll mints accrual at the current rate for every known position and
// advances each settlement clock, even where the accrual rounds to zero, so
// a subsequent rate change can never reprice an elapsed window.
func (e *Engine) settleAll() error {
	stakers, err := e.state.StakersList()
	if err != nil {
		return err
	}
	now := e.now()
	for _, staker := range stakers {
		pos, known, err := e.position(staker)
		if err != nil {
			return err
		}
		if !known {
			continue
		}
		pending := accrued(pos.Amount, e.rateBps, now-int64(pos.LastUpdateTime))
		if pending.Sign() > 0 {
			if err := e.ledger.Mint(e.vault, staker, e.token, pending); err != nil {
				return err
			}
		}
		pos.LastUpdateTime = uint64(now)
		if err := e.state.StakePut(staker, pos); err != nil {
			return err
		}
		if pending.Sign() > 0 {
			e.emit(events.StakeRewardsClaimed{Account: staker, Reward: pending})
		}
	}
	return nil
}

// SetAnnualRate adjusts the accrual rate. Admin only; the rate is bounded by
// the configured ceiling. Every position is settled at the outgoing rate
// first so already-elapsed time is paid at the rate it accrued under.
func (e *Engine) SetAnnualRate(caller [20]byte, rateBps uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrUnauthorized
	}
	if rateBps > e.maxRateBps {
		return ErrRateTooHigh
	}
	if err := e.lock.Acquire(); err != nil {
		return err
	}
	defer e.lock.Release()

	if rateBps != e.rateBps {
		if err := e.settleAll(); err != nil {
			return err
		}
	}
	old := e.rateBps
	e.rateBps = rateBps
	e.emit(events.StakeRateUpdated{OldRateBps: old, NewRateBps: rateBps})
	return nil
}

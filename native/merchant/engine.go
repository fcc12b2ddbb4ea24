package merchant

import (
	"errors"
	"math/big"
	"time"

	"pesachain/core/events"
	nativecommon "pesachain/native/common"
)

var (
	errNilState  = errors.New("merchant engine: state not configured")
	errNilLedger = errors.New("merchant engine: ledger not configured")

	// ErrInvalidAmount is returned when the payment amount is zero or negative.
	ErrInvalidAmount = errors.New("merchant engine: amount must be positive")
	// ErrNotRegistered is returned when paying an address outside the program.
	ErrNotRegistered = errors.New("merchant engine: merchant not registered")
	// ErrAlreadyRegistered is returned when a merchant registers twice.
	ErrAlreadyRegistered = errors.New("merchant engine: merchant already registered")
	// ErrUnauthorized is returned when a non-admin registers a merchant.
	ErrUnauthorized = errors.New("merchant engine: unauthorized")
	// ErrRateTooHigh is returned when the cashback rate exceeds the ceiling.
	ErrRateTooHigh = errors.New("merchant engine: cashback rate exceeds ceiling")
	// ErrSelfPayment is returned when a merchant pays itself.
	ErrSelfPayment = errors.New("merchant engine: self payment")
)

const (
	moduleName = "merchant"

	basisPoints = 10_000
)

type engineState interface {
	MerchantGet(addr [20]byte) (*Record, bool, error)
	MerchantPut(record *Record) error
}

type ledger interface {
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
	Mint(caller, to [20]byte, symbol string, amount *big.Int) error
}

// Engine runs the merchant cashback program: registered merchants receive
// payments through Pay, and the buyer is minted a flat basis-point cashback
// in the reward token.
type Engine struct {
	state       engineState
	ledger      ledger
	emitter     events.Emitter
	nowFn       func() int64
	lock        nativecommon.ReentrancyLock
	pauses      nativecommon.PauseView
	admin       [20]byte
	rewardToken string
	maxCashback uint64
	vault       [20]byte
}

// NewEngine creates a merchant engine minting cashback in rewardToken, with
// per-merchant rates capped at maxCashbackBps.
func NewEngine(rewardToken string, maxCashbackBps uint64) *Engine {
	return &Engine{
		emitter:     events.NoopEmitter{},
		nowFn:       func() int64 { return time.Now().Unix() },
		rewardToken: rewardToken,
		maxCashback: maxCashbackBps,
		vault:       nativecommon.ModuleAddress(moduleName),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// Vault returns the module address used as the cashback mint authority.
func (e *Engine) Vault() [20]byte { return e.vault }

// SetLedger configures the token ledger the engine settles through.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetAdmin configures the address allowed to register merchants.
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

// Register enrolls a merchant with a flat cashback rate. Admin only.
func (e *Engine) Register(caller, merchantAddr [20]byte, cashbackBps uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrUnauthorized
	}
	if cashbackBps > e.maxCashback {
		return ErrRateTooHigh
	}
	_, ok, err := e.state.MerchantGet(merchantAddr)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyRegistered
	}
	record := &Record{
		Address:      merchantAddr,
		CashbackBps:  cashbackBps,
		RegisteredAt: uint64(e.nowFn()),
	}
	if err := e.state.MerchantPut(record); err != nil {
		return err
	}
	e.emit(events.MerchantRegistered{Merchant: merchantAddr, CashbackBps: cashbackBps})
	return nil
}

// Pay transfers the purchase amount to a registered merchant and mints the
// buyer's cashback afterwards. Cashback rounds down and may be zero.
func (e *Engine) Pay(buyer, merchantAddr [20]byte, symbol string, amount *big.Int) (*big.Int, error) {
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

	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if buyer == merchantAddr {
		return nil, ErrSelfPayment
	}
	record, ok, err := e.state.MerchantGet(merchantAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRegistered
	}
	if err := e.ledger.Transfer(buyer, merchantAddr, symbol, amount); err != nil {
		return nil, err
	}
	cashback := new(big.Int).Mul(amount, new(big.Int).SetUint64(record.CashbackBps))
	cashback.Quo(cashback, big.NewInt(basisPoints))
	if cashback.Sign() > 0 {
		if err := e.ledger.Mint(e.vault, buyer, e.rewardToken, cashback); err != nil {
			return nil, err
		}
	}
	e.emit(events.MerchantPaid{
		Buyer:    buyer,
		Merchant: merchantAddr,
		Amount:   new(big.Int).Set(amount),
		Cashback: cashback,
	})
	return cashback, nil
}

// Info returns a copy of the merchant record.
func (e *Engine) Info(addr [20]byte) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.MerchantGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRegistered
	}
	return record.Clone(), nil
}

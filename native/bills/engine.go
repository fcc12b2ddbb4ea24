package bills

import (
	"errors"
	"math/big"
	"time"

	"pesachain/core/events"
	nativecommon "pesachain/native/common"
)

var (
	errNilState  = errors.New("bills engine: state not configured")
	errNilLedger = errors.New("bills engine: ledger not configured")

	// ErrInvalidAmount is returned when the payment amount is zero or negative.
	ErrInvalidAmount = errors.New("bills engine: amount must be positive")
	// ErrUnknownBillType is returned when paying a bill type outside the whitelist.
	ErrUnknownBillType = errors.New("bills engine: unknown bill type")
	// ErrBillTypeExists is returned when the admin re-adds a registered type.
	ErrBillTypeExists = errors.New("bills engine: bill type already registered")
	// ErrUnauthorized is returned when a non-admin edits the whitelist.
	ErrUnauthorized = errors.New("bills engine: unauthorized")
)

const moduleName = "bills"

type engineState interface {
	BillTypeGet(id string) (*BillType, bool, error)
	BillTypePut(bt *BillType) error
	BillTypeDelete(id string) error
	BillTypeList() ([]string, error)
}

type ledger interface {
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
}

// Engine forwards bill payments to whitelisted biller addresses. The admin
// maintains the whitelist; anyone can pay a listed bill type.
type Engine struct {
	state   engineState
	ledger  ledger
	emitter events.Emitter
	nowFn   func() int64
	lock    nativecommon.ReentrancyLock
	pauses  nativecommon.PauseView
	admin   [20]byte
}

// NewEngine creates a bill payment engine.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ledger the engine settles through.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetAdmin configures the address allowed to edit the whitelist.
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

// AddBillType whitelists a bill type and the payee its payments forward to.
// Admin only.
func (e *Engine) AddBillType(caller [20]byte, id string, payee [20]byte) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return "", err
	}
	if caller != e.admin {
		return "", ErrUnauthorized
	}
	normalized, err := NormalizeBillType(id)
	if err != nil {
		return "", err
	}
	_, ok, err := e.state.BillTypeGet(normalized)
	if err != nil {
		return "", err
	}
	if ok {
		return "", ErrBillTypeExists
	}
	record := &BillType{ID: normalized, Payee: payee, CreatedAt: uint64(e.nowFn())}
	if err := e.state.BillTypePut(record); err != nil {
		return "", err
	}
	e.emit(events.BillTypeAdded{BillType: normalized, Payee: payee})
	return normalized, nil
}

// RemoveBillType delists a bill type. Admin only.
func (e *Engine) RemoveBillType(caller [20]byte, id string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrUnauthorized
	}
	normalized, err := NormalizeBillType(id)
	if err != nil {
		return err
	}
	_, ok, err := e.state.BillTypeGet(normalized)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBillType
	}
	if err := e.state.BillTypeDelete(normalized); err != nil {
		return err
	}
	e.emit(events.BillTypeRemoved{BillType: normalized})
	return nil
}

// PayBill forwards the amount from the payer to the registered payee.
func (e *Engine) PayBill(payer [20]byte, id, symbol string, amount *big.Int) error {
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
	normalized, err := NormalizeBillType(id)
	if err != nil {
		return err
	}
	record, ok, err := e.state.BillTypeGet(normalized)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBillType
	}
	if err := e.ledger.Transfer(payer, record.Payee, symbol, amount); err != nil {
		return err
	}
	e.emit(events.BillPaid{Payer: payer, BillType: normalized, Payee: record.Payee, Amount: new(big.Int).Set(amount)})
	return nil
}

// BillTypes returns the sorted identifiers currently whitelisted.
func (e *Engine) BillTypes() ([]string, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.BillTypeList()
}

// Payee resolves the address a bill type forwards to.
func (e *Engine) Payee(id string) ([20]byte, error) {
	var zero [20]byte
	if e == nil || e.state == nil {
		return zero, errNilState
	}
	normalized, err := NormalizeBillType(id)
	if err != nil {
		return zero, err
	}
	record, ok, err := e.state.BillTypeGet(normalized)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrUnknownBillType
	}
	return record.Payee, nil
}

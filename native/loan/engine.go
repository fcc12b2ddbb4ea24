package loan

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
	errNilState  = errors.New("loan engine: state not configured")
	errNilLedger = errors.New("loan engine: ledger not configured")

	// ErrInvalidAmount is returned when the principal is zero or negative.
	ErrInvalidAmount = errors.New("loan engine: principal must be positive")
	// ErrInvalidToken is returned when the loan token is unregistered.
	ErrInvalidToken = errors.New("loan engine: invalid token")
	// ErrNotFound is returned for an unknown loan identifier.
	ErrNotFound = errors.New("loan engine: loan not found")
	// ErrUnauthorized is returned when the caller may not act on the loan.
	ErrUnauthorized = errors.New("loan engine: unauthorized")
	// ErrRateTooHigh is returned when the requested rate exceeds the ceiling.
	ErrRateTooHigh = errors.New("loan engine: interest rate exceeds ceiling")
	// ErrDurationOutOfRange is returned for durations outside configured bounds.
	ErrDurationOutOfRange = errors.New("loan engine: duration out of range")
	// ErrExpired is returned when funding is attempted after the request window.
	ErrExpired = errors.New("loan engine: request expired")
	// ErrAlreadyFunded is returned when funding a loan past Requested.
	ErrAlreadyFunded = errors.New("loan engine: loan already funded")
	// ErrNotFunded is returned when repaying or defaulting a loan that never funded.
	ErrNotFunded = errors.New("loan engine: loan not funded")
	// ErrAlreadyRepaid is returned on a transition out of the Repaid state.
	ErrAlreadyRepaid = errors.New("loan engine: loan already repaid")
	// ErrAlreadyDefaulted is returned on a transition out of the Defaulted state.
	ErrAlreadyDefaulted = errors.New("loan engine: loan already defaulted")
	// ErrNotDue is returned when default is declared before the due time.
	ErrNotDue = errors.New("loan engine: loan not yet due")
)

const moduleName = "loan"

type engineState interface {
	LoanNextID() (uint64, error)
	LoanGet(id uint64) (*Loan, bool, error)
	LoanPut(l *Loan) error
	LoanIndexAppend(addr [20]byte, id uint64) error
	LoansOf(addr [20]byte) ([]uint64, error)
	TokenExists(symbol string) (bool, error)
}

type ledger interface {
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
}

// Limits bounds the terms a borrower may request. A zero RequestTTL disables
// the funding deadline.
type Limits struct {
	MinDuration uint64
	MaxDuration uint64
	MaxRateBps  uint64
	RequestTTL  uint64
}

// Engine drives the peer-to-peer loan state machine
// Requested -> Funded -> {Repaid | Defaulted}. Principal moves lender to
// borrower at funding and principal plus simple basis-point interest moves
// back at repayment; no collateral is held.
type Engine struct {
	state   engineState
	ledger  ledger
	emitter events.Emitter
	nowFn   func() int64
	lock    nativecommon.ReentrancyLock
	pauses  nativecommon.PauseView
	limits  Limits
}

// NewEngine creates a loan engine enforcing the supplied term limits.
func NewEngine(limits Limits) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		limits:  limits,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ledger the engine settles through.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

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

func (e *Engine) load(id uint64) (*Loan, error) {
	l, ok, err := e.state.LoanGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if l.Principal == nil {
		l.Principal = big.NewInt(0)
	}
	return l, nil
}

// RequestLoan opens a loan request in the Requested state. The due time is
// not fixed here; it is derived from the funding timestamp.
func (e *Engine) RequestLoan(borrower [20]byte, tokenSymbol string, principal *big.Int, rateBps, duration uint64) (uint64, error) {
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

	if principal == nil || principal.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	symbol, err := token.NormalizeSymbol(tokenSymbol)
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
	if rateBps > e.limits.MaxRateBps {
		return 0, ErrRateTooHigh
	}
	if duration < e.limits.MinDuration || duration > e.limits.MaxDuration {
		return 0, ErrDurationOutOfRange
	}
	id, err := e.state.LoanNextID()
	if err != nil {
		return 0, err
	}
	record := &Loan{
		ID:        id,
		Borrower:  borrower,
		Token:     symbol,
		Principal: new(big.Int).Set(principal),
		RateBps:   rateBps,
		Duration:  duration,
		CreatedAt: uint64(e.now()),
		Status:    StatusRequested,
	}
	if err := e.state.LoanPut(record); err != nil {
		return 0, err
	}
	if err := e.state.LoanIndexAppend(borrower, id); err != nil {
		return 0, err
	}
	e.emit(events.LoanRequested{
		LoanID:    id,
		Borrower:  borrower,
		Principal: new(big.Int).Set(principal),
		RateBps:   rateBps,
		Duration:  int64(duration),
	})
	return id, nil
}

// statusErr maps a non-Requested or non-Funded status to its transition error.
func statusErr(status Status) error {
	switch status {
	case StatusFunded:
		return ErrAlreadyFunded
	case StatusRepaid:
		return ErrAlreadyRepaid
	case StatusDefaulted:
		return ErrAlreadyDefaulted
	default:
		return ErrNotFunded
	}
}

// FundLoan moves principal from the lender to the borrower and pins the
// lender identity and due time on the record.
func (e *Engine) FundLoan(lender [20]byte, id uint64) error {
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

	record, err := e.load(id)
	if err != nil {
		return err
	}
	if record.Status != StatusRequested {
		return statusErr(record.Status)
	}
	if lender == record.Borrower {
		return ErrUnauthorized
	}
	now := e.now()
	if e.limits.RequestTTL > 0 && uint64(now) > record.CreatedAt+e.limits.RequestTTL {
		return ErrExpired
	}
	if err := e.ledger.Transfer(lender, record.Borrower, record.Token, record.Principal); err != nil {
		return err
	}
	record.Lender = lender
	record.DueTime = uint64(now) + record.Duration
	record.Status = StatusFunded
	if err := e.state.LoanPut(record); err != nil {
		return err
	}
	if err := e.state.LoanIndexAppend(lender, id); err != nil {
		return err
	}
	e.emit(events.LoanFunded{
		LoanID:   id,
		Borrower: record.Borrower,
		Lender:   lender,
		DueTime:  int64(record.DueTime),
	})
	return nil
}

// RepaymentAmount computes principal plus simple basis-point interest.
func RepaymentAmount(principal *big.Int, rateBps uint64) *big.Int {
	if principal == nil {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBps))
	interest.Quo(interest, big.NewInt(10_000))
	return interest.Add(interest, principal)
}

// RepayLoan settles a funded loan: the borrower returns principal plus
// interest to the lender and the loan closes Repaid.
func (e *Engine) RepayLoan(caller [20]byte, id uint64) (*big.Int, error) {
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

	record, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusFunded {
		return nil, statusErr(record.Status)
	}
	if caller != record.Borrower {
		return nil, ErrUnauthorized
	}
	total := RepaymentAmount(record.Principal, record.RateBps)
	if err := e.ledger.Transfer(record.Borrower, record.Lender, record.Token, total); err != nil {
		return nil, err
	}
	record.Status = StatusRepaid
	if err := e.state.LoanPut(record); err != nil {
		return nil, err
	}
	e.emit(events.LoanRepaid{LoanID: id, Amount: total})
	return total, nil
}

// MarkDefault closes an overdue funded loan as Defaulted. Lender only, and
// only strictly after the due time.
func (e *Engine) MarkDefault(caller [20]byte, id uint64) error {
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

	record, err := e.load(id)
	if err != nil {
		return err
	}
	if record.Status != StatusFunded {
		return statusErr(record.Status)
	}
	if caller != record.Lender {
		return ErrUnauthorized
	}
	if uint64(e.now()) <= record.DueTime {
		return ErrNotDue
	}
	record.Status = StatusDefaulted
	if err := e.state.LoanPut(record); err != nil {
		return err
	}
	e.emit(events.LoanDefaulted{LoanID: id, Lender: record.Lender})
	return nil
}

// Get returns a copy of the loan record.
func (e *Engine) Get(id uint64) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, err := e.load(id)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// LoansOf returns the ordered loan ids the address participates in, as
// borrower or lender.
func (e *Engine) LoansOf(addr [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.LoansOf(addr)
}

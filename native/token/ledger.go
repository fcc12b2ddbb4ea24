package token

import (
	"errors"
	"fmt"
	"math/big"

	"pesachain/core/events"
	"pesachain/core/types"
)

var (
	errNilState = errors.New("token ledger: state not configured")

	// ErrInvalidAmount is returned when an operation receives a zero or
	// negative amount.
	ErrInvalidAmount = errors.New("token ledger: amount must be positive")
	// ErrUnknownToken is returned when the symbol has not been registered.
	ErrUnknownToken = errors.New("token ledger: unknown token")
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientBalance = errors.New("token ledger: insufficient balance")
	// ErrInsufficientAllowance is returned when a delegated transfer exceeds
	// the approved allowance.
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
	// ErrUnauthorized is returned when the caller lacks the minter role.
	ErrUnauthorized = errors.New("token ledger: unauthorized")
)

type ledgerState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	Token(symbol string) (*Metadata, bool, error)
	PutToken(meta *Metadata) error
	Allowance(symbol string, owner, spender [20]byte) (*big.Int, error)
	SetAllowance(symbol string, owner, spender [20]byte, amount *big.Int) error
	HasRole(role string, addr [20]byte) (bool, error)
}

// Ledger is the fungible-token balance store every engine settles through.
// Balances only ever move via Transfer/TransferFrom, and supply only grows
// via Mint under the minter role.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger creates a token ledger with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event emitter used by the ledger. Passing nil
// resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) emit(evt events.Event) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(evt)
}

func (l *Ledger) resolveToken(symbol string) (string, error) {
	if l == nil || l.state == nil {
		return "", errNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return "", err
	}
	if _, ok, err := l.state.Token(normalized); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, normalized)
	}
	return normalized, nil
}

// BalanceOf returns the balance held by addr for the given token.
func (l *Ledger) BalanceOf(addr [20]byte, symbol string) (*big.Int, error) {
	normalized, err := l.resolveToken(symbol)
	if err != nil {
		return nil, err
	}
	account, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Balance(normalized), nil
}

// Transfer moves amount from one account to another. Zero-value transfers are
// a no-op; the balances of both parties are re-persisted atomically relative
// to the single-writer execution model.
func (l *Ledger) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	normalized, err := l.resolveToken(symbol)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance(normalized).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.SetBalance(normalized, new(big.Int).Sub(fromAcc.Balance(normalized), amount))
	toAcc.SetBalance(normalized, new(big.Int).Add(toAcc.Balance(normalized), amount))
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := l.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	l.emit(events.TokenTransferred{Token: normalized, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Approve grants spender the right to move up to amount of the owner's
// balance via TransferFrom. Approving zero clears the allowance.
func (l *Ledger) Approve(owner, spender [20]byte, symbol string, amount *big.Int) error {
	normalized, err := l.resolveToken(symbol)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := l.state.SetAllowance(normalized, owner, spender, amount); err != nil {
		return err
	}
	l.emit(events.TokenApproved{Token: normalized, Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

// Allowance returns the remaining allowance granted by owner to spender.
func (l *Ledger) Allowance(owner, spender [20]byte, symbol string) (*big.Int, error) {
	normalized, err := l.resolveToken(symbol)
	if err != nil {
		return nil, err
	}
	return l.state.Allowance(normalized, owner, spender)
}

// TransferFrom moves amount from the owner's balance on behalf of spender,
// consuming allowance. The allowance check runs before any balance movement.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, symbol string, amount *big.Int) error {
	normalized, err := l.resolveToken(symbol)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if spender != from {
		allowance, err := l.state.Allowance(normalized, from, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		if err := l.state.SetAllowance(normalized, from, spender, new(big.Int).Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return l.Transfer(from, to, normalized, amount)
}

// Mint creates new supply for the recipient. The caller must hold the minter
// role; total supply is tracked on the token metadata record.
func (l *Ledger) Mint(caller, to [20]byte, symbol string, amount *big.Int) error {
	normalized, err := l.resolveToken(symbol)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	authorized, err := l.state.HasRole(MinterRole, caller)
	if err != nil {
		return err
	}
	if !authorized {
		return ErrUnauthorized
	}
	meta, ok, err := l.state.Token(normalized)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, normalized)
	}
	account, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	account.SetBalance(normalized, new(big.Int).Add(account.Balance(normalized), amount))
	if err := l.state.PutAccount(to, account); err != nil {
		return err
	}
	supply := meta.TotalSupply
	if supply == nil {
		supply = big.NewInt(0)
	}
	meta.TotalSupply = new(big.Int).Add(supply, amount)
	if err := l.state.PutToken(meta); err != nil {
		return err
	}
	l.emit(events.TokenMinted{Token: normalized, Minter: caller, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

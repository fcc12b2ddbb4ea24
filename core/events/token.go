package events

import (
	"math/big"

	"pesachain/core/types"
)

const (
	// TypeTokenTransferred is emitted after a successful balance movement.
	TypeTokenTransferred = "token.transferred"
	// TypeTokenMinted is emitted when new supply is created for an account.
	TypeTokenMinted = "token.minted"
	// TypeTokenApproved is emitted when an owner grants a spending allowance.
	TypeTokenApproved = "token.approved"
)

// TokenTransferred captures a completed transfer between two accounts.
type TokenTransferred struct {
	Token  string
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (TokenTransferred) EventType() string { return TypeTokenTransferred }

// Event converts the structured payload into a broadcastable event.
func (e TokenTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenTransferred,
		Attributes: map[string]string{
			"token":  normalizeAsset(e.Token),
			"from":   hexAddr(e.From),
			"to":     hexAddr(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

// TokenMinted captures supply created by a privileged minter.
type TokenMinted struct {
	Token  string
	Minter [20]byte
	To     [20]byte
	Amount *big.Int
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

func (e TokenMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMinted,
		Attributes: map[string]string{
			"token":  normalizeAsset(e.Token),
			"minter": hexAddr(e.Minter),
			"to":     hexAddr(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

// TokenApproved captures an allowance granted by an owner to a spender.
type TokenApproved struct {
	Token   string
	Owner   [20]byte
	Spender [20]byte
	Amount  *big.Int
}

func (TokenApproved) EventType() string { return TypeTokenApproved }

func (e TokenApproved) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenApproved,
		Attributes: map[string]string{
			"token":   normalizeAsset(e.Token),
			"owner":   hexAddr(e.Owner),
			"spender": hexAddr(e.Spender),
			"amount":  formatAmount(e.Amount),
		},
	}
}

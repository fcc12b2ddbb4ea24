package state

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"pesachain/core/types"
	"pesachain/native/token"
	"pesachain/storage"
)

// Manager provides keyed access to every record family the engines persist.
// Records are RLP-encoded and stored under keccak-hashed prefixed keys so the
// backing Database sees uniformly distributed keys regardless of backend.
type Manager struct {
	db     storage.Database
	events []types.Event
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) load(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) store(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// --- Accounts ---

type balanceEntry struct {
	Token  string
	Amount *big.Int
}

type accountStored struct {
	Nonce    uint64
	Balances []balanceEntry
	Username string
}

// GetAccount reconstructs the account stored under the provided address. A
// missing record yields a fresh zero-balance account.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	stored := new(accountStored)
	ok, err := m.load(prefixedKey(accountPrefix, addr[:]), stored)
	if err != nil {
		return nil, err
	}
	account := types.NewAccount()
	if !ok {
		return account, nil
	}
	account.Nonce = stored.Nonce
	account.Username = stored.Username
	for _, entry := range stored.Balances {
		account.SetBalance(entry.Token, entry.Amount)
	}
	return account, nil
}

// PutAccount persists the account under the provided address. Balances are
// sorted by token symbol so encoding stays deterministic.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	stored := &accountStored{
		Nonce:    account.Nonce,
		Username: account.Username,
	}
	symbols := make([]string, 0, len(account.Balances))
	for symbol := range account.Balances {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		bal := account.Balances[symbol]
		if bal == nil || bal.Sign() == 0 {
			continue
		}
		stored.Balances = append(stored.Balances, balanceEntry{Token: symbol, Amount: new(big.Int).Set(bal)})
	}
	return m.store(prefixedKey(accountPrefix, addr[:]), stored)
}

// --- Token registry, roles and allowances ---

type tokenStored struct {
	Symbol      string
	Name        string
	Decimals    uint8
	TotalSupply *big.Int
}

// RegisterToken stores the metadata for a token and records it in the index.
func (m *Manager) RegisterToken(meta *token.Metadata) error {
	if meta == nil {
		return fmt.Errorf("state: nil token metadata")
	}
	symbol, err := token.NormalizeSymbol(meta.Symbol)
	if err != nil {
		return err
	}
	list, err := m.TokenList()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == symbol {
			return fmt.Errorf("state: token %s already registered", symbol)
		}
	}
	list = append(list, symbol)
	sort.Strings(list)
	if err := m.store(tokenListKey, list); err != nil {
		return err
	}
	supply := meta.TotalSupply
	if supply == nil {
		supply = big.NewInt(0)
	}
	stored := &tokenStored{Symbol: symbol, Name: meta.Name, Decimals: meta.Decimals, TotalSupply: supply}
	return m.store(prefixedKey(tokenPrefix, []byte(symbol)), stored)
}

// Token returns the metadata for a registered token symbol.
func (m *Manager) Token(symbol string) (*token.Metadata, bool, error) {
	normalized, err := token.NormalizeSymbol(symbol)
	if err != nil {
		return nil, false, err
	}
	stored := new(tokenStored)
	ok, err := m.load(prefixedKey(tokenPrefix, []byte(normalized)), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &token.Metadata{
		Symbol:      stored.Symbol,
		Name:        stored.Name,
		Decimals:    stored.Decimals,
		TotalSupply: stored.TotalSupply,
	}, true, nil
}

// PutToken overwrites the metadata for an already registered token.
func (m *Manager) PutToken(meta *token.Metadata) error {
	if meta == nil {
		return fmt.Errorf("state: nil token metadata")
	}
	supply := meta.TotalSupply
	if supply == nil {
		supply = big.NewInt(0)
	}
	stored := &tokenStored{Symbol: meta.Symbol, Name: meta.Name, Decimals: meta.Decimals, TotalSupply: supply}
	return m.store(prefixedKey(tokenPrefix, []byte(meta.Symbol)), stored)
}

// TokenExists reports whether the symbol is a registered token.
func (m *Manager) TokenExists(symbol string) (bool, error) {
	_, ok, err := m.Token(symbol)
	return ok, err
}

// TokenList returns the sorted symbols of every registered token.
func (m *Manager) TokenList() ([]string, error) {
	var list []string
	if _, err := m.load(tokenListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

type roleStored struct {
	Granted bool
}

// HasRole reports whether the address holds the named role.
func (m *Manager) HasRole(role string, addr [20]byte) (bool, error) {
	stored := new(roleStored)
	ok, err := m.load(prefixedKey(rolePrefix, []byte(role), addr[:]), stored)
	if err != nil {
		return false, err
	}
	return ok && stored.Granted, nil
}

// GrantRole assigns the named role to the address.
func (m *Manager) GrantRole(role string, addr [20]byte) error {
	return m.store(prefixedKey(rolePrefix, []byte(role), addr[:]), &roleStored{Granted: true})
}

// RevokeRole removes the named role from the address.
func (m *Manager) RevokeRole(role string, addr [20]byte) error {
	return m.store(prefixedKey(rolePrefix, []byte(role), addr[:]), &roleStored{Granted: false})
}

type allowanceStored struct {
	Amount *big.Int
}

// Allowance returns the spending allowance granted by owner to spender.
func (m *Manager) Allowance(symbol string, owner, spender [20]byte) (*big.Int, error) {
	stored := new(allowanceStored)
	ok, err := m.load(prefixedKey(allowancePrefix, []byte(symbol), owner[:], spender[:]), stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored.Amount == nil {
		return big.NewInt(0), nil
	}
	return stored.Amount, nil
}

// SetAllowance records the spending allowance granted by owner to spender.
func (m *Manager) SetAllowance(symbol string, owner, spender [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return m.store(prefixedKey(allowancePrefix, []byte(symbol), owner[:], spender[:]), &allowanceStored{Amount: amount})
}

// --- Events ---

// AppendEvent records an event emitted during the current operation.
func (m *Manager) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	m.events = append(m.events, *evt)
}

// Events returns the events accumulated since the last Reset.
func (m *Manager) Events() []types.Event {
	out := make([]types.Event, len(m.events))
	copy(out, m.events)
	return out
}

// ResetEvents clears the accumulated event buffer.
func (m *Manager) ResetEvents() {
	m.events = nil
}

package state

import (
	"fmt"
	"sort"

	"pesachain/native/bills"
	"pesachain/native/identity"
	"pesachain/native/merchant"
)

// --- Identity aliases ---

type aliasStored struct {
	Alias     string
	Address   [20]byte
	CreatedAt uint64
	UpdatedAt uint64
}

// AliasGet resolves a normalized alias to its record.
func (m *Manager) AliasGet(alias string) (*identity.AliasRecord, bool, error) {
	stored := new(aliasStored)
	ok, err := m.load(prefixedKey(aliasPrefix, []byte(alias)), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &identity.AliasRecord{
		Alias:     stored.Alias,
		Address:   stored.Address,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, true, nil
}

// AliasPut persists an alias record and its reverse index.
func (m *Manager) AliasPut(record *identity.AliasRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil alias record")
	}
	stored := &aliasStored{
		Alias:     record.Alias,
		Address:   record.Address,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	if err := m.store(prefixedKey(aliasPrefix, []byte(record.Alias)), stored); err != nil {
		return err
	}
	return m.store(prefixedKey(aliasAddrPrefix, record.Address[:]), record.Alias)
}

// AliasByAddress returns the alias registered for an address, if any.
func (m *Manager) AliasByAddress(addr [20]byte) (string, bool, error) {
	var alias string
	ok, err := m.load(prefixedKey(aliasAddrPrefix, addr[:]), &alias)
	if err != nil || !ok {
		return "", false, err
	}
	return alias, true, nil
}

// --- Merchants ---

type merchantStored struct {
	Address      [20]byte
	CashbackBps  uint64
	RegisteredAt uint64
}

// MerchantGet loads a merchant record.
func (m *Manager) MerchantGet(addr [20]byte) (*merchant.Record, bool, error) {
	stored := new(merchantStored)
	ok, err := m.load(prefixedKey(merchantPrefix, addr[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &merchant.Record{
		Address:      stored.Address,
		CashbackBps:  stored.CashbackBps,
		RegisteredAt: stored.RegisteredAt,
	}, true, nil
}

// MerchantPut persists a merchant record.
func (m *Manager) MerchantPut(record *merchant.Record) error {
	if record == nil {
		return fmt.Errorf("state: nil merchant record")
	}
	return m.store(prefixedKey(merchantPrefix, record.Address[:]), &merchantStored{
		Address:      record.Address,
		CashbackBps:  record.CashbackBps,
		RegisteredAt: record.RegisteredAt,
	})
}

// --- Bill types ---

type billTypeStored struct {
	ID        string
	Payee     [20]byte
	CreatedAt uint64
}

// BillTypeGet loads a whitelisted bill type.
func (m *Manager) BillTypeGet(id string) (*bills.BillType, bool, error) {
	stored := new(billTypeStored)
	ok, err := m.load(prefixedKey(billTypePrefix, []byte(id)), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &bills.BillType{ID: stored.ID, Payee: stored.Payee, CreatedAt: stored.CreatedAt}, true, nil
}

// BillTypePut adds or updates a whitelisted bill type and its index entry.
func (m *Manager) BillTypePut(bt *bills.BillType) error {
	if bt == nil {
		return fmt.Errorf("state: nil bill type")
	}
	list, err := m.BillTypeList()
	if err != nil {
		return err
	}
	found := false
	for _, existing := range list {
		if existing == bt.ID {
			found = true
			break
		}
	}
	if !found {
		list = append(list, bt.ID)
		sort.Strings(list)
		if err := m.store(billListKey, list); err != nil {
			return err
		}
	}
	return m.store(prefixedKey(billTypePrefix, []byte(bt.ID)), &billTypeStored{
		ID:        bt.ID,
		Payee:     bt.Payee,
		CreatedAt: bt.CreatedAt,
	})
}

// BillTypeDelete removes a bill type from the whitelist and its index.
func (m *Manager) BillTypeDelete(id string) error {
	list, err := m.BillTypeList()
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, existing := range list {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	if err := m.store(billListKey, filtered); err != nil {
		return err
	}
	return m.db.Delete(prefixedKey(billTypePrefix, []byte(id)))
}

// BillTypeList returns the sorted identifiers of every whitelisted bill type.
func (m *Manager) BillTypeList() ([]string, error) {
	var list []string
	if _, err := m.load(billListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

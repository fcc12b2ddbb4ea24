package events

import (
	"math/big"

	"pesachain/core/types"
)

const (
	// TypeAliasRegistered is emitted when a username is bound to an address.
	TypeAliasRegistered = "identity.aliasRegistered"
	// TypeMerchantRegistered is emitted when a merchant joins the cashback program.
	TypeMerchantRegistered = "merchant.registered"
	// TypeMerchantPaid captures a merchant payment and the cashback it earned.
	TypeMerchantPaid = "merchant.paid"
	// TypeBillTypeAdded is emitted when the admin whitelists a bill type.
	TypeBillTypeAdded = "bills.billTypeAdded"
	// TypeBillTypeRemoved is emitted when the admin delists a bill type.
	TypeBillTypeRemoved = "bills.billTypeRemoved"
	// TypeBillPaid captures a payment forwarded to a registered biller.
	TypeBillPaid = "bills.paid"
)

// AliasRegistered records a username to address binding.
type AliasRegistered struct {
	Alias   string
	Address [20]byte
}

func (AliasRegistered) EventType() string { return TypeAliasRegistered }

// Event converts the structured payload into a broadcastable event.
func (e AliasRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeAliasRegistered,
		Attributes: map[string]string{
			"alias": e.Alias,
			"addr":  hexAddr(e.Address),
		},
	}
}

// MerchantRegistered records a merchant and its cashback rate.
type MerchantRegistered struct {
	Merchant    [20]byte
	CashbackBps uint64
}

func (MerchantRegistered) EventType() string { return TypeMerchantRegistered }

func (e MerchantRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeMerchantRegistered,
		Attributes: map[string]string{
			"merchant":    hexAddr(e.Merchant),
			"cashbackBps": uintToString(e.CashbackBps),
		},
	}
}

// MerchantPaid records a merchant payment and the minted cashback.
type MerchantPaid struct {
	Buyer    [20]byte
	Merchant [20]byte
	Amount   *big.Int
	Cashback *big.Int
}

func (MerchantPaid) EventType() string { return TypeMerchantPaid }

func (e MerchantPaid) Event() *types.Event {
	attrs := map[string]string{
		"buyer":    hexAddr(e.Buyer),
		"merchant": hexAddr(e.Merchant),
		"amount":   formatAmount(e.Amount),
	}
	if e.Cashback != nil && e.Cashback.Sign() > 0 {
		attrs["cashback"] = e.Cashback.String()
	}
	return &types.Event{Type: TypeMerchantPaid, Attributes: attrs}
}

// BillTypeAdded records a biller joining the whitelist.
type BillTypeAdded struct {
	BillType string
	Payee    [20]byte
}

func (BillTypeAdded) EventType() string { return TypeBillTypeAdded }

func (e BillTypeAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeBillTypeAdded,
		Attributes: map[string]string{
			"billType": e.BillType,
			"payee":    hexAddr(e.Payee),
		},
	}
}

// BillTypeRemoved records a biller leaving the whitelist.
type BillTypeRemoved struct {
	BillType string
}

func (BillTypeRemoved) EventType() string { return TypeBillTypeRemoved }

func (e BillTypeRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeBillTypeRemoved,
		Attributes: map[string]string{
			"billType": e.BillType,
		},
	}
}

// BillPaid records a payment forwarded to a registered biller.
type BillPaid struct {
	Payer    [20]byte
	BillType string
	Payee    [20]byte
	Amount   *big.Int
}

func (BillPaid) EventType() string { return TypeBillPaid }

func (e BillPaid) Event() *types.Event {
	return &types.Event{
		Type: TypeBillPaid,
		Attributes: map[string]string{
			"payer":    hexAddr(e.Payer),
			"billType": e.BillType,
			"payee":    hexAddr(e.Payee),
			"amount":   formatAmount(e.Amount),
		},
	}
}

package rpc

import "fmt"

type identityRegisterParams struct {
	Address string `json:"address"`
	Alias   string `json:"alias"`
}

func (s *Server) handleIdentityRegister(req *RPCRequest) (interface{}, *RPCError) {
	var params identityRegisterParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("address: %v", err))
	}
	alias, err := s.node.RegisterAlias(addr, params.Alias)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"alias": alias}, nil
}

type identityResolveParams struct {
	Alias string `json:"alias"`
}

func (s *Server) handleIdentityResolve(req *RPCRequest) (interface{}, *RPCError) {
	var params identityResolveParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	addr, err := s.node.ResolveAlias(params.Alias)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"address": formatAddress(addr)}, nil
}

type merchantRegisterParams struct {
	Caller      string `json:"caller"`
	Merchant    string `json:"merchant"`
	CashbackBps uint64 `json:"cashbackBps"`
}

func (s *Server) handleMerchantRegister(req *RPCRequest) (interface{}, *RPCError) {
	var params merchantRegisterParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	merchantAddr, err := parseAddress(params.Merchant)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("merchant: %v", err))
	}
	if err := s.node.RegisterMerchant(caller, merchantAddr, params.CashbackBps); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "registered"}, nil
}

type merchantPayParams struct {
	Buyer    string `json:"buyer"`
	Merchant string `json:"merchant"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
}

func (s *Server) handleMerchantPay(req *RPCRequest) (interface{}, *RPCError) {
	var params merchantPayParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("buyer: %v", err))
	}
	merchantAddr, err := parseAddress(params.Merchant)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("merchant: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	cashback, err := s.node.PayMerchant(buyer, merchantAddr, params.Token, amount)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"cashback": formatAmount(cashback)}, nil
}

type billsAddTypeParams struct {
	Caller string `json:"caller"`
	ID     string `json:"id"`
	Payee  string `json:"payee"`
}

func (s *Server) handleBillsAddType(req *RPCRequest) (interface{}, *RPCError) {
	var params billsAddTypeParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	payee, err := parseAddress(params.Payee)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("payee: %v", err))
	}
	id, err := s.node.AddBillType(caller, params.ID, payee)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"id": id}, nil
}

type billsRemoveTypeParams struct {
	Caller string `json:"caller"`
	ID     string `json:"id"`
}

func (s *Server) handleBillsRemoveType(req *RPCRequest) (interface{}, *RPCError) {
	var params billsRemoveTypeParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	if err := s.node.RemoveBillType(caller, params.ID); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "removed"}, nil
}

type billsPayParams struct {
	Payer  string `json:"payer"`
	ID     string `json:"id"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *Server) handleBillsPay(req *RPCRequest) (interface{}, *RPCError) {
	var params billsPayParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	payer, err := parseAddress(params.Payer)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("payer: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.PayBill(payer, params.ID, params.Token, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "paid"}, nil
}

func (s *Server) handleBillsList(req *RPCRequest) (interface{}, *RPCError) {
	if len(req.Params) != 0 {
		return nil, invalidParams(fmt.Errorf("no parameters expected"))
	}
	ids, err := s.node.BillTypes()
	if err != nil {
		return nil, serverError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return map[string][]string{"billTypes": ids}, nil
}

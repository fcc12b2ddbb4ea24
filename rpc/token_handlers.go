package rpc

import "fmt"

type balanceParams struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

type balanceResult struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

func (s *Server) handleGetBalance(req *RPCRequest) (interface{}, *RPCError) {
	var params balanceParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	balance, err := s.node.BalanceOf(addr, params.Token)
	if err != nil {
		return nil, serverError(err)
	}
	return balanceResult{Address: params.Address, Token: params.Token, Balance: formatAmount(balance)}, nil
}

type transferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransfer(req *RPCRequest) (interface{}, *RPCError) {
	var params transferParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	from, err := parseAddress(params.From)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("from: %v", err))
	}
	to, err := parseAddress(params.To)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("to: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.Transfer(from, to, params.Token, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

type approveParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

func (s *Server) handleApprove(req *RPCRequest) (interface{}, *RPCError) {
	var params approveParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("owner: %v", err))
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("spender: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.Approve(owner, spender, params.Token, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

func (s *Server) handleAllowance(req *RPCRequest) (interface{}, *RPCError) {
	var params approveParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("owner: %v", err))
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("spender: %v", err))
	}
	allowance, err := s.node.Allowance(owner, spender, params.Token)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"allowance": formatAmount(allowance)}, nil
}

type transferFromParams struct {
	Spender string `json:"spender"`
	From    string `json:"from"`
	To      string `json:"to"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

func (s *Server) handleTransferFrom(req *RPCRequest) (interface{}, *RPCError) {
	var params transferFromParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("spender: %v", err))
	}
	from, err := parseAddress(params.From)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("from: %v", err))
	}
	to, err := parseAddress(params.To)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("to: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.TransferFrom(spender, from, to, params.Token, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

type mintParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *Server) handleMint(req *RPCRequest) (interface{}, *RPCError) {
	var params mintParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	to, err := parseAddress(params.To)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("to: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.Mint(caller, to, params.Token, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

type registerTokenParams struct {
	Caller   string `json:"caller"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

func (s *Server) handleRegisterToken(req *RPCRequest) (interface{}, *RPCError) {
	var params registerTokenParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	if err := s.node.RegisterToken(caller, params.Symbol, params.Name, params.Decimals); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

type tokenInfoParams struct {
	Token string `json:"token"`
}

func (s *Server) handleTokenInfo(req *RPCRequest) (interface{}, *RPCError) {
	var params tokenInfoParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	meta, err := s.node.TokenInfo(params.Token)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]interface{}{
		"symbol":      meta.Symbol,
		"name":        meta.Name,
		"decimals":    meta.Decimals,
		"totalSupply": formatAmount(meta.TotalSupply),
	}, nil
}

func (s *Server) handleTokenList(req *RPCRequest) (interface{}, *RPCError) {
	if len(req.Params) != 0 {
		return nil, invalidParams(fmt.Errorf("no parameters expected"))
	}
	list, err := s.node.TokenList()
	if err != nil {
		return nil, serverError(err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

type setPausedParams struct {
	Caller string `json:"caller"`
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

func (s *Server) handleSetPaused(req *RPCRequest) (interface{}, *RPCError) {
	var params setPausedParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	if err := s.node.SetModulePaused(caller, params.Module, params.Paused); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

func (s *Server) handleGetEvents(req *RPCRequest) (interface{}, *RPCError) {
	if len(req.Params) != 0 {
		return nil, invalidParams(fmt.Errorf("no parameters expected"))
	}
	evts := s.node.Events()
	out := make([]map[string]interface{}, 0, len(evts))
	for _, evt := range evts {
		out = append(out, map[string]interface{}{
			"type":       evt.Type,
			"attributes": evt.Attributes,
		})
	}
	return out, nil
}

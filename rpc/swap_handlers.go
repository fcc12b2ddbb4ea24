package rpc

import "fmt"

type pairParams struct {
	TokenA string `json:"tokenA"`
	TokenB string `json:"tokenB"`
}

func (s *Server) handleCreatePool(req *RPCRequest) (interface{}, *RPCError) {
	var params pairParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	id, err := s.node.CreatePool(params.TokenA, params.TokenB)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"poolId": formatPoolID(id)}, nil
}

func (s *Server) handleGetPool(req *RPCRequest) (interface{}, *RPCError) {
	var params pairParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	pool, err := s.node.PoolInfo(params.TokenA, params.TokenB)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{
		"poolId":   formatPoolID(pool.ID),
		"token0":   pool.Token0,
		"token1":   pool.Token1,
		"reserve0": formatAmount(pool.Reserve0),
		"reserve1": formatAmount(pool.Reserve1),
		"lpSupply": formatAmount(pool.LPSupply),
	}, nil
}

type addLiquidityParams struct {
	Provider string `json:"provider"`
	TokenA   string `json:"tokenA"`
	TokenB   string `json:"tokenB"`
	DesiredA string `json:"desiredA"`
	DesiredB string `json:"desiredB"`
	MinA     string `json:"minA,omitempty"`
	MinB     string `json:"minB,omitempty"`
}

func (s *Server) handleAddLiquidity(req *RPCRequest) (interface{}, *RPCError) {
	var params addLiquidityParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	provider, err := parseAddress(params.Provider)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("provider: %v", err))
	}
	desiredA, err := parseAmount(params.DesiredA)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("desiredA: %v", err))
	}
	desiredB, err := parseAmount(params.DesiredB)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("desiredB: %v", err))
	}
	minA, err := parseOptionalAmount(params.MinA)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("minA: %v", err))
	}
	minB, err := parseOptionalAmount(params.MinB)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("minB: %v", err))
	}
	usedA, usedB, shares, err := s.node.AddLiquidity(provider, params.TokenA, params.TokenB, desiredA, desiredB, minA, minB)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{
		"amountA": formatAmount(usedA),
		"amountB": formatAmount(usedB),
		"shares":  formatAmount(shares),
	}, nil
}

type removeLiquidityParams struct {
	Provider string `json:"provider"`
	TokenA   string `json:"tokenA"`
	TokenB   string `json:"tokenB"`
	Shares   string `json:"shares"`
	MinA     string `json:"minA,omitempty"`
	MinB     string `json:"minB,omitempty"`
}

func (s *Server) handleRemoveLiquidity(req *RPCRequest) (interface{}, *RPCError) {
	var params removeLiquidityParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	provider, err := parseAddress(params.Provider)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("provider: %v", err))
	}
	shares, err := parseAmount(params.Shares)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("shares: %v", err))
	}
	minA, err := parseOptionalAmount(params.MinA)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("minA: %v", err))
	}
	minB, err := parseOptionalAmount(params.MinB)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("minB: %v", err))
	}
	outA, outB, err := s.node.RemoveLiquidity(provider, params.TokenA, params.TokenB, shares, minA, minB)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{
		"amountA": formatAmount(outA),
		"amountB": formatAmount(outB),
	}, nil
}

type swapParams struct {
	Trader   string `json:"trader"`
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	AmountIn string `json:"amountIn"`
	MinOut   string `json:"minOut,omitempty"`
}

func (s *Server) handleSwap(req *RPCRequest) (interface{}, *RPCError) {
	var params swapParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	trader, err := parseAddress(params.Trader)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("trader: %v", err))
	}
	amountIn, err := parseAmount(params.AmountIn)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("amountIn: %v", err))
	}
	minOut, err := parseOptionalAmount(params.MinOut)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("minOut: %v", err))
	}
	out, err := s.node.Swap(trader, params.TokenIn, params.TokenOut, amountIn, minOut)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"amountOut": formatAmount(out)}, nil
}

type sharesParams struct {
	Provider string `json:"provider"`
	TokenA   string `json:"tokenA"`
	TokenB   string `json:"tokenB"`
}

func (s *Server) handleGetShares(req *RPCRequest) (interface{}, *RPCError) {
	var params sharesParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	provider, err := parseAddress(params.Provider)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("provider: %v", err))
	}
	shares, err := s.node.LPShares(provider, params.TokenA, params.TokenB)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"shares": formatAmount(shares)}, nil
}

type quoteParams struct {
	AmountIn   string `json:"amountIn"`
	ReserveIn  string `json:"reserveIn"`
	ReserveOut string `json:"reserveOut"`
}

func (s *Server) handleQuote(req *RPCRequest) (interface{}, *RPCError) {
	var params quoteParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	amountIn, err := parseAmount(params.AmountIn)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("amountIn: %v", err))
	}
	reserveIn, err := parseAmount(params.ReserveIn)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("reserveIn: %v", err))
	}
	reserveOut, err := parseAmount(params.ReserveOut)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("reserveOut: %v", err))
	}
	out, err := s.node.QuoteSwap(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"amountOut": formatAmount(out)}, nil
}

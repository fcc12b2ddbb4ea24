package rpc

import "fmt"

type farmAddPoolParams struct {
	Caller     string `json:"caller"`
	AllocPoint uint64 `json:"allocPoint"`
	Token      string `json:"token"`
}

func (s *Server) handleFarmAddPool(req *RPCRequest) (interface{}, *RPCError) {
	var params farmAddPoolParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	id, err := s.node.AddFarmPool(caller, params.AllocPoint, params.Token)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]uint64{"poolId": id}, nil
}

type farmMoveParams struct {
	User   string `json:"user"`
	PoolID uint64 `json:"poolId"`
	Amount string `json:"amount"`
}

func (s *Server) handleFarmDeposit(req *RPCRequest) (interface{}, *RPCError) {
	var params farmMoveParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	user, err := parseAddress(params.User)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("user: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.FarmDeposit(user, params.PoolID, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

func (s *Server) handleFarmWithdraw(req *RPCRequest) (interface{}, *RPCError) {
	var params farmMoveParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	user, err := parseAddress(params.User)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("user: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.FarmWithdraw(user, params.PoolID, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

type farmUserParams struct {
	User   string `json:"user"`
	PoolID uint64 `json:"poolId"`
}

func (s *Server) handleFarmHarvest(req *RPCRequest) (interface{}, *RPCError) {
	var params farmUserParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	user, err := parseAddress(params.User)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("user: %v", err))
	}
	reward, err := s.node.FarmHarvest(user, params.PoolID)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"reward": formatAmount(reward)}, nil
}

func (s *Server) handleFarmPending(req *RPCRequest) (interface{}, *RPCError) {
	var params farmUserParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	user, err := parseAddress(params.User)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("user: %v", err))
	}
	pending, err := s.node.FarmPending(user, params.PoolID)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"pending": formatAmount(pending)}, nil
}

type farmPoolParams struct {
	PoolID uint64 `json:"poolId"`
}

func (s *Server) handleFarmUpdate(req *RPCRequest) (interface{}, *RPCError) {
	var params farmPoolParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.FarmUpdatePool(params.PoolID); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

func (s *Server) handleFarmGetPool(req *RPCRequest) (interface{}, *RPCError) {
	var params farmPoolParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	pool, err := s.node.FarmPoolInfo(params.PoolID)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]interface{}{
		"poolId":            pool.ID,
		"stakedToken":       pool.StakedToken,
		"allocPoint":        pool.AllocPoint,
		"lastRewardTime":    pool.LastRewardTime,
		"accRewardPerShare": formatAmount(pool.AccRewardPerShare),
		"totalStaked":       formatAmount(pool.TotalStaked),
	}, nil
}

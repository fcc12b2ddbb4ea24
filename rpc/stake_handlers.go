package rpc

import "fmt"

type stakeParams struct {
	Staker string `json:"staker"`
	Amount string `json:"amount"`
}

func (s *Server) handleStake(req *RPCRequest) (interface{}, *RPCError) {
	var params stakeParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	staker, err := parseAddress(params.Staker)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("staker: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.Stake(staker, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

func (s *Server) handleUnstake(req *RPCRequest) (interface{}, *RPCError) {
	var params stakeParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	staker, err := parseAddress(params.Staker)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("staker: %v", err))
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.node.Unstake(staker, amount); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

type stakerParams struct {
	Staker string `json:"staker"`
}

func (s *Server) handleStakeClaim(req *RPCRequest) (interface{}, *RPCError) {
	var params stakerParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	staker, err := parseAddress(params.Staker)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("staker: %v", err))
	}
	reward, err := s.node.ClaimStakeRewards(staker)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"reward": formatAmount(reward)}, nil
}

func (s *Server) handleStakePending(req *RPCRequest) (interface{}, *RPCError) {
	var params stakerParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	staker, err := parseAddress(params.Staker)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("staker: %v", err))
	}
	pending, err := s.node.PendingStakeRewards(staker)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"pending": formatAmount(pending)}, nil
}

func (s *Server) handleStakePosition(req *RPCRequest) (interface{}, *RPCError) {
	var params stakerParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	staker, err := parseAddress(params.Staker)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("staker: %v", err))
	}
	staked, err := s.node.StakedAmount(staker)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"staked": formatAmount(staked)}, nil
}

type stakeRateParams struct {
	Caller  string `json:"caller"`
	RateBps uint64 `json:"rateBps"`
}

func (s *Server) handleStakeSetRate(req *RPCRequest) (interface{}, *RPCError) {
	var params stakeRateParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	if err := s.node.SetStakeRate(caller, params.RateBps); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "ok"}, nil
}

package rpc

import "fmt"

type loanRequestParams struct {
	Borrower string `json:"borrower"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	RateBps  uint64 `json:"rateBps"`
	Duration uint64 `json:"duration"`
}

func (s *Server) handleLoanRequest(req *RPCRequest) (interface{}, *RPCError) {
	var params loanRequestParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	borrower, err := parseAddress(params.Borrower)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("borrower: %v", err))
	}
	principal, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	id, err := s.node.RequestLoan(borrower, params.Token, principal, params.RateBps, params.Duration)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]uint64{"loanId": id}, nil
}

type loanActorParams struct {
	Caller string `json:"caller"`
	LoanID uint64 `json:"loanId"`
}

func (s *Server) handleLoanFund(req *RPCRequest) (interface{}, *RPCError) {
	var params loanActorParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	lender, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	if err := s.node.FundLoan(lender, params.LoanID); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "funded"}, nil
}

func (s *Server) handleLoanRepay(req *RPCRequest) (interface{}, *RPCError) {
	var params loanActorParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	borrower, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	repaid, err := s.node.RepayLoan(borrower, params.LoanID)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"repaid": formatAmount(repaid)}, nil
}

func (s *Server) handleLoanMarkDefault(req *RPCRequest) (interface{}, *RPCError) {
	var params loanActorParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	lender, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("caller: %v", err))
	}
	if err := s.node.MarkLoanDefault(lender, params.LoanID); err != nil {
		return nil, serverError(err)
	}
	return map[string]string{"status": "defaulted"}, nil
}

type loanLookupParams struct {
	LoanID uint64 `json:"loanId"`
}

func (s *Server) handleLoanGet(req *RPCRequest) (interface{}, *RPCError) {
	var params loanLookupParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	record, err := s.node.LoanInfo(params.LoanID)
	if err != nil {
		return nil, serverError(err)
	}
	return map[string]interface{}{
		"loanId":    record.ID,
		"borrower":  formatAddress(record.Borrower),
		"lender":    formatAddress(record.Lender),
		"token":     record.Token,
		"principal": formatAmount(record.Principal),
		"rateBps":   record.RateBps,
		"duration":  record.Duration,
		"createdAt": record.CreatedAt,
		"dueTime":   record.DueTime,
		"status":    record.Status.String(),
	}, nil
}

type loanListParams struct {
	Address string `json:"address"`
}

func (s *Server) handleLoanListOf(req *RPCRequest) (interface{}, *RPCError) {
	var params loanListParams
	if err := singleParam(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(fmt.Errorf("address: %v", err))
	}
	ids, err := s.node.LoansOf(addr)
	if err != nil {
		return nil, serverError(err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return map[string][]uint64{"loanIds": ids}, nil
}

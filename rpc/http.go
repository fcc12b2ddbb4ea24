package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"pesachain/core"
	"pesachain/observability"
	"pesachain/observability/logging"
)

const maxRequestBytes = 1 << 20

// Server exposes the node's operations over JSON-RPC 2.0. Mutating methods
// require the bearer token from PESA_RPC_TOKEN when one is configured.
type Server struct {
	node      *core.Node
	log       *slog.Logger
	authToken string
}

func NewServer(node *core.Node, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:      node,
		log:       logger,
		authToken: strings.TrimSpace(os.Getenv("PESA_RPC_TOKEN")),
	}
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "address", addr)
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "authorization required"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token != s.authToken {
		return &RPCError{Code: codeUnauthorized, Message: "invalid authorization token"}
	}
	return nil
}

type handlerFunc func(req *RPCRequest) (interface{}, *RPCError)

// methodTable routes a method name to its handler and records whether the
// method mutates state and therefore needs auth.
type methodEntry struct {
	module  string
	mutates bool
	handler handlerFunc
}

func (s *Server) methods() map[string]methodEntry {
	return map[string]methodEntry{
		"pesa_getBalance":    {module: "token", handler: s.handleGetBalance},
		"pesa_tokenInfo":     {module: "token", handler: s.handleTokenInfo},
		"pesa_tokenList":     {module: "token", handler: s.handleTokenList},
		"pesa_allowance":     {module: "token", handler: s.handleAllowance},
		"pesa_transfer":      {module: "token", mutates: true, handler: s.handleTransfer},
		"pesa_approve":       {module: "token", mutates: true, handler: s.handleApprove},
		"pesa_transferFrom":  {module: "token", mutates: true, handler: s.handleTransferFrom},
		"pesa_mint":          {module: "token", mutates: true, handler: s.handleMint},
		"pesa_registerToken": {module: "token", mutates: true, handler: s.handleRegisterToken},
		"pesa_setPaused":     {module: "admin", mutates: true, handler: s.handleSetPaused},
		"pesa_getEvents":     {module: "admin", handler: s.handleGetEvents},

		"swap_createPool":      {module: "amm", mutates: true, handler: s.handleCreatePool},
		"swap_addLiquidity":    {module: "amm", mutates: true, handler: s.handleAddLiquidity},
		"swap_removeLiquidity": {module: "amm", mutates: true, handler: s.handleRemoveLiquidity},
		"swap_swap":            {module: "amm", mutates: true, handler: s.handleSwap},
		"swap_getPool":         {module: "amm", handler: s.handleGetPool},
		"swap_getShares":       {module: "amm", handler: s.handleGetShares},
		"swap_quote":           {module: "amm", handler: s.handleQuote},

		"stake_stake":    {module: "stake", mutates: true, handler: s.handleStake},
		"stake_unstake":  {module: "stake", mutates: true, handler: s.handleUnstake},
		"stake_claim":    {module: "stake", mutates: true, handler: s.handleStakeClaim},
		"stake_setRate":  {module: "stake", mutates: true, handler: s.handleStakeSetRate},
		"stake_pending":  {module: "stake", handler: s.handleStakePending},
		"stake_position": {module: "stake", handler: s.handleStakePosition},

		"farm_addPool":  {module: "farm", mutates: true, handler: s.handleFarmAddPool},
		"farm_deposit":  {module: "farm", mutates: true, handler: s.handleFarmDeposit},
		"farm_withdraw": {module: "farm", mutates: true, handler: s.handleFarmWithdraw},
		"farm_harvest":  {module: "farm", mutates: true, handler: s.handleFarmHarvest},
		"farm_update":   {module: "farm", mutates: true, handler: s.handleFarmUpdate},
		"farm_pending":  {module: "farm", handler: s.handleFarmPending},
		"farm_getPool":  {module: "farm", handler: s.handleFarmGetPool},

		"loan_request":     {module: "loan", mutates: true, handler: s.handleLoanRequest},
		"loan_fund":        {module: "loan", mutates: true, handler: s.handleLoanFund},
		"loan_repay":       {module: "loan", mutates: true, handler: s.handleLoanRepay},
		"loan_markDefault": {module: "loan", mutates: true, handler: s.handleLoanMarkDefault},
		"loan_get":         {module: "loan", handler: s.handleLoanGet},
		"loan_listOf":      {module: "loan", handler: s.handleLoanListOf},

		"identity_register": {module: "identity", mutates: true, handler: s.handleIdentityRegister},
		"identity_resolve":  {module: "identity", handler: s.handleIdentityResolve},

		"merchant_register": {module: "merchant", mutates: true, handler: s.handleMerchantRegister},
		"merchant_pay":      {module: "merchant", mutates: true, handler: s.handleMerchantPay},

		"bills_addType":    {module: "bills", mutates: true, handler: s.handleBillsAddType},
		"bills_removeType": {module: "bills", mutates: true, handler: s.handleBillsRemoveType},
		"bills_pay":        {module: "bills", mutates: true, handler: s.handleBillsPay},
		"bills_list":       {module: "bills", handler: s.handleBillsList},
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	entry, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}
	if entry.mutates {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	start := time.Now()
	result, rpcErr := entry.handler(req)
	observability.ModuleMetrics().Observe(entry.module, req.Method, errFromRPC(rpcErr), time.Since(start))
	if rpcErr != nil {
		s.log.Warn("rpc request failed",
			slog.String("module", entry.module),
			slog.String("method", req.Method),
			logging.MaskField("error", rpcErr.Message),
		)
		status := http.StatusBadRequest
		if rpcErr.Code == codeServerError {
			status = http.StatusOK
		}
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

func errFromRPC(rpcErr *RPCError) error {
	if rpcErr == nil {
		return nil
	}
	return errors.New(rpcErr.Message)
}

func invalidParams(err error) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: err.Error()}
}

func serverError(err error) *RPCError {
	return &RPCError{Code: codeServerError, Message: err.Error()}
}

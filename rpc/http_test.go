package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pesachain/config"
	"pesachain/core"
	"pesachain/storage"
)

const testAdmin = "0x0000000000000000000000000000000000000009"

func testConfig() *config.Config {
	return &config.Config{
		NetworkName:            "pesa-test",
		BaseToken:              "PESA",
		AdminAddress:           testAdmin,
		SwapFeeBps:             30,
		StakeRateBps:           1_000,
		StakeMaxRateBps:        5_000,
		FarmRewardPerSec:       1,
		LoanMinDurationSecs:    86_400,
		LoanMaxDurationSecs:    365 * 86_400,
		LoanMaxRateBps:         3_000,
		LoanRequestTTLSecs:     7 * 86_400,
		MerchantMaxCashbackBps: 1_000,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), testConfig(), nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return NewServer(node, nil)
}

func post(t *testing.T, server *Server, body string) *RPCResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.handle(rec, req)
	resp := &RPCResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func call(t *testing.T, server *Server, method, params string) *RPCResponse {
	t.Helper()
	body := `{"jsonrpc":"2.0","id":1,"method":"` + method + `","params":[` + params + `]}`
	return post(t, server, body)
}

func TestHandleRejectsNonPost(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.handle(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleRejectsMalformedJSON(t *testing.T) {
	server := newTestServer(t)
	resp := post(t, server, "{not json")
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	server := newTestServer(t)
	resp := post(t, server, `{"jsonrpc":"2.0","id":1,"method":"pesa_noSuchMethod"}`)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp.Error)
	}
}

func TestMutatingMethodRequiresAuthWhenConfigured(t *testing.T) {
	server := newTestServer(t)
	server.authToken = "secret"

	body := `{"jsonrpc":"2.0","id":1,"method":"pesa_mint","params":[{"caller":"` + testAdmin + `","to":"0x0000000000000000000000000000000000000001","token":"PESA","amount":"100"}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.handle(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	server.handle(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestMintAndBalanceRoundTrip(t *testing.T) {
	server := newTestServer(t)
	alice := "0x0000000000000000000000000000000000000001"

	resp := call(t, server, "pesa_mint", `{"caller":"`+testAdmin+`","to":"`+alice+`","token":"PESA","amount":"2500"}`)
	if resp.Error != nil {
		t.Fatalf("mint failed: %+v", resp.Error)
	}

	resp = call(t, server, "pesa_getBalance", `{"address":"`+alice+`","token":"PESA"}`)
	if resp.Error != nil {
		t.Fatalf("balance failed: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result shape: %T", resp.Result)
	}
	if result["balance"] != "2500" {
		t.Fatalf("expected balance 2500, got %v", result["balance"])
	}
}

func TestInvalidAddressParam(t *testing.T) {
	server := newTestServer(t)
	resp := call(t, server, "pesa_getBalance", `{"address":"0x1234","token":"PESA"}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params, got %+v", resp.Error)
	}
}

func TestLoanLifecycleOverRPC(t *testing.T) {
	server := newTestServer(t)
	borrower := "0x0000000000000000000000000000000000000001"
	lender := "0x0000000000000000000000000000000000000002"

	if resp := call(t, server, "pesa_mint", `{"caller":"`+testAdmin+`","to":"`+lender+`","token":"PESA","amount":"10000"}`); resp.Error != nil {
		t.Fatalf("mint lender: %+v", resp.Error)
	}

	resp := call(t, server, "loan_request", `{"borrower":"`+borrower+`","token":"PESA","amount":"10000","rateBps":500,"duration":2592000}`)
	if resp.Error != nil {
		t.Fatalf("loan request: %+v", resp.Error)
	}
	if resp = call(t, server, "loan_fund", `{"caller":"`+lender+`","loanId":1}`); resp.Error != nil {
		t.Fatalf("loan fund: %+v", resp.Error)
	}

	resp = call(t, server, "loan_get", `{"loanId":1}`)
	if resp.Error != nil {
		t.Fatalf("loan get: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	if result["status"] != "funded" {
		t.Fatalf("expected funded status, got %v", result["status"])
	}
	if result["lender"] != lender {
		t.Fatalf("expected lender %s, got %v", lender, result["lender"])
	}
}

func TestLoanListOfEmpty(t *testing.T) {
	server := newTestServer(t)
	resp := call(t, server, "loan_listOf", `{"address":"0x0000000000000000000000000000000000000001"}`)
	if resp.Error != nil {
		t.Fatalf("loan list: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result shape: %T", resp.Result)
	}
	ids, ok := result["loanIds"].([]interface{})
	if !ok || len(ids) != 0 {
		t.Fatalf("expected empty loan id list, got %v", result["loanIds"])
	}
}

func TestBillsListEmpty(t *testing.T) {
	server := newTestServer(t)
	resp := post(t, server, `{"jsonrpc":"2.0","id":1,"method":"bills_list"}`)
	if resp.Error != nil {
		t.Fatalf("bills list: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result shape: %T", resp.Result)
	}
	types, ok := result["billTypes"].([]interface{})
	if !ok || len(types) != 0 {
		t.Fatalf("expected empty bill types, got %v", result["billTypes"])
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
)

var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = os.Getenv("PESA_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	args = args[1:]
	switch command {
	case "balance":
		requireArgs(args, 2, "balance <address> <token>")
		run("pesa_getBalance", false, map[string]string{"address": args[0], "token": args[1]})
	case "transfer":
		requireArgs(args, 4, "transfer <from> <to> <token> <amount>")
		run("pesa_transfer", true, map[string]string{"from": args[0], "to": args[1], "token": args[2], "amount": args[3]})
	case "mint":
		requireArgs(args, 4, "mint <caller> <to> <token> <amount>")
		run("pesa_mint", true, map[string]string{"caller": args[0], "to": args[1], "token": args[2], "amount": args[3]})
	case "tokens":
		run("pesa_tokenList", false, nil)
	case "quote":
		requireArgs(args, 3, "quote <amountIn> <reserveIn> <reserveOut>")
		run("swap_quote", false, map[string]string{"amountIn": args[0], "reserveIn": args[1], "reserveOut": args[2]})
	case "stake-position":
		requireArgs(args, 1, "stake-position <staker>")
		run("stake_position", false, map[string]string{"staker": args[0]})
	case "loan":
		requireArgs(args, 1, "loan <id>")
		id := parseUint(args[0])
		run("loan_get", false, map[string]interface{}{"loanId": id})
	case "loans-of":
		requireArgs(args, 1, "loans-of <address>")
		run("loan_listOf", false, map[string]string{"address": args[0]})
	case "resolve":
		requireArgs(args, 1, "resolve <alias>")
		run("identity_resolve", false, map[string]string{"alias": args[0]})
	case "bills":
		run("bills_list", false, nil)
	case "events":
		run("pesa_getEvents", false, nil)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println(`Usage: pesa-cli [--rpc <url>] <command> [args]

Commands:
  balance <address> <token>               Query a token balance
  transfer <from> <to> <token> <amount>   Move tokens between accounts
  mint <caller> <to> <token> <amount>     Mint tokens (minter role required)
  tokens                                  List registered tokens
  quote <amountIn> <reserveIn> <reserveOut>  Preview swap output for given reserves
  stake-position <staker>                 Show a staking position
  loan <id>                               Show a loan record
  loans-of <address>                      List loan ids for an address
  resolve <alias>                         Resolve an alias to an address
  bills                                   List registered bill types
  events                                  Drain the node's event buffer

Set PESA_RPC_TOKEN for mutating commands when the node requires auth.
Set RPC_URL or pass --rpc to target a non-local node.`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out, nil
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "Usage: pesa-cli %s\n", usage)
		os.Exit(1)
	}
}

func parseUint(value string) uint64 {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid numeric argument %q\n", value)
		os.Exit(1)
	}
	return parsed
}

func run(method string, requireAuth bool, param interface{}) {
	result, err := callRPC(method, requireAuth, param)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(pretty))
}

func callRPC(method string, requireAuth bool, param interface{}) (json.RawMessage, error) {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if rpcAuthToken == "" {
			return nil, fmt.Errorf("privileged RPC call requires PESA_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node: %s", rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

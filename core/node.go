package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"pesachain/config"
	"pesachain/core/events"
	"pesachain/core/state"
	"pesachain/core/types"
	"pesachain/native/amm"
	"pesachain/native/bills"
	"pesachain/native/farm"
	"pesachain/native/identity"
	"pesachain/native/loan"
	"pesachain/native/merchant"
	"pesachain/native/stake"
	"pesachain/native/token"
	"pesachain/observability"
	"pesachain/storage"
)

// Node owns the state manager and every native engine. All mutating
// operations funnel through the node mutex so each one observes and commits a
// consistent snapshot.
type Node struct {
	mu  sync.Mutex
	log *slog.Logger
	cfg *config.Config

	admin   [20]byte
	manager *state.Manager
	pauses  *PauseRegistry

	ledger    *token.Ledger
	swap      *amm.Engine
	staking   *stake.Engine
	farming   *farm.Engine
	loans     *loan.Engine
	aliases   *identity.Registry
	merchants *merchant.Engine
	billers   *bills.Engine
}

// eventSink forwards engine events into the state manager's event buffer and
// the metrics registry.
type eventSink struct {
	manager *state.Manager
}

func (s eventSink) Emit(evt events.Event) {
	if s.manager == nil || evt == nil {
		return
	}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		s.manager.AppendEvent(payload.Event())
	}
	observability.Events().RecordEvent(evt.EventType())
}

// PauseRegistry is the in-memory admin switchboard for native modules. A
// paused module rejects every mutating operation until resumed.
type PauseRegistry struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauseRegistry creates an empty pause registry.
func NewPauseRegistry() *PauseRegistry {
	return &PauseRegistry{paused: make(map[string]bool)}
}

// IsPaused reports whether the module is paused.
func (p *PauseRegistry) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}

// SetPaused flips the pause flag for one module.
func (p *PauseRegistry) SetPaused(module string, paused bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused[module] = paused
}

// NewNode wires the ledger and every engine against the supplied database.
// The base token is registered on first boot and the module vaults receive
// the minter role so accrual engines can issue rewards.
func NewNode(db storage.Database, cfg *config.Config, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.Default()
	}
	admin, err := cfg.Admin()
	if err != nil {
		return nil, err
	}

	manager := state.NewManager(db)
	sink := eventSink{manager: manager}
	pauses := NewPauseRegistry()

	ledger := token.NewLedger()
	ledger.SetState(manager)
	ledger.SetEmitter(sink)

	swap := amm.NewEngine(cfg.SwapFeeBps)
	swap.SetState(manager)
	swap.SetLedger(ledger)
	swap.SetEmitter(sink)
	swap.SetPauses(pauses)

	staking := stake.NewEngine(cfg.BaseToken, cfg.StakeRateBps, cfg.StakeMaxRateBps)
	staking.SetState(manager)
	staking.SetLedger(ledger)
	staking.SetEmitter(sink)
	staking.SetPauses(pauses)
	staking.SetAdmin(admin)

	farming := farm.NewEngine(cfg.BaseToken, new(big.Int).SetUint64(cfg.FarmRewardPerSec))
	farming.SetState(manager)
	farming.SetLedger(ledger)
	farming.SetEmitter(sink)
	farming.SetPauses(pauses)
	farming.SetAdmin(admin)

	loans := loan.NewEngine(loan.Limits{
		MinDuration: cfg.LoanMinDurationSecs,
		MaxDuration: cfg.LoanMaxDurationSecs,
		MaxRateBps:  cfg.LoanMaxRateBps,
		RequestTTL:  cfg.LoanRequestTTLSecs,
	})
	loans.SetState(manager)
	loans.SetLedger(ledger)
	loans.SetEmitter(sink)
	loans.SetPauses(pauses)

	aliases := identity.NewRegistry()
	aliases.SetState(manager)
	aliases.SetEmitter(sink)

	merchants := merchant.NewEngine(cfg.BaseToken, cfg.MerchantMaxCashbackBps)
	merchants.SetState(manager)
	merchants.SetLedger(ledger)
	merchants.SetEmitter(sink)
	merchants.SetPauses(pauses)
	merchants.SetAdmin(admin)

	billers := bills.NewEngine()
	billers.SetState(manager)
	billers.SetLedger(ledger)
	billers.SetEmitter(sink)
	billers.SetPauses(pauses)
	billers.SetAdmin(admin)

	node := &Node{
		log:       logger,
		cfg:       cfg,
		admin:     admin,
		manager:   manager,
		pauses:    pauses,
		ledger:    ledger,
		swap:      swap,
		staking:   staking,
		farming:   farming,
		loans:     loans,
		aliases:   aliases,
		merchants: merchants,
		billers:   billers,
	}
	if err := node.bootstrap(); err != nil {
		return nil, err
	}
	return node, nil
}

// bootstrap registers the base token and grants the minter role to the admin
// and the accrual vaults. Idempotent across restarts.
func (n *Node) bootstrap() error {
	symbol, err := token.NormalizeSymbol(n.cfg.BaseToken)
	if err != nil {
		return fmt.Errorf("node: invalid base token: %w", err)
	}
	exists, err := n.manager.TokenExists(symbol)
	if err != nil {
		return err
	}
	if !exists {
		meta := &token.Metadata{Symbol: symbol, Name: symbol, Decimals: 18, TotalSupply: big.NewInt(0)}
		if err := n.manager.RegisterToken(meta); err != nil {
			return err
		}
		n.log.Info("registered base token", "token", symbol)
	}

	var zero [20]byte
	minters := [][20]byte{n.staking.Vault(), n.farming.Vault(), n.merchants.Vault()}
	if n.admin != zero {
		minters = append(minters, n.admin)
	}
	for _, minter := range minters {
		ok, err := n.manager.HasRole(token.MinterRole, minter)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := n.manager.GrantRole(token.MinterRole, minter); err != nil {
			return err
		}
	}
	return nil
}

// Admin returns the configured administrative address.
func (n *Node) Admin() [20]byte { return n.admin }

// Events drains the buffered events accumulated since the last drain.
func (n *Node) Events() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	evts := n.manager.Events()
	n.manager.ResetEvents()
	return evts
}

// SetModulePaused flips a module's pause flag. Admin only.
func (n *Node) SetModulePaused(caller [20]byte, module string, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.admin {
		return token.ErrUnauthorized
	}
	n.pauses.SetPaused(module, paused)
	n.log.Info("module pause flag changed", "module", module, "paused", paused)
	return nil
}

// --- token ---

// RegisterToken adds a token definition to the registry. Admin only.
func (n *Node) RegisterToken(caller [20]byte, symbol, name string, decimals uint8) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.admin {
		return token.ErrUnauthorized
	}
	normalized, err := token.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	return n.manager.RegisterToken(&token.Metadata{
		Symbol:      normalized,
		Name:        name,
		Decimals:    decimals,
		TotalSupply: big.NewInt(0),
	})
}

// BalanceOf reports the balance of addr for the given token.
func (n *Node) BalanceOf(addr [20]byte, symbol string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.BalanceOf(addr, symbol)
}

// Transfer moves tokens between accounts.
func (n *Node) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Transfer(from, to, symbol, amount)
}

// Approve sets the spender allowance for owner's tokens.
func (n *Node) Approve(owner, spender [20]byte, symbol string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Approve(owner, spender, symbol, amount)
}

// Allowance reports the remaining spender allowance.
func (n *Node) Allowance(owner, spender [20]byte, symbol string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Allowance(owner, spender, symbol)
}

// TransferFrom spends an allowance on behalf of the owner.
func (n *Node) TransferFrom(spender, from, to [20]byte, symbol string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.TransferFrom(spender, from, to, symbol, amount)
}

// Mint issues new supply to the recipient. The caller must hold the minter
// role.
func (n *Node) Mint(caller, to [20]byte, symbol string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Mint(caller, to, symbol, amount)
}

// TokenInfo returns the metadata for a registered token.
func (n *Node) TokenInfo(symbol string) (*token.Metadata, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	normalized, err := token.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	meta, ok, err := n.manager.Token(normalized)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, token.ErrUnknownToken
	}
	return meta, nil
}

// TokenList returns the registered token symbols in registration order.
func (n *Node) TokenList() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.manager.TokenList()
}

// --- amm ---

// CreatePool registers an empty constant-product pool for the pair.
func (n *Node) CreatePool(tokenA, tokenB string) ([32]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swap.CreatePool(tokenA, tokenB)
}

// PoolInfo returns the pool record for the pair.
func (n *Node) PoolInfo(tokenA, tokenB string) (*amm.Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swap.Pool(tokenA, tokenB)
}

// AddLiquidity deposits a balanced pair of tokens and mints LP shares.
func (n *Node) AddLiquidity(provider [20]byte, tokenA, tokenB string, desiredA, desiredB, minA, minB *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swap.AddLiquidity(provider, tokenA, tokenB, desiredA, desiredB, minA, minB)
}

// RemoveLiquidity burns LP shares for the pro-rata reserves.
func (n *Node) RemoveLiquidity(provider [20]byte, tokenA, tokenB string, shares, minA, minB *big.Int) (*big.Int, *big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swap.RemoveLiquidity(provider, tokenA, tokenB, shares, minA, minB)
}

// Swap trades tokenIn for tokenOut through the pair pool.
func (n *Node) Swap(trader [20]byte, tokenIn, tokenOut string, amountIn, minOut *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swap.Swap(trader, tokenIn, tokenOut, amountIn, minOut)
}

// LPShares reports the provider's share balance in the pair pool.
func (n *Node) LPShares(provider [20]byte, tokenA, tokenB string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swap.SharesOf(tokenA, tokenB, provider)
}

// QuoteSwap prices a hypothetical swap against explicit reserves.
func (n *Node) QuoteSwap(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swap.GetAmountOut(amountIn, reserveIn, reserveOut)
}

// --- stake ---

// Stake locks base tokens into the staking vault.
func (n *Node) Stake(staker [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.Stake(staker, amount)
}

// Unstake releases staked tokens after settling accrual.
func (n *Node) Unstake(staker [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.Unstake(staker, amount)
}

// ClaimStakeRewards mints the accrued staking rewards.
func (n *Node) ClaimStakeRewards(staker [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.ClaimRewards(staker)
}

// PendingStakeRewards reports unclaimed staking accrual.
func (n *Node) PendingStakeRewards(staker [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.PendingRewards(staker)
}

// StakedAmount reports the current staked position.
func (n *Node) StakedAmount(staker [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.StakedAmount(staker)
}

// SetStakeRate adjusts the staking APY. Admin only.
func (n *Node) SetStakeRate(caller [20]byte, rateBps uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.SetAnnualRate(caller, rateBps)
}

// --- farm ---

// AddFarmPool registers a farm pool for the staked token. Admin only.
func (n *Node) AddFarmPool(caller [20]byte, allocPoint uint64, stakedToken string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.farming.AddPool(caller, allocPoint, stakedToken)
}

// FarmDeposit stakes tokens into a farm pool.
func (n *Node) FarmDeposit(user [20]byte, poolID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.farming.Deposit(user, poolID, amount)
}

// FarmWithdraw removes staked tokens from a farm pool.
func (n *Node) FarmWithdraw(user [20]byte, poolID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.farming.Withdraw(user, poolID, amount)
}

// FarmUpdatePool settles a farm pool's accumulator up to the current time.
func (n *Node) FarmUpdatePool(poolID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.farming.UpdatePool(poolID)
}

// FarmHarvest pays the user's pending farm rewards.
func (n *Node) FarmHarvest(user [20]byte, poolID uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.farming.Harvest(user, poolID)
}

// FarmPending reports the user's unclaimed farm rewards.
func (n *Node) FarmPending(user [20]byte, poolID uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.farming.PendingReward(poolID, user)
}

// FarmPoolInfo returns the farm pool record.
func (n *Node) FarmPoolInfo(poolID uint64) (*farm.Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.farming.PoolInfo(poolID)
}

// --- loan ---

// RequestLoan opens a collateral-free loan request.
func (n *Node) RequestLoan(borrower [20]byte, symbol string, principal *big.Int, rateBps, duration uint64) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.RequestLoan(borrower, symbol, principal, rateBps, duration)
}

// FundLoan funds an open loan request.
func (n *Node) FundLoan(lender [20]byte, loanID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.FundLoan(lender, loanID)
}

// RepayLoan settles principal plus interest back to the lender.
func (n *Node) RepayLoan(borrower [20]byte, loanID uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.RepayLoan(borrower, loanID)
}

// MarkLoanDefault closes an overdue loan as defaulted.
func (n *Node) MarkLoanDefault(lender [20]byte, loanID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.MarkDefault(lender, loanID)
}

// LoanInfo returns one loan record.
func (n *Node) LoanInfo(loanID uint64) (*loan.Loan, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Get(loanID)
}

// LoansOf lists the loan ids an address participates in.
func (n *Node) LoansOf(addr [20]byte) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.LoansOf(addr)
}

// --- identity / merchant / bills ---

// RegisterAlias binds a username to the address.
func (n *Node) RegisterAlias(addr [20]byte, alias string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.aliases.Register(addr, alias)
}

// ResolveAlias returns the address bound to a username.
func (n *Node) ResolveAlias(alias string) ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.aliases.Resolve(alias)
}

// RegisterMerchant enrolls a merchant in the cashback program. Admin only.
func (n *Node) RegisterMerchant(caller, merchantAddr [20]byte, cashbackBps uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.merchants.Register(caller, merchantAddr, cashbackBps)
}

// PayMerchant pays a registered merchant and mints the buyer's cashback.
func (n *Node) PayMerchant(buyer, merchantAddr [20]byte, symbol string, amount *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.merchants.Pay(buyer, merchantAddr, symbol, amount)
}

// AddBillType whitelists a biller. Admin only.
func (n *Node) AddBillType(caller [20]byte, id string, payee [20]byte) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.billers.AddBillType(caller, id, payee)
}

// RemoveBillType delists a biller. Admin only.
func (n *Node) RemoveBillType(caller [20]byte, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.billers.RemoveBillType(caller, id)
}

// PayBill forwards a payment to a whitelisted biller.
func (n *Node) PayBill(payer [20]byte, id, symbol string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.billers.PayBill(payer, id, symbol, amount)
}

// BillTypes lists the whitelisted bill types.
func (n *Node) BillTypes() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.billers.BillTypes()
}

// Package escrow pools investor funds for one invoice factoring deal until a
// funding target is met, then allows a single release or an administrative
// default.
package escrow

import (
	"fmt"

	"github.com/yourusername/invoice-factoring/ledger"
)

// Kind is the contract kind escrow instances are deployed under.
const Kind = "escrow"

// MaxDiscountRate is 100.00% in basis points.
const MaxDiscountRate = 10000

type Status string

const (
	StatusPending  Status = "Pending"
	StatusFunded   Status = "Funded"
	StatusReleased Status = "Released"
	StatusDefault  Status = "Default"
)

var (
	keyAdmin          = ledger.Sym("ADMIN")
	keyInvoiceToken   = ledger.Sym("INV_TOKEN")
	keyFundRecipient  = ledger.Sym("SMB_ADDR")
	keyTotalAmount    = ledger.Sym("TOT_AMT")
	keyDiscountRate   = ledger.Sym("DISC_RATE")
	keyTotalDeposited = ledger.Sym("TOT_DEP")
	keyStatus         = ledger.Sym("STATUS")
)

func depositKey(investor ledger.Address) ledger.Key {
	return ledger.Pair("DEPOSIT", investor.String())
}

// Config is the immutable part of an escrow, fixed at initialization.
type Config struct {
	Admin         ledger.Address `json:"admin"`
	InvoiceToken  ledger.Address `json:"invoice_token"`
	FundRecipient ledger.Address `json:"fund_recipient"`
	TotalAmount   int64          `json:"total_amount"`
	DiscountRate  int64          `json:"discount_rate"`
}

type DepositEvent struct {
	Investor       ledger.Address `json:"investor"`
	Amount         int64          `json:"amount"`
	TotalDeposited int64          `json:"total_deposited"`
}

type StatusEvent struct {
	By             ledger.Address `json:"by"`
	Status         Status         `json:"status"`
	TotalDeposited int64          `json:"total_deposited"`
}

// Contract is an escrow instance bound to the current invocation.
type Contract struct {
	env *ledger.Env
}

// Bind attaches to a deployed escrow inside tx.
func Bind(tx *ledger.Tx, id ledger.Address) (*Contract, error) {
	env, err := tx.Bind(id, Kind)
	if err != nil {
		return nil, err
	}
	return &Contract{env: env}, nil
}

func (c *Contract) Address() ledger.Address { return c.env.Address() }

func (c *Contract) Initialize(admin, invoiceToken, fundRecipient ledger.Address, totalAmount, discountRate int64) error {
	if err := c.env.RequireAuth(admin); err != nil {
		return err
	}
	initialized, err := c.env.Has(keyAdmin)
	if err != nil {
		return err
	}
	if initialized {
		return fmt.Errorf("escrow %s: %w", c.Address(), ledger.ErrAlreadyInitialized)
	}
	if totalAmount <= 0 {
		return fmt.Errorf("%w: total_amount must be positive", ledger.ErrInvalidArgument)
	}
	if discountRate < 0 || discountRate > MaxDiscountRate {
		return fmt.Errorf("%w: discount_rate must be between 0 and %d basis points", ledger.ErrInvalidArgument, MaxDiscountRate)
	}

	writes := []struct {
		key ledger.Key
		val any
	}{
		{keyAdmin, admin},
		{keyInvoiceToken, invoiceToken},
		{keyFundRecipient, fundRecipient},
		{keyTotalAmount, totalAmount},
		{keyDiscountRate, discountRate},
		{keyTotalDeposited, int64(0)},
		{keyStatus, StatusPending},
	}
	for _, w := range writes {
		if err := c.env.Set(w.key, w.val); err != nil {
			return err
		}
	}
	return nil
}

// Deposit adds amount to the investor's stake. The escrow becomes Funded once
// the running total meets the target; deposits past the target are accepted.
func (c *Contract) Deposit(investor ledger.Address, amount int64) error {
	if err := c.env.RequireAuth(investor); err != nil {
		return err
	}
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	status, err := c.Status()
	if err != nil {
		return err
	}
	if status != StatusPending && status != StatusFunded {
		return fmt.Errorf("%w: escrow is %s and not accepting deposits", ledger.ErrInvalidState, status)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}

	total, err := c.TotalDeposited()
	if err != nil {
		return err
	}
	newTotal, err := ledger.AddAmount(total, amount)
	if err != nil {
		return err
	}
	prior, err := c.DepositOf(investor)
	if err != nil {
		return err
	}
	stake, err := ledger.AddAmount(prior, amount)
	if err != nil {
		return err
	}

	if err := c.env.Set(keyTotalDeposited, newTotal); err != nil {
		return err
	}
	if err := c.env.Set(depositKey(investor), stake); err != nil {
		return err
	}
	if err := c.env.Publish("deposit", DepositEvent{Investor: investor, Amount: amount, TotalDeposited: newTotal}); err != nil {
		return err
	}
	if newTotal >= cfg.TotalAmount && status == StatusPending {
		return c.setStatus(investor, StatusFunded, newTotal)
	}
	return nil
}

// ReleasePayment moves a Funded escrow to Released. The stored admin is
// trusted by identity alone; any other verifier must present a credential.
func (c *Contract) ReleasePayment(verifier ledger.Address) error {
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	if verifier != cfg.Admin {
		if err := c.env.RequireAuth(verifier); err != nil {
			return err
		}
	}
	status, err := c.Status()
	if err != nil {
		return err
	}
	if status != StatusFunded {
		return fmt.Errorf("%w: escrow is %s, not Funded", ledger.ErrInvalidState, status)
	}
	total, err := c.TotalDeposited()
	if err != nil {
		return err
	}
	return c.setStatus(verifier, StatusReleased, total)
}

// HandleDefault marks the deal as defaulted. Unlike ReleasePayment it has no
// funding precondition: Pending, Funded and Default all accept it, and a
// repeated default is a no-op transition. The one exception is Released,
// which is terminal: a released escrow has already paid out, so defaulting it
// would move it backward and is refused with ErrInvalidState.
func (c *Contract) HandleDefault(admin ledger.Address) error {
	if err := c.env.RequireAuth(admin); err != nil {
		return err
	}
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	if admin != cfg.Admin {
		return fmt.Errorf("%w: %s is not the escrow admin", ledger.ErrUnauthorized, admin)
	}
	status, err := c.Status()
	if err != nil {
		return err
	}
	if status == StatusReleased {
		return fmt.Errorf("%w: escrow already released", ledger.ErrInvalidState)
	}
	total, err := c.TotalDeposited()
	if err != nil {
		return err
	}
	return c.setStatus(admin, StatusDefault, total)
}

func (c *Contract) Status() (Status, error) {
	var s Status
	ok, err := c.env.Get(keyStatus, &s)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", c.notInitialized()
	}
	return s, nil
}

func (c *Contract) TotalDeposited() (int64, error) {
	var total int64
	ok, err := c.env.Get(keyTotalDeposited, &total)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, c.notInitialized()
	}
	return total, nil
}

// IsFullyFunded reports whether deposits have reached the target.
func (c *Contract) IsFullyFunded() (bool, error) {
	cfg, err := c.Config()
	if err != nil {
		return false, err
	}
	total, err := c.TotalDeposited()
	if err != nil {
		return false, err
	}
	return total >= cfg.TotalAmount, nil
}

// DepositOf returns an investor's cumulative deposit.
func (c *Contract) DepositOf(investor ledger.Address) (int64, error) {
	if ok, err := c.env.Has(keyAdmin); err != nil {
		return 0, err
	} else if !ok {
		return 0, c.notInitialized()
	}
	var amount int64
	if _, err := c.env.Get(depositKey(investor), &amount); err != nil {
		return 0, err
	}
	return amount, nil
}

func (c *Contract) Config() (Config, error) {
	var cfg Config
	ok, err := c.env.Get(keyAdmin, &cfg.Admin)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, c.notInitialized()
	}
	for key, dst := range map[ledger.Key]any{
		keyInvoiceToken:  &cfg.InvoiceToken,
		keyFundRecipient: &cfg.FundRecipient,
		keyTotalAmount:   &cfg.TotalAmount,
		keyDiscountRate:  &cfg.DiscountRate,
	} {
		if _, err := c.env.Get(key, dst); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c *Contract) setStatus(by ledger.Address, s Status, total int64) error {
	if err := c.env.Set(keyStatus, s); err != nil {
		return err
	}
	return c.env.Publish(eventTopic(s), StatusEvent{By: by, Status: s, TotalDeposited: total})
}

func (c *Contract) notInitialized() error {
	return fmt.Errorf("escrow %s: %w", c.Address(), ledger.ErrNotInitialized)
}

func eventTopic(s Status) string {
	switch s {
	case StatusFunded:
		return "funded"
	case StatusReleased:
		return "released"
	case StatusDefault:
		return "default"
	default:
		return "status"
	}
}

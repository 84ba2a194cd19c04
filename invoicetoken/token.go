// Package invoicetoken is a fungible balance ledger representing fractional
// ownership of one factored invoice.
package invoicetoken

import (
	"fmt"

	"github.com/yourusername/invoice-factoring/ledger"
)

const Kind = "invoice_token"

var (
	keyAdmin        = ledger.Sym("ADMIN")
	keyInvoiceID    = ledger.Sym("INV_ID")
	keyMetadataHash = ledger.Sym("META_HASH")
	keySupply       = ledger.Sym("SUPPLY")
)

func balanceKey(owner ledger.Address) ledger.Key {
	return ledger.Pair("BALANCE", owner.String())
}

type TransferEvent struct {
	From   ledger.Address `json:"from"`
	To     ledger.Address `json:"to"`
	Amount int64          `json:"amount"`
}

type SupplyEvent struct {
	Account     ledger.Address `json:"account"`
	Amount      int64          `json:"amount"`
	TotalSupply int64          `json:"total_supply"`
}

type Contract struct {
	env *ledger.Env
}

func Bind(tx *ledger.Tx, id ledger.Address) (*Contract, error) {
	env, err := tx.Bind(id, Kind)
	if err != nil {
		return nil, err
	}
	return &Contract{env: env}, nil
}

func (c *Contract) Address() ledger.Address { return c.env.Address() }

// Initialize credits the whole initial supply to admin.
func (c *Contract) Initialize(admin ledger.Address, invoiceID string, metadataHash []byte, totalSupply int64) error {
	if err := c.env.RequireAuth(admin); err != nil {
		return err
	}
	initialized, err := c.env.Has(keyAdmin)
	if err != nil {
		return err
	}
	if initialized {
		return fmt.Errorf("invoice token %s: %w", c.Address(), ledger.ErrAlreadyInitialized)
	}
	if totalSupply <= 0 {
		return fmt.Errorf("%w: total_supply must be positive", ledger.ErrInvalidArgument)
	}

	if err := c.env.Set(keyAdmin, admin); err != nil {
		return err
	}
	if err := c.env.Set(keyInvoiceID, invoiceID); err != nil {
		return err
	}
	if err := c.env.Set(keyMetadataHash, metadataHash); err != nil {
		return err
	}
	if err := c.env.Set(keySupply, totalSupply); err != nil {
		return err
	}
	if err := c.env.Set(balanceKey(admin), totalSupply); err != nil {
		return err
	}
	return c.env.Publish("initialized", SupplyEvent{Account: admin, Amount: totalSupply, TotalSupply: totalSupply})
}

func (c *Contract) Transfer(from, to ledger.Address, amount int64) error {
	if err := c.env.RequireAuth(from); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	fromBalance, err := c.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ledger.ErrInsufficientBalance, from, fromBalance, amount)
	}
	if from == to {
		return c.env.Publish("transfer", TransferEvent{From: from, To: to, Amount: amount})
	}
	toBalance, err := c.Balance(to)
	if err != nil {
		return err
	}
	credited, err := ledger.AddAmount(toBalance, amount)
	if err != nil {
		return err
	}

	if err := c.env.Set(balanceKey(from), fromBalance-amount); err != nil {
		return err
	}
	if err := c.env.Set(balanceKey(to), credited); err != nil {
		return err
	}
	return c.env.Publish("transfer", TransferEvent{From: from, To: to, Amount: amount})
}

// Mint creates new tokens for to. Only the stored admin may mint.
func (c *Contract) Mint(to ledger.Address, amount int64) error {
	admin, err := c.Admin()
	if err != nil {
		return err
	}
	if err := c.env.RequireAuth(admin); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	supply, err := c.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, err := ledger.AddAmount(supply, amount)
	if err != nil {
		return err
	}
	balance, err := c.Balance(to)
	if err != nil {
		return err
	}
	// balance <= supply, so this cannot overflow once newSupply did not
	if err := c.env.Set(keySupply, newSupply); err != nil {
		return err
	}
	if err := c.env.Set(balanceKey(to), balance+amount); err != nil {
		return err
	}
	return c.env.Publish("mint", SupplyEvent{Account: to, Amount: amount, TotalSupply: newSupply})
}

// Burn destroys tokens held by from. Supply has no floor beyond what the
// burner holds.
func (c *Contract) Burn(from ledger.Address, amount int64) error {
	if err := c.env.RequireAuth(from); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	balance, err := c.Balance(from)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ledger.ErrInsufficientBalance, from, balance, amount)
	}
	supply, err := c.TotalSupply()
	if err != nil {
		return err
	}
	if err := c.env.Set(keySupply, supply-amount); err != nil {
		return err
	}
	if err := c.env.Set(balanceKey(from), balance-amount); err != nil {
		return err
	}
	return c.env.Publish("burn", SupplyEvent{Account: from, Amount: amount, TotalSupply: supply - amount})
}

// Balance returns zero for identities that never held tokens.
func (c *Contract) Balance(owner ledger.Address) (int64, error) {
	if _, err := c.Admin(); err != nil {
		return 0, err
	}
	var balance int64
	if _, err := c.env.Get(balanceKey(owner), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (c *Contract) TotalSupply() (int64, error) {
	var supply int64
	if err := c.mustGet(keySupply, &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

func (c *Contract) InvoiceID() (string, error) {
	var id string
	if err := c.mustGet(keyInvoiceID, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Contract) MetadataHash() ([]byte, error) {
	var hash []byte
	if err := c.mustGet(keyMetadataHash, &hash); err != nil {
		return nil, err
	}
	return hash, nil
}

func (c *Contract) Admin() (ledger.Address, error) {
	var admin ledger.Address
	if err := c.mustGet(keyAdmin, &admin); err != nil {
		return "", err
	}
	return admin, nil
}

func (c *Contract) mustGet(key ledger.Key, v any) error {
	ok, err := c.env.Get(key, v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invoice token %s: %w", c.Address(), ledger.ErrNotInitialized)
	}
	return nil
}

package invoicetoken

import (
	"context"

	"github.com/yourusername/invoice-factoring/ledger"
)

// Client runs each token operation as its own host invocation.
type Client struct {
	host *ledger.Host
	id   ledger.Address
}

func NewClient(host *ledger.Host, id ledger.Address) *Client {
	return &Client{host: host, id: id}
}

func Deploy(ctx context.Context, host *ledger.Host) (*Client, error) {
	id, err := host.Deploy(ctx, Kind)
	if err != nil {
		return nil, err
	}
	return NewClient(host, id), nil
}

func (c *Client) Address() ledger.Address { return c.id }

func (c *Client) Initialize(ctx context.Context, auth ledger.Authorizer, admin ledger.Address, invoiceID string, metadataHash []byte, totalSupply int64) error {
	return c.invoke(ctx, auth, func(t *Contract) error {
		return t.Initialize(admin, invoiceID, metadataHash, totalSupply)
	})
}

func (c *Client) Transfer(ctx context.Context, auth ledger.Authorizer, from, to ledger.Address, amount int64) error {
	return c.invoke(ctx, auth, func(t *Contract) error { return t.Transfer(from, to, amount) })
}

func (c *Client) Mint(ctx context.Context, auth ledger.Authorizer, to ledger.Address, amount int64) error {
	return c.invoke(ctx, auth, func(t *Contract) error { return t.Mint(to, amount) })
}

func (c *Client) Burn(ctx context.Context, auth ledger.Authorizer, from ledger.Address, amount int64) error {
	return c.invoke(ctx, auth, func(t *Contract) error { return t.Burn(from, amount) })
}

func (c *Client) Balance(ctx context.Context, owner ledger.Address) (balance int64, err error) {
	err = c.view(ctx, func(t *Contract) error {
		balance, err = t.Balance(owner)
		return err
	})
	return balance, err
}

func (c *Client) TotalSupply(ctx context.Context) (supply int64, err error) {
	err = c.view(ctx, func(t *Contract) error {
		supply, err = t.TotalSupply()
		return err
	})
	return supply, err
}

func (c *Client) InvoiceID(ctx context.Context) (id string, err error) {
	err = c.view(ctx, func(t *Contract) error {
		id, err = t.InvoiceID()
		return err
	})
	return id, err
}

func (c *Client) MetadataHash(ctx context.Context) (hash []byte, err error) {
	err = c.view(ctx, func(t *Contract) error {
		hash, err = t.MetadataHash()
		return err
	})
	return hash, err
}

func (c *Client) Admin(ctx context.Context) (admin ledger.Address, err error) {
	err = c.view(ctx, func(t *Contract) error {
		admin, err = t.Admin()
		return err
	})
	return admin, err
}

func (c *Client) invoke(ctx context.Context, auth ledger.Authorizer, fn func(*Contract) error) error {
	return c.host.Invoke(ctx, auth, func(tx *ledger.Tx) error {
		t, err := Bind(tx, c.id)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

func (c *Client) view(ctx context.Context, fn func(*Contract) error) error {
	return c.host.View(ctx, func(tx *ledger.Tx) error {
		t, err := Bind(tx, c.id)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

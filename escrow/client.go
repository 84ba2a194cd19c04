package escrow

import (
	"context"

	"github.com/yourusername/invoice-factoring/ledger"
)

// Client runs each escrow operation as its own host invocation.
type Client struct {
	host *ledger.Host
	id   ledger.Address
}

func NewClient(host *ledger.Host, id ledger.Address) *Client {
	return &Client{host: host, id: id}
}

// Deploy creates a fresh, uninitialized escrow instance.
func Deploy(ctx context.Context, host *ledger.Host) (*Client, error) {
	id, err := host.Deploy(ctx, Kind)
	if err != nil {
		return nil, err
	}
	return NewClient(host, id), nil
}

func (c *Client) Address() ledger.Address { return c.id }

func (c *Client) Initialize(ctx context.Context, auth ledger.Authorizer, admin, invoiceToken, fundRecipient ledger.Address, totalAmount, discountRate int64) error {
	return c.invoke(ctx, auth, func(e *Contract) error {
		return e.Initialize(admin, invoiceToken, fundRecipient, totalAmount, discountRate)
	})
}

func (c *Client) Deposit(ctx context.Context, auth ledger.Authorizer, investor ledger.Address, amount int64) error {
	return c.invoke(ctx, auth, func(e *Contract) error { return e.Deposit(investor, amount) })
}

func (c *Client) ReleasePayment(ctx context.Context, auth ledger.Authorizer, verifier ledger.Address) error {
	return c.invoke(ctx, auth, func(e *Contract) error { return e.ReleasePayment(verifier) })
}

func (c *Client) HandleDefault(ctx context.Context, auth ledger.Authorizer, admin ledger.Address) error {
	return c.invoke(ctx, auth, func(e *Contract) error { return e.HandleDefault(admin) })
}

func (c *Client) Status(ctx context.Context) (s Status, err error) {
	err = c.view(ctx, func(e *Contract) error {
		s, err = e.Status()
		return err
	})
	return s, err
}

func (c *Client) TotalDeposited(ctx context.Context) (total int64, err error) {
	err = c.view(ctx, func(e *Contract) error {
		total, err = e.TotalDeposited()
		return err
	})
	return total, err
}

func (c *Client) IsFullyFunded(ctx context.Context) (funded bool, err error) {
	err = c.view(ctx, func(e *Contract) error {
		funded, err = e.IsFullyFunded()
		return err
	})
	return funded, err
}

func (c *Client) DepositOf(ctx context.Context, investor ledger.Address) (amount int64, err error) {
	err = c.view(ctx, func(e *Contract) error {
		amount, err = e.DepositOf(investor)
		return err
	})
	return amount, err
}

func (c *Client) Config(ctx context.Context) (cfg Config, err error) {
	err = c.view(ctx, func(e *Contract) error {
		cfg, err = e.Config()
		return err
	})
	return cfg, err
}

func (c *Client) invoke(ctx context.Context, auth ledger.Authorizer, fn func(*Contract) error) error {
	return c.host.Invoke(ctx, auth, func(tx *ledger.Tx) error {
		e, err := Bind(tx, c.id)
		if err != nil {
			return err
		}
		return fn(e)
	})
}

func (c *Client) view(ctx context.Context, fn func(*Contract) error) error {
	return c.host.View(ctx, func(tx *ledger.Tx) error {
		e, err := Bind(tx, c.id)
		if err != nil {
			return err
		}
		return fn(e)
	})
}

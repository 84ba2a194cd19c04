package marketplace

import (
	"context"

	"github.com/yourusername/invoice-factoring/ledger"
)

// Client runs each marketplace operation as its own host invocation.
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

func (c *Client) Initialize(ctx context.Context, auth ledger.Authorizer, admin ledger.Address) error {
	return c.invoke(ctx, auth, func(m *Contract) error { return m.Initialize(admin) })
}

func (c *Client) ListToken(ctx context.Context, auth ledger.Authorizer, admin ledger.Address, listingID string, invoiceToken, escrow ledger.Address, pricePerToken, minInvestment, totalAvailable int64) error {
	return c.invoke(ctx, auth, func(m *Contract) error {
		return m.ListToken(admin, listingID, invoiceToken, escrow, pricePerToken, minInvestment, totalAvailable)
	})
}

func (c *Client) Purchase(ctx context.Context, auth ledger.Authorizer, investor ledger.Address, listingID string, amount int64) error {
	return c.invoke(ctx, auth, func(m *Contract) error { return m.Purchase(investor, listingID, amount) })
}

func (c *Client) RemoveListing(ctx context.Context, auth ledger.Authorizer, admin ledger.Address, listingID string) error {
	return c.invoke(ctx, auth, func(m *Contract) error { return m.RemoveListing(admin, listingID) })
}

func (c *Client) Listing(ctx context.Context, listingID string) (l Listing, err error) {
	err = c.view(ctx, func(m *Contract) error {
		l, err = m.Listing(listingID)
		return err
	})
	return l, err
}

func (c *Client) ActiveListings(ctx context.Context) (ids []string, err error) {
	err = c.view(ctx, func(m *Contract) error {
		ids, err = m.ActiveListings()
		return err
	})
	return ids, err
}

func (c *Client) Admin(ctx context.Context) (admin ledger.Address, err error) {
	err = c.view(ctx, func(m *Contract) error {
		admin, err = m.Admin()
		return err
	})
	return admin, err
}

func (c *Client) invoke(ctx context.Context, auth ledger.Authorizer, fn func(*Contract) error) error {
	return c.host.Invoke(ctx, auth, func(tx *ledger.Tx) error {
		m, err := Bind(tx, c.id)
		if err != nil {
			return err
		}
		return fn(m)
	})
}

func (c *Client) view(ctx context.Context, fn func(*Contract) error) error {
	return c.host.View(ctx, func(tx *ledger.Tx) error {
		m, err := Bind(tx, c.id)
		if err != nil {
			return err
		}
		return fn(m)
	})
}

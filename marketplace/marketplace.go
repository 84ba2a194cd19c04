// Package marketplace lists invoice tokens for sale and meters purchases
// against each listing's availability. Purchases are bookkeeping only: moving
// tokens and funds is left to the caller (see package factoring).
package marketplace

import (
	"fmt"

	"github.com/yourusername/invoice-factoring/ledger"
)

const Kind = "marketplace"

// MaxListingIDLength bounds caller-supplied listing ids.
const MaxListingIDLength = 64

var keyAdmin = ledger.Sym("ADMIN")

// ErrAlreadyExists is returned when a listing id has been used before.
var ErrAlreadyExists = fmt.Errorf("%w: listing already exists", ledger.ErrInvalidState)

func listingKey(id string) ledger.Key { return ledger.Pair("LISTING", id) }

type Listing struct {
	ID             string         `json:"id"`
	InvoiceToken   ledger.Address `json:"invoice_token"`
	Escrow         ledger.Address `json:"escrow"`
	PricePerToken  int64          `json:"price_per_token"`
	MinInvestment  int64          `json:"min_investment"`
	TotalAvailable int64          `json:"total_available"`
	TotalSold      int64          `json:"total_sold"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      uint64         `json:"created_at"`
}

// Remaining is what can still be purchased.
func (l Listing) Remaining() int64 { return l.TotalAvailable - l.TotalSold }

type PurchaseEvent struct {
	ListingID string         `json:"listing_id"`
	Investor  ledger.Address `json:"investor"`
	Amount    int64          `json:"amount"`
	TotalSold int64          `json:"total_sold"`
}

type ListingEvent struct {
	ListingID string         `json:"listing_id"`
	By        ledger.Address `json:"by"`
}

type Contract struct {
	env   *ledger.Env
	index activeIndex
}

func Bind(tx *ledger.Tx, id ledger.Address) (*Contract, error) {
	env, err := tx.Bind(id, Kind)
	if err != nil {
		return nil, err
	}
	return &Contract{env: env, index: activeIndex{env: env}}, nil
}

func (c *Contract) Address() ledger.Address { return c.env.Address() }

func (c *Contract) Initialize(admin ledger.Address) error {
	if err := c.env.RequireAuth(admin); err != nil {
		return err
	}
	initialized, err := c.env.Has(keyAdmin)
	if err != nil {
		return err
	}
	if initialized {
		return fmt.Errorf("marketplace %s: %w", c.Address(), ledger.ErrAlreadyInitialized)
	}
	return c.env.Set(keyAdmin, admin)
}

// ListToken publishes a new active listing. Listing ids are never reused, so
// a listing that went inactive stays inactive.
func (c *Contract) ListToken(admin ledger.Address, listingID string, invoiceToken, escrow ledger.Address, pricePerToken, minInvestment, totalAvailable int64) error {
	if err := c.requireAdmin(admin); err != nil {
		return err
	}
	if listingID == "" || len(listingID) > MaxListingIDLength {
		return fmt.Errorf("%w: listing id must be 1 to %d bytes", ledger.ErrInvalidArgument, MaxListingIDLength)
	}
	switch {
	case pricePerToken <= 0:
		return fmt.Errorf("%w: price_per_token must be positive", ledger.ErrInvalidArgument)
	case minInvestment < 0:
		return fmt.Errorf("%w: min_investment must not be negative", ledger.ErrInvalidArgument)
	case totalAvailable <= 0:
		return fmt.Errorf("%w: total_available must be positive", ledger.ErrInvalidArgument)
	}
	exists, err := c.env.Has(listingKey(listingID))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, listingID)
	}

	listing := Listing{
		ID:             listingID,
		InvoiceToken:   invoiceToken,
		Escrow:         escrow,
		PricePerToken:  pricePerToken,
		MinInvestment:  minInvestment,
		TotalAvailable: totalAvailable,
		IsActive:       true,
		CreatedAt:      c.env.Timestamp(),
	}
	if err := c.env.Set(listingKey(listingID), listing); err != nil {
		return err
	}
	if err := c.index.append(listingID); err != nil {
		return err
	}
	return c.env.Publish("listed", ListingEvent{ListingID: listingID, By: admin})
}

// Purchase records amount as sold on an active listing. A listing that sells
// out is deactivated for good.
func (c *Contract) Purchase(investor ledger.Address, listingID string, amount int64) error {
	if err := c.env.RequireAuth(investor); err != nil {
		return err
	}
	listing, err := c.Listing(listingID)
	if err != nil {
		return err
	}
	if !listing.IsActive {
		return fmt.Errorf("%w: listing %q is not active", ledger.ErrInvalidState, listingID)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	if amount < listing.MinInvestment {
		return fmt.Errorf("%w: amount %d below minimum investment %d", ledger.ErrInvalidArgument, amount, listing.MinInvestment)
	}
	if amount > listing.Remaining() {
		return fmt.Errorf("%w: %d requested, %d left", ledger.ErrInsufficientAvailability, amount, listing.Remaining())
	}

	listing.TotalSold += amount
	soldOut := listing.TotalSold >= listing.TotalAvailable
	if soldOut {
		listing.IsActive = false
	}
	if err := c.env.Set(listingKey(listingID), listing); err != nil {
		return err
	}
	if err := c.env.Publish("purchase", PurchaseEvent{ListingID: listingID, Investor: investor, Amount: amount, TotalSold: listing.TotalSold}); err != nil {
		return err
	}
	if !soldOut {
		return nil
	}
	if err := c.index.remove(listingID); err != nil {
		return err
	}
	return c.env.Publish("sold_out", ListingEvent{ListingID: listingID, By: investor})
}

// RemoveListing deactivates a listing. Removing an inactive listing is a no-op.
func (c *Contract) RemoveListing(admin ledger.Address, listingID string) error {
	if err := c.requireAdmin(admin); err != nil {
		return err
	}
	listing, err := c.Listing(listingID)
	if err != nil {
		return err
	}
	if !listing.IsActive {
		return nil
	}
	listing.IsActive = false
	if err := c.env.Set(listingKey(listingID), listing); err != nil {
		return err
	}
	if err := c.index.remove(listingID); err != nil {
		return err
	}
	return c.env.Publish("removed", ListingEvent{ListingID: listingID, By: admin})
}

func (c *Contract) Listing(listingID string) (Listing, error) {
	if _, err := c.Admin(); err != nil {
		return Listing{}, err
	}
	var l Listing
	ok, err := c.env.Get(listingKey(listingID), &l)
	if err != nil {
		return Listing{}, err
	}
	if !ok {
		return Listing{}, fmt.Errorf("%w: listing %q", ledger.ErrNotFound, listingID)
	}
	return l, nil
}

// ActiveListings returns active listing ids in the order they were listed.
func (c *Contract) ActiveListings() ([]string, error) {
	if _, err := c.Admin(); err != nil {
		return nil, err
	}
	return c.index.list()
}

func (c *Contract) Admin() (ledger.Address, error) {
	var admin ledger.Address
	ok, err := c.env.Get(keyAdmin, &admin)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("marketplace %s: %w", c.Address(), ledger.ErrNotInitialized)
	}
	return admin, nil
}

func (c *Contract) requireAdmin(admin ledger.Address) error {
	if err := c.env.RequireAuth(admin); err != nil {
		return err
	}
	stored, err := c.Admin()
	if err != nil {
		return err
	}
	if admin != stored {
		return fmt.Errorf("%w: %s is not the marketplace admin", ledger.ErrUnauthorized, admin)
	}
	return nil
}

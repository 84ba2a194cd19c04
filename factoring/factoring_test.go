package factoring

import (
	"context"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/invoice-factoring/escrow"
	"github.com/yourusername/invoice-factoring/invoicetoken"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/marketplace"
)

func newAccount() ledger.Address {
	return ledger.Address(keypair.MustRandom().Address())
}

type fixture struct {
	ctx      context.Context
	host     *ledger.Host
	svc      *Service
	market   *marketplace.Client
	operator ledger.Address
	issuer   ledger.Address
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	host := ledger.NewHost(ledger.NewMemoryStore())
	market, err := marketplace.Deploy(ctx, host)
	require.NoError(t, err)
	operator := newAccount()
	require.NoError(t, market.Initialize(ctx, ledger.Allow(operator), operator))
	return &fixture{
		ctx:      ctx,
		host:     host,
		svc:      NewService(host, nil),
		market:   market,
		operator: operator,
		issuer:   newAccount(),
	}
}

func (f *fixture) tokenize(t *testing.T, listingID string, face, price, min int64) Tokenization {
	t.Helper()
	out, err := f.svc.Tokenize(f.ctx, ledger.Allow(f.operator), TokenizeRequest{
		Operator:      f.operator,
		Issuer:        f.issuer,
		Marketplace:   f.market.Address(),
		ListingID:     listingID,
		InvoiceID:     "INV-" + listingID,
		Metadata:      map[string]any{"debtor": "Acme Corp", "due": "2026-12-31"},
		FaceValue:     face,
		PricePerToken: price,
		MinInvestment: min,
		DiscountRate:  300,
	})
	require.NoError(t, err)
	return out
}

func TestTokenize(t *testing.T) {
	f := setup(t)
	out := f.tokenize(t, "L1", 1000, 95, 10)
	assert.Equal(t, int64(95000), out.EscrowTarget)
	assert.True(t, out.InvoiceToken.IsContract())
	assert.True(t, out.Escrow.IsContract())

	token := invoicetoken.NewClient(f.host, out.InvoiceToken)
	supply, err := token.TotalSupply(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply)
	balance, err := token.Balance(f.ctx, f.operator)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
	id, err := token.InvoiceID(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-L1", id)
	hash, err := token.MetadataHash(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, out.MetadataHash, hash)

	cfg, err := escrow.NewClient(f.host, out.Escrow).Config(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, escrow.Config{
		Admin:         f.operator,
		InvoiceToken:  out.InvoiceToken,
		FundRecipient: f.issuer,
		TotalAmount:   95000,
		DiscountRate:  300,
	}, cfg)

	listing, err := f.market.Listing(f.ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, out.InvoiceToken, listing.InvoiceToken)
	assert.Equal(t, out.Escrow, listing.Escrow)
	assert.Equal(t, int64(1000), listing.TotalAvailable)
}

func TestTokenizeIsAtomic(t *testing.T) {
	f := setup(t)
	f.tokenize(t, "L1", 1000, 95, 10)

	// the listing id is taken, so the token and escrow deployed before the
	// listing step must not survive either
	before, err := f.host.Events(f.ctx, f.market.Address())
	require.NoError(t, err)
	_, err = f.svc.Tokenize(f.ctx, ledger.Allow(f.operator), TokenizeRequest{
		Operator:      f.operator,
		Issuer:        f.issuer,
		Marketplace:   f.market.Address(),
		ListingID:     "L1",
		InvoiceID:     "INV-dup",
		FaceValue:     500,
		PricePerToken: 10,
	})
	assert.ErrorIs(t, err, marketplace.ErrAlreadyExists)

	after, err := f.host.Events(f.ctx, f.market.Address())
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestTokenizeRejections(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name string
		auth ledger.Authorizer
		req  TokenizeRequest
		err  error
	}{
		{
			name: "zero face value",
			auth: ledger.Allow(f.operator),
			req:  TokenizeRequest{Operator: f.operator, Marketplace: f.market.Address(), ListingID: "X", PricePerToken: 1},
			err:  ledger.ErrInvalidArgument,
		},
		{
			name: "cost overflows",
			auth: ledger.Allow(f.operator),
			req:  TokenizeRequest{Operator: f.operator, Marketplace: f.market.Address(), ListingID: "X", FaceValue: 1 << 62, PricePerToken: 4},
			err:  ledger.ErrInvalidArgument,
		},
		{
			name: "unknown marketplace",
			auth: ledger.Allow(f.operator),
			req:  TokenizeRequest{Operator: f.operator, Marketplace: ledger.ContractAddress([]byte("nope")), ListingID: "X", FaceValue: 10, PricePerToken: 1},
			err:  ledger.ErrNotFound,
		},
		{
			name: "operator is not marketplace admin",
			auth: ledger.AllowAll(),
			req:  TokenizeRequest{Operator: newAccount(), Marketplace: f.market.Address(), ListingID: "X", FaceValue: 10, PricePerToken: 1},
			err:  ledger.ErrUnauthorized,
		},
		{
			name: "missing operator credential",
			auth: ledger.Allow(),
			req:  TokenizeRequest{Operator: f.operator, Marketplace: f.market.Address(), ListingID: "X", FaceValue: 10, PricePerToken: 1},
			err:  ledger.ErrUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Tokenize(f.ctx, tt.auth, tt.req)
			assert.ErrorIs(t, err, tt.err)
			_, err = f.market.Listing(f.ctx, "X")
			assert.ErrorIs(t, err, ledger.ErrNotFound)
		})
	}
}

func TestInvestUntilFunded(t *testing.T) {
	f := setup(t)
	out := f.tokenize(t, "L1", 1000, 95, 100)
	alice, bob := newAccount(), newAccount()

	r, err := f.svc.Invest(f.ctx, ledger.Allow(alice, f.operator), InvestRequest{
		Marketplace: f.market.Address(), ListingID: "L1", Investor: alice, Seller: f.operator, Amount: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(38000), r.Cost)
	assert.Equal(t, int64(400), r.TotalSold)
	assert.Equal(t, escrow.StatusPending, r.EscrowStatus)

	r, err = f.svc.Invest(f.ctx, ledger.Allow(bob, f.operator), InvestRequest{
		Marketplace: f.market.Address(), ListingID: "L1", Investor: bob, Seller: f.operator, Amount: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(57000), r.Cost)
	assert.Equal(t, escrow.StatusFunded, r.EscrowStatus)

	token := invoicetoken.NewClient(f.host, out.InvoiceToken)
	for addr, want := range map[ledger.Address]int64{f.operator: 0, alice: 400, bob: 600} {
		got, err := token.Balance(f.ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	esc := escrow.NewClient(f.host, out.Escrow)
	total, err := esc.TotalDeposited(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, out.EscrowTarget, total)
	deposit, err := esc.DepositOf(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(38000), deposit)

	listing, err := f.market.Listing(f.ctx, "L1")
	require.NoError(t, err)
	assert.False(t, listing.IsActive)
	active, err := f.market.ActiveListings(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestInvestIsAtomic(t *testing.T) {
	f := setup(t)
	out := f.tokenize(t, "L1", 1000, 95, 10)
	investor := newAccount()

	// the seller has no tokens: the purchase recorded before the transfer
	// fails must be rolled back
	seller := newAccount()
	_, err := f.svc.Invest(f.ctx, ledger.Allow(investor, seller), InvestRequest{
		Marketplace: f.market.Address(), ListingID: "L1", Investor: investor, Seller: seller, Amount: 100,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// without the seller's credential nothing moves either
	_, err = f.svc.Invest(f.ctx, ledger.Allow(investor), InvestRequest{
		Marketplace: f.market.Address(), ListingID: "L1", Investor: investor, Seller: f.operator, Amount: 100,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	listing, err := f.market.Listing(f.ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), listing.TotalSold)
	balance, err := invoicetoken.NewClient(f.host, out.InvoiceToken).Balance(f.ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	total, err := escrow.NewClient(f.host, out.Escrow).TotalDeposited(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestInvestAfterRelease(t *testing.T) {
	f := setup(t)
	out := f.tokenize(t, "L1", 100, 10, 1)
	investor := newAccount()

	_, err := f.svc.Invest(f.ctx, ledger.Allow(investor, f.operator), InvestRequest{
		Marketplace: f.market.Address(), ListingID: "L1", Investor: investor, Seller: f.operator, Amount: 50,
	})
	require.NoError(t, err)
	require.NoError(t, escrow.NewClient(f.host, out.Escrow).HandleDefault(f.ctx, ledger.Allow(f.operator), f.operator))

	_, err = f.svc.Invest(f.ctx, ledger.Allow(investor, f.operator), InvestRequest{
		Marketplace: f.market.Address(), ListingID: "L1", Investor: investor, Seller: f.operator, Amount: 10,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	listing, err := f.market.Listing(f.ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), listing.TotalSold)
}

func TestMetadataHashIsStable(t *testing.T) {
	a, err := MetadataHash(map[string]any{"debtor": "Acme", "amount": 10})
	require.NoError(t, err)
	b, err := MetadataHash(map[string]any{"amount": 10, "debtor": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	c, err := MetadataHash(map[string]any{"debtor": "Acme", "amount": 11})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = MetadataHash(map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestCost(t *testing.T) {
	cost, err := Cost(400, 95)
	require.NoError(t, err)
	assert.Equal(t, int64(38000), cost)

	_, err = Cost(0, 95)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	_, err = Cost(1<<40, 1<<40)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	assert.Equal(t, "2.5", DiscountPercent(250))
	assert.Equal(t, "100", DiscountPercent(10000))
}

package invoicetoken

import (
	"context"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/invoice-factoring/ledger"
)

func newAccount() ledger.Address {
	return ledger.Address(keypair.MustRandom().Address())
}

var metadataHash = []byte{1, 2, 3, 4}

func setup(t *testing.T, supply int64) (context.Context, *Client, ledger.Address) {
	t.Helper()
	ctx := context.Background()
	host := ledger.NewHost(ledger.NewMemoryStore())
	client, err := Deploy(ctx, host)
	require.NoError(t, err)
	admin := newAccount()
	require.NoError(t, client.Initialize(ctx, ledger.Allow(admin), admin, "INV-001", metadataHash, supply))
	return ctx, client, admin
}

// assertConserved checks total supply against the sum of the given holders.
func assertConserved(t *testing.T, ctx context.Context, c *Client, holders ...ledger.Address) {
	t.Helper()
	var sum int64
	for _, h := range holders {
		b, err := c.Balance(ctx, h)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b, int64(0))
		sum += b
	}
	supply, err := c.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, supply, sum)
}

func TestInitialize(t *testing.T) {
	ctx, client, admin := setup(t, 1000)

	balance, err := client.Balance(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	supply, err := client.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply)

	id, err := client.InvoiceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-001", id)

	hash, err := client.MetadataHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, metadataHash, hash)

	got, err := client.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin, got)

	err = client.Initialize(ctx, ledger.Allow(admin), admin, "INV-002", nil, 5)
	assert.ErrorIs(t, err, ledger.ErrAlreadyInitialized)
}

func TestInitializeValidation(t *testing.T) {
	ctx := context.Background()
	host := ledger.NewHost(ledger.NewMemoryStore())
	client, err := Deploy(ctx, host)
	require.NoError(t, err)
	admin := newAccount()

	assert.ErrorIs(t, client.Initialize(ctx, ledger.Allow(admin), admin, "INV", nil, 0), ledger.ErrInvalidArgument)
	assert.ErrorIs(t, client.Initialize(ctx, ledger.Allow(admin), admin, "INV", nil, -10), ledger.ErrInvalidArgument)
	assert.ErrorIs(t, client.Initialize(ctx, ledger.Allow(newAccount()), admin, "INV", nil, 10), ledger.ErrUnauthorized)

	_, err = client.TotalSupply(ctx)
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
	_, err = client.Balance(ctx, admin)
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
}

func TestTransfer(t *testing.T) {
	ctx, client, admin := setup(t, 1000)
	user := newAccount()

	require.NoError(t, client.Transfer(ctx, ledger.Allow(admin), admin, user, 500))

	b, err := client.Balance(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(500), b)
	b, err = client.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(500), b)
	assertConserved(t, ctx, client, admin, user)
}

func TestTransferRejections(t *testing.T) {
	tests := []struct {
		name   string
		signer func(admin ledger.Address) ledger.Authorizer
		amount int64
		err    error
	}{
		{name: "exceeds balance", signer: func(a ledger.Address) ledger.Authorizer { return ledger.Allow(a) }, amount: 1001, err: ledger.ErrInsufficientBalance},
		{name: "zero", signer: func(a ledger.Address) ledger.Authorizer { return ledger.Allow(a) }, amount: 0, err: ledger.ErrInvalidArgument},
		{name: "negative", signer: func(a ledger.Address) ledger.Authorizer { return ledger.Allow(a) }, amount: -1, err: ledger.ErrInvalidArgument},
		{name: "no credential", signer: func(ledger.Address) ledger.Authorizer { return ledger.Allow() }, amount: 10, err: ledger.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, client, admin := setup(t, 1000)
			user := newAccount()

			err := client.Transfer(ctx, tt.signer(admin), admin, user, tt.amount)
			assert.ErrorIs(t, err, tt.err)

			b, err := client.Balance(ctx, admin)
			require.NoError(t, err)
			assert.Equal(t, int64(1000), b)
			b, err = client.Balance(ctx, user)
			require.NoError(t, err)
			assert.Zero(t, b)
		})
	}
}

func TestTransferToSelf(t *testing.T) {
	ctx, client, admin := setup(t, 1000)

	require.NoError(t, client.Transfer(ctx, ledger.Allow(admin), admin, admin, 400))
	b, err := client.Balance(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b)
	assertConserved(t, ctx, client, admin)

	err = client.Transfer(ctx, ledger.Allow(admin), admin, admin, 1001)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestMint(t *testing.T) {
	ctx, client, admin := setup(t, 1000)
	user := newAccount()

	require.NoError(t, client.Mint(ctx, ledger.Allow(admin), user, 250))
	b, err := client.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(250), b)
	supply, err := client.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), supply)
	assertConserved(t, ctx, client, admin, user)

	// the recipient cannot mint for itself
	err = client.Mint(ctx, ledger.Allow(user), user, 250)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.ErrorIs(t, client.Mint(ctx, ledger.Allow(admin), user, 0), ledger.ErrInvalidArgument)
	assertConserved(t, ctx, client, admin, user)
}

func TestBurn(t *testing.T) {
	ctx, client, admin := setup(t, 1000)
	user := newAccount()
	require.NoError(t, client.Transfer(ctx, ledger.Allow(admin), admin, user, 300))

	require.NoError(t, client.Burn(ctx, ledger.Allow(user), user, 100))
	supply, err := client.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), supply)
	assertConserved(t, ctx, client, admin, user)

	assert.ErrorIs(t, client.Burn(ctx, ledger.Allow(user), user, 201), ledger.ErrInsufficientBalance)
	assert.ErrorIs(t, client.Burn(ctx, ledger.Allow(admin), user, 10), ledger.ErrUnauthorized)
	assert.ErrorIs(t, client.Burn(ctx, ledger.Allow(user), user, -3), ledger.ErrInvalidArgument)

	// burning everything leaves a zero supply
	require.NoError(t, client.Burn(ctx, ledger.Allow(user), user, 200))
	require.NoError(t, client.Burn(ctx, ledger.Allow(admin), admin, 700))
	supply, err = client.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Zero(t, supply)
	assertConserved(t, ctx, client, admin, user)
}

func TestConservationAcrossOperations(t *testing.T) {
	ctx, client, admin := setup(t, 10_000)
	a, b := newAccount(), newAccount()
	holders := []ledger.Address{admin, a, b}

	ops := []func() error{
		func() error { return client.Transfer(ctx, ledger.Allow(admin), admin, a, 3000) },
		func() error { return client.Mint(ctx, ledger.Allow(admin), b, 1500) },
		func() error { return client.Transfer(ctx, ledger.Allow(a), a, b, 1200) },
		func() error { return client.Burn(ctx, ledger.Allow(b), b, 700) },
		func() error { return client.Transfer(ctx, ledger.Allow(b), b, admin, 2000) },
	}
	for _, op := range ops {
		require.NoError(t, op())
		assertConserved(t, ctx, client, holders...)
	}
}

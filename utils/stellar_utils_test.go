package utils

import (
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignTx(t *testing.T) {
	// Generate a random keypair for testing
	kp := keypair.MustRandom()
	secret := kp.Seed()
	address := kp.Address()

	client := NewStellarClient("https://horizon-testnet.stellar.org", network.TestNetworkPassphrase)
	sourceAccount := &txnbuild.SimpleAccount{AccountID: address, Sequence: 1}
	tx, err := client.BuildPaymentTx(sourceAccount, keypair.MustRandom().Address(), "XLM", "", "10")
	require.NoError(t, err)

	envelopeXDR, err := tx.Base64()
	require.NoError(t, err)

	t.Run("Valid signature", func(t *testing.T) {
		signedXDR, err := SignTx(envelopeXDR, secret, network.TestNetworkPassphrase)
		assert.NoError(t, err)
		assert.NotEmpty(t, signedXDR)
		assert.NotEqual(t, envelopeXDR, signedXDR)

		// Verify signature
		genericTx, err := txnbuild.TransactionFromXDR(signedXDR)
		require.NoError(t, err)
		stx, ok := genericTx.Transaction()
		require.True(t, ok)
		assert.Len(t, stx.Signatures(), 1)

		hash, err := stx.Hash(network.TestNetworkPassphrase)
		require.NoError(t, err)
		assert.NoError(t, kp.Verify(hash[:], stx.Signatures()[0].Signature))
	})

	t.Run("Invalid secret key", func(t *testing.T) {
		signedXDR, err := SignTx(envelopeXDR, "invalid_key", network.TestNetworkPassphrase)
		assert.Error(t, err)
		assert.Equal(t, envelopeXDR, signedXDR) // Should return original XDR on error
	})

	t.Run("Invalid XDR", func(t *testing.T) {
		signedXDR, err := SignTx("invalid_xdr", secret, network.TestNetworkPassphrase)
		assert.Error(t, err)
		assert.Equal(t, "invalid_xdr", signedXDR)
	})
}

func TestBuildPaymentTx(t *testing.T) {
	client := NewStellarClient("https://horizon-testnet.stellar.org", network.TestNetworkPassphrase)
	source := keypair.MustRandom().Address()
	destination := keypair.MustRandom().Address()
	issuer := keypair.MustRandom().Address()

	t.Run("Native payment", func(t *testing.T) {
		sourceAccount := &txnbuild.SimpleAccount{AccountID: source, Sequence: 1}
		tx, err := client.BuildPaymentTx(sourceAccount, destination, "XLM", "", "100")
		require.NoError(t, err)
		require.Len(t, tx.Operations(), 1)

		op := tx.Operations()[0].(*txnbuild.Payment)
		assert.Equal(t, "100", op.Amount)
		assert.Equal(t, destination, op.Destination)
		assert.IsType(t, txnbuild.NativeAsset{}, op.Asset)
		assert.Equal(t, int64(2), tx.SequenceNumber())
	})

	t.Run("Credit asset payment", func(t *testing.T) {
		sourceAccount := &txnbuild.SimpleAccount{AccountID: source, Sequence: 1}
		tx, err := client.BuildPaymentTx(sourceAccount, destination, "USDC", issuer, "50.5")
		require.NoError(t, err)

		op := tx.Operations()[0].(*txnbuild.Payment)
		asset := op.Asset.(txnbuild.CreditAsset)
		assert.Equal(t, "USDC", asset.Code)
		assert.Equal(t, issuer, asset.Issuer)
	})

	t.Run("Invalid destination", func(t *testing.T) {
		sourceAccount := &txnbuild.SimpleAccount{AccountID: source, Sequence: 1}
		_, err := client.BuildPaymentTx(sourceAccount, "GABC", "XLM", "", "1")
		assert.Error(t, err)
	})
}

func TestVerifySignature(t *testing.T) {
	kp := keypair.MustRandom()
	message := []byte("challenge")
	sig, err := kp.Sign(message)
	require.NoError(t, err)

	assert.NoError(t, VerifySignature(kp.Address(), message, sig))
	assert.Error(t, VerifySignature(kp.Address(), []byte("other"), sig))
	assert.Error(t, VerifySignature(keypair.MustRandom().Address(), message, sig))
	assert.Error(t, VerifySignature("not-an-address", message, sig))
}

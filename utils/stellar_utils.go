package utils

import (
	"fmt"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

type StellarClientInterface interface {
	ValidateAccount(accountID string) error
	LoadAccount(accountID string) (txnbuild.Account, error)
	BuildPaymentTx(source txnbuild.Account, destination, assetCode, issuer, amount string) (*txnbuild.Transaction, error)
	SubmitXDR(envelopeXDR string) (string, error)
}

type StellarClient struct {
	client            *horizonclient.Client
	networkPassphrase string
}

func NewStellarClient(horizonURL, networkPassphrase string) StellarClientInterface {
	return &StellarClient{
		client:            &horizonclient.Client{HorizonURL: horizonURL},
		networkPassphrase: networkPassphrase,
	}
}

func (s *StellarClient) ValidateAccount(accountID string) error {
	_, err := s.client.AccountDetail(horizonclient.AccountRequest{AccountID: accountID})
	if err != nil {
		return fmt.Errorf("invalid or non-existent account: %w", err)
	}
	return nil
}

func (s *StellarClient) LoadAccount(accountID string) (txnbuild.Account, error) {
	account, err := s.client.AccountDetail(horizonclient.AccountRequest{AccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("failed to load source account: %w", err)
	}
	return &account, nil
}

// BuildPaymentTx builds an unsigned single-payment transaction. An asset code
// of XLM pays in lumens.
func (s *StellarClient) BuildPaymentTx(source txnbuild.Account, destination, assetCode, issuer, amount string) (*txnbuild.Transaction, error) {
	var asset txnbuild.Asset
	if assetCode == "XLM" || assetCode == "" {
		asset = txnbuild.NativeAsset{}
	} else {
		asset = txnbuild.CreditAsset{Code: assetCode, Issuer: issuer}
	}

	tx, err := txnbuild.NewTransaction(
		txnbuild.TransactionParams{
			SourceAccount:        source,
			IncrementSequenceNum: true,
			BaseFee:              txnbuild.MinBaseFee,
			Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewInfiniteTimeout()},
			Operations: []txnbuild.Operation{
				&txnbuild.Payment{
					Destination: destination,
					Amount:      amount,
					Asset:       asset,
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment transaction: %w", err)
	}
	return tx, nil
}

func (s *StellarClient) SubmitXDR(envelopeXDR string) (string, error) {
	resp, err := s.client.SubmitTransactionXDR(envelopeXDR)
	if err != nil {
		return "", fmt.Errorf("failed to submit transaction: %w", err)
	}
	return resp.Hash, nil
}

// SignTx adds a signature by secret to a base64 transaction envelope. On
// failure the original envelope is returned with the error.
func SignTx(envelopeXDR, secret, networkPassphrase string) (string, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return envelopeXDR, fmt.Errorf("invalid secret key: %w", err)
	}
	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return envelopeXDR, fmt.Errorf("failed to decode transaction: %w", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return envelopeXDR, fmt.Errorf("fee bump transactions are not supported")
	}
	tx, err = tx.Sign(networkPassphrase, kp)
	if err != nil {
		return envelopeXDR, fmt.Errorf("failed to sign transaction: %w", err)
	}
	signed, err := tx.Base64()
	if err != nil {
		return envelopeXDR, fmt.Errorf("failed to encode transaction to XDR: %w", err)
	}
	return signed, nil
}

// VerifySignature checks that signature is address's ed25519 signature of
// message.
func VerifySignature(address string, message, signature []byte) error {
	kp, err := keypair.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if err := kp.Verify(message, signature); err != nil {
		return fmt.Errorf("signature does not match %s: %w", address, err)
	}
	return nil
}
